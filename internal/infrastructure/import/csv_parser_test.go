package csvimport

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCSVParser(t *testing.T) {
	t.Run("strips UTF-8 BOM", func(t *testing.T) {
		p, err := NewCSVParser(strings.NewReader("\xEF\xBB\xBFname,value\nA,1\n"))
		require.NoError(t, err)
		require.NoError(t, p.ParseHeader())
		assert.Equal(t, []string{"name", "value"}, p.Headers())
	})

	t.Run("rejects empty input", func(t *testing.T) {
		_, err := NewCSVParser(strings.NewReader(""))
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("rejects non UTF-8 input", func(t *testing.T) {
		// GBK bytes for a Chinese header
		_, err := NewCSVParser(strings.NewReader("\xc8\xd5\xc6\xda,x\n"))
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})

	t.Run("accepts a multi-byte rune across the check boundary", func(t *testing.T) {
		content := strings.Repeat("a", 4095) + "日期\n"
		_, err := NewCSVParser(strings.NewReader(content))
		assert.NoError(t, err)
	})
}

func TestCSVParser_Headers(t *testing.T) {
	aliases := map[string][]string{
		"seller_id": {"sid", "店铺id"},
		"sales":     {"Sales Amount", "销售额"},
	}

	t.Run("matches case-insensitively and through aliases", func(t *testing.T) {
		p, err := NewCSVParser(strings.NewReader(" SID ,Sales-Amount,Other Column\n"), WithHeaderAliases(aliases))
		require.NoError(t, err)
		require.NoError(t, p.ParseHeader())

		assert.Equal(t, []string{"seller_id", "sales", "other column"}, p.Headers())
		assert.True(t, p.HasHeader("seller_id"))
		assert.Empty(t, p.MissingHeaders([]string{"seller_id", "sales"}))
		assert.Equal(t, []string{"date"}, p.MissingHeaders([]string{"date"}))
	})

	t.Run("chinese headers", func(t *testing.T) {
		p, err := NewCSVParser(strings.NewReader("店铺ID,销售额\n"), WithHeaderAliases(aliases))
		require.NoError(t, err)
		require.NoError(t, p.ParseHeader())
		assert.Equal(t, []string{"seller_id", "sales"}, p.Headers())
	})

	t.Run("blank header line", func(t *testing.T) {
		p, err := NewCSVParser(strings.NewReader("\n\n"))
		require.NoError(t, err)
		assert.ErrorIs(t, p.ParseHeader(), ErrMissingHeader)
	})
}

func TestCSVParser_ReadRow(t *testing.T) {
	p, err := NewCSVParser(strings.NewReader("a;b;c\n 1 ;2\n;;\n\"x;y\";z;w\n"), WithDelimiter(';'))
	require.NoError(t, err)
	require.NoError(t, p.ParseHeader())

	row, err := p.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, 2, row.LineNumber)
	assert.Equal(t, "1", row.Get("a"))
	assert.Equal(t, "", row.Get("c"), "short rows are padded")

	row, err = p.ReadRow()
	require.NoError(t, err)
	assert.True(t, row.IsEmpty())

	row, err = p.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, "x;y", row.Get("a"))
	assert.Equal(t, 4, p.CurrentRow())

	_, err = p.ReadRow()
	assert.ErrorIs(t, err, io.EOF)
}

func TestErrorCollection(t *testing.T) {
	ec := NewErrorCollection(2)
	assert.False(t, ec.HasErrors())
	assert.Equal(t, "no errors", ec.String())

	ec.AddRequiredError(2, "date")
	ec.AddFormatError(3, "sales", "decimal number", "abc")
	ec.AddRangeError(4, "units", "-1")

	assert.True(t, ec.HasErrors())
	assert.True(t, ec.IsTruncated())
	assert.Equal(t, 3, ec.TotalCount())
	require.Len(t, ec.Errors(), 2)
	assert.Equal(t, ErrCodeImportRequiredField, ec.Errors()[0].Code)
	assert.Equal(t, "row 3, column 'sales': invalid format, expected decimal number", ec.Errors()[1].Error())
	assert.Contains(t, ec.String(), "3 invalid row value(s), first 2 listed")
}
