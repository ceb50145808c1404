// Package csvimport parses ERP report exports into domain rows.
package csvimport

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// CSVParser reads a UTF-8 CSV with a header row. Header names are matched
// case-insensitively and through an alias table onto canonical column names.
type CSVParser struct {
	delimiter  rune
	aliases    map[string]string
	headerMap  map[string]int
	headers    []string
	currentRow int
	reader     *csv.Reader
	bufReader  *bufio.Reader
}

// ParserOption is a functional option for CSVParser configuration
type ParserOption func(*CSVParser)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) ParserOption {
	return func(p *CSVParser) {
		p.delimiter = d
	}
}

// WithHeaderAliases maps alternative header names onto canonical column names
func WithHeaderAliases(aliases map[string][]string) ParserOption {
	return func(p *CSVParser) {
		for canonical, names := range aliases {
			p.aliases[normalizeHeader(canonical)] = canonical
			for _, n := range names {
				p.aliases[normalizeHeader(n)] = canonical
			}
		}
	}
}

// NewCSVParser creates a parser, stripping a UTF-8 BOM and rejecting other encodings
func NewCSVParser(r io.Reader, opts ...ParserOption) (*CSVParser, error) {
	parser := &CSVParser{
		delimiter: ',',
		aliases:   make(map[string]string),
		headerMap: make(map[string]int),
	}
	for _, opt := range opts {
		opt(parser)
	}

	parser.bufReader = bufio.NewReader(r)

	bom, err := parser.bufReader.Peek(3)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(bom) == 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		_, _ = parser.bufReader.Discard(3)
	}

	if err := validateUTF8(parser.bufReader); err != nil {
		return nil, err
	}

	parser.reader = csv.NewReader(parser.bufReader)
	parser.reader.Comma = parser.delimiter
	parser.reader.LazyQuotes = true
	parser.reader.TrimLeadingSpace = true
	parser.reader.FieldsPerRecord = -1
	return parser, nil
}

// validateUTF8 checks the first block of the input
func validateUTF8(r *bufio.Reader) error {
	const checkSize = 4096
	content, err := r.Peek(checkSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return fmt.Errorf("failed to read file for encoding validation: %w", err)
	}
	if len(content) == 0 {
		return ErrEmptyFile
	}
	// a multi-byte rune may straddle the peek boundary
	if len(content) == checkSize {
		for i := 0; i < utf8.UTFMax && len(content) > 0 && !utf8.Valid(content); i++ {
			content = content[:len(content)-1]
		}
	}
	if !utf8.Valid(content) {
		return ErrInvalidEncoding
	}
	return nil
}

// ParseHeader reads the header row
func (p *CSVParser) ParseHeader() error {
	record, err := p.reader.Read()
	if errors.Is(err, io.EOF) {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	p.headers = make([]string, len(record))
	for i, h := range record {
		name := p.canonical(h)
		p.headers[i] = name
		if _, dup := p.headerMap[name]; !dup {
			p.headerMap[name] = i
		}
	}
	if len(p.headers) == 0 || (len(p.headers) == 1 && p.headers[0] == "") {
		return ErrMissingHeader
	}
	p.currentRow = 1
	return nil
}

func (p *CSVParser) canonical(header string) string {
	key := normalizeHeader(header)
	if name, ok := p.aliases[key]; ok {
		return name
	}
	return key
}

// normalizeHeader lowercases a header and collapses spaces, dashes and underscores
func normalizeHeader(h string) string {
	fields := strings.FieldsFunc(strings.ToLower(strings.TrimSpace(h)), func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '\t'
	})
	return strings.Join(fields, " ")
}

// Headers returns the canonical header names
func (p *CSVParser) Headers() []string {
	return p.headers
}

// HasHeader checks if a canonical column exists
func (p *CSVParser) HasHeader(name string) bool {
	_, ok := p.headerMap[name]
	return ok
}

// MissingHeaders returns the required columns that are absent
func (p *CSVParser) MissingHeaders(required []string) []string {
	var missing []string
	for _, h := range required {
		if !p.HasHeader(h) {
			missing = append(missing, h)
		}
	}
	return missing
}

// Row is a parsed CSV row keyed by canonical column name
type Row struct {
	LineNumber int
	Data       map[string]string
}

// Get returns the value of a column
func (r *Row) Get(column string) string {
	return r.Data[column]
}

// IsEmpty returns true if the row has no non-empty values
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// ReadRow reads the next row, returning io.EOF at the end
func (p *CSVParser) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	p.currentRow++
	if err != nil {
		return nil, fmt.Errorf("error reading row %d: %w", p.currentRow, err)
	}

	row := &Row{
		LineNumber: p.currentRow,
		Data:       make(map[string]string, len(p.headers)),
	}
	for i, header := range p.headers {
		if _, set := row.Data[header]; set {
			continue
		}
		if i < len(record) {
			row.Data[header] = strings.TrimSpace(record[i])
		} else {
			row.Data[header] = ""
		}
	}
	return row, nil
}

// CurrentRow returns the current row number (1-indexed, header included)
func (p *CSVParser) CurrentRow() int {
	return p.currentRow
}
