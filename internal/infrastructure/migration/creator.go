package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"
)

const upTemplate = `-- {{.Name}}
-- Created: {{.Created}}
{{- if .Description}}
-- {{.Description}}
{{- end}}

`

const downTemplate = `-- Rollback of {{.Name}}

`

// versionWidth is the zero padding of sequential versions, e.g. 000007
const versionWidth = 6

// MigrationFile describes a created up/down pair
type MigrationFile struct {
	Version     uint
	Name        string
	Description string
	Created     string
	UpPath      string
	DownPath    string
}

// MigrationInfo describes one migration found in a source
type MigrationInfo struct {
	Version uint
	Name    string
}

// String renders the migration as its file base name
func (m MigrationInfo) String() string {
	return fmt.Sprintf("%0*d_%s", versionWidth, m.Version, m.Name)
}

// CreateMigration writes an empty up/down pair numbered after the highest version in dir
func CreateMigration(dir, name, description string) (*MigrationFile, error) {
	slug := sanitizeName(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	existing, err := ListMigrations(os.DirFS(dir))
	if err != nil {
		return nil, err
	}
	var version uint = 1
	if n := len(existing); n > 0 {
		version = existing[n-1].Version + 1
	}

	base := MigrationInfo{Version: version, Name: slug}.String()
	mf := &MigrationFile{
		Version:     version,
		Name:        slug,
		Description: description,
		Created:     time.Now().Format(time.RFC3339),
		UpPath:      filepath.Join(dir, base+".up.sql"),
		DownPath:    filepath.Join(dir, base+".down.sql"),
	}

	if err := writeTemplate(mf.UpPath, upTemplate, mf); err != nil {
		return nil, fmt.Errorf("failed to create up migration: %w", err)
	}
	if err := writeTemplate(mf.DownPath, downTemplate, mf); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, fmt.Errorf("failed to create down migration: %w", err)
	}
	return mf, nil
}

func writeTemplate(path, content string, data *MigrationFile) error {
	tmpl, err := template.New(filepath.Base(path)).Parse(content)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return tmpl.Execute(f, data)
}

// sanitizeName lowercases a name and joins its words with underscores
func sanitizeName(name string) string {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	})
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Map(func(r rune) rune {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				return r
			}
			return -1
		}, w)
		if w != "" {
			out = append(out, w)
		}
	}
	return strings.Join(out, "_")
}

// ListMigrations returns the migrations of fsys ordered by version. Files not named
// <version>_<name>.up.sql are ignored.
func ListMigrations(fsys fs.FS) ([]MigrationInfo, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []MigrationInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	out := make([]MigrationInfo, 0, len(entries)/2)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		version, slug, ok := strings.Cut(strings.TrimSuffix(name, ".up.sql"), "_")
		if !ok {
			continue
		}
		v, err := strconv.ParseUint(version, 10, 32)
		if err != nil {
			continue
		}
		out = append(out, MigrationInfo{Version: uint(v), Name: slug})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}
