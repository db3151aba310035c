// Package migrations embeds the schema of every storage backend.
// Each backend applies its own directory; this package only loads and splits files,
// so backends can import it without an import cycle.
package migrations

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// File is one migration file.
type File struct {
	Name string
	SQL  string
}

// Load returns the .sql files of dir in lexical order, skipping empty files.
func Load(fsys fs.FS, dir string) ([]File, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s migrations: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	files := make([]File, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, dir+"/"+name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		files = append(files, File{Name: name, SQL: string(data)})
	}
	return files, nil
}

// Statements splits f into individual statements for drivers that do not accept
// multi-statement Exec (ClickHouse).
func (f File) Statements() ([]string, error) {
	if err := validateNoSemicolonInStrings(f.SQL); err != nil {
		return nil, fmt.Errorf("validate migration %s: %w", f.Name, err)
	}
	return SplitStatements(f.SQL), nil
}

// SplitStatements splits SQL content into individual statements by semicolon.
//
// The splitter is intentionally simple and does NOT handle:
//   - Semicolons inside string literals (e.g., 'foo;bar')
//   - Semicolons inside block comments
//   - Dollar-quoted strings
//
// Migrations split this way use -- comments only and never put a semicolon inside
// a string literal. Statements validates the latter.
func SplitStatements(input string) []string {
	var filtered []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		filtered = append(filtered, line)
	}
	joined := strings.Join(filtered, "\n")

	var stmts []string
	for _, part := range strings.Split(joined, ";") {
		stmt := strings.TrimSpace(part)
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// validateNoSemicolonInStrings rejects SQL with a semicolon inside a single-quoted
// string, which SplitStatements would cut in half.
func validateNoSemicolonInStrings(sql string) error {
	inString := false
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		if ch == '\'' {
			// Escaped quote ''
			if i+1 < len(sql) && sql[i+1] == '\'' {
				i++
				continue
			}
			inString = !inString
		} else if ch == ';' && inString {
			return fmt.Errorf("semicolon found inside string literal")
		}
	}
	return nil
}
