// File path: internal/sqlite/schema.go
package sqlite

import (
	"context"
	"fmt"
	"strings"
)

// Tables lists every user relation in the store with its columns. Nothing
// is cached; each call reads sqlite_master again.
func (s *Store) Tables(ctx context.Context) ([]Table, error) {
	if s == nil {
		return nil, ErrStoreClosed
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	db, err := s.readDB()
	if err != nil {
		return nil, err
	}

	names := []string{}
	if err := db.SelectContext(ctx, &names, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY rowid`); err != nil {
		return nil, fmt.Errorf("select tables: %w", err)
	}
	tables := make([]Table, 0, len(names))
	for _, name := range names {
		columns := []Column{}
		if err := db.SelectContext(ctx, &columns, `SELECT cid, name, type, "notnull", dflt_value, pk FROM pragma_table_info(?) ORDER BY cid`, name); err != nil {
			return nil, fmt.Errorf("table info %s: %w", name, err)
		}
		tables = append(tables, Table{Name: name, Columns: columns})
	}
	return tables, nil
}

// DescribeSchema renders tables as the plain-text schema handed to the SQL
// prompt, one block per relation.
func DescribeSchema(tables []Table) string {
	var b strings.Builder
	for _, table := range tables {
		fmt.Fprintf(&b, "\nTable '%s':\n", table.Name)
		for _, col := range table.Columns {
			fmt.Fprintf(&b, "   • %s (%s)\n", col.Name, col.Type)
		}
	}
	return b.String()
}
