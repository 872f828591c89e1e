package metrics

import "strings"

// Column describes a single ClickHouse column for schema generation.
type Column struct {
	Name string
	Type string
}

// ColumnsToSchemaSQL renders a column list into the body of a CREATE TABLE
// statement. Shared between the sink tables so the wide metric column set is
// declared exactly once.
func ColumnsToSchemaSQL(cols []Column) string {
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		parts = append(parts, c.Name+" "+c.Type)
	}
	return strings.Join(parts, ",\n\t\t\t")
}

// ColumnNames returns the names of the provided columns, in order.
func ColumnNames(cols []Column) []string {
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.Name)
	}
	return names
}
