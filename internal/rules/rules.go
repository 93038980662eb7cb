// Package rules resolves a database index to its connection URL and to the
// per-table and per-column visibility and rename rules.
//
// Every lookup reports presence separately from the value. An absent rule is
// never an error: callers treat it as "no override" (raw name, visible).
package rules

// DbIndex selects one configured database. It is the position of the
// database in the catalog.
type DbIndex int

// Provider is the read-only rule lookup consumed by the schema parser and
// the browser. All methods are pure and safe for concurrent use.
type Provider interface {
	// DatabaseURL returns the schema URL for idx.
	DatabaseURL(idx DbIndex) (string, bool)

	// TableVisible returns the hard visibility rule for a table.
	TableVisible(idx DbIndex, table string) (visible bool, ok bool)

	// TableRename returns the display name override for a table.
	TableRename(idx DbIndex, table string) (string, bool)

	// ColumnVisible returns the hard visibility rule for a column.
	ColumnVisible(idx DbIndex, table, column string) (visible bool, ok bool)

	// ColumnRename returns the display name override for a column.
	ColumnRename(idx DbIndex, table, column string) (string, bool)

	// ColumnInDefaultView reports whether a column starts out shown.
	// Absent rules yield true.
	ColumnInDefaultView(idx DbIndex, table, column string) bool
}

// TableHidden reports whether the table is explicitly excluded.
func TableHidden(p Provider, idx DbIndex, table string) bool {
	v, ok := p.TableVisible(idx, table)
	return ok && !v
}

// ColumnHidden reports whether the column is explicitly excluded.
func ColumnHidden(p Provider, idx DbIndex, table, column string) bool {
	v, ok := p.ColumnVisible(idx, table, column)
	return ok && !v
}

// TableDisplayName returns the rename override, or table itself.
func TableDisplayName(p Provider, idx DbIndex, table string) string {
	if name, ok := p.TableRename(idx, table); ok && name != "" {
		return name
	}
	return table
}

// ColumnDisplayName returns the rename override, or column itself.
func ColumnDisplayName(p Provider, idx DbIndex, table, column string) string {
	if name, ok := p.ColumnRename(idx, table, column); ok && name != "" {
		return name
	}
	return column
}
