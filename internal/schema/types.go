package schema

// ColumnInfo describes a single materialized column.
type ColumnInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`

	// Visible is the user-togglable flag, seeded from the default view rule.
	// Columns excluded by the hard visibility rule never become a ColumnInfo.
	Visible bool `json:"visible"`
}

// TableInfo describes a materialized table and its columns in source order.
type TableInfo struct {
	Name        string       `json:"name"`
	DisplayName string       `json:"display_name"`
	Columns     []ColumnInfo `json:"columns"`
}

// ColumnNames returns every materialized column name in order.
func (t *TableInfo) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return names
}

// VisibleColumns returns the names of the columns whose Visible flag is set,
// order preserved. Never nil.
func (t *TableInfo) VisibleColumns() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.Visible {
			names = append(names, c.Name)
		}
	}
	return names
}

// Column returns the column called name, or nil.
func (t *TableInfo) Column(name string) *ColumnInfo {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// Toggle flips the Visible flag of column name. It reports false when the
// column is not materialized.
func (t *TableInfo) Toggle(name string) bool {
	c := t.Column(name)
	if c == nil {
		return false
	}
	c.Visible = !c.Visible
	return true
}

// Clone returns a deep copy safe to hand to observers.
func (t TableInfo) Clone() TableInfo {
	t.Columns = append([]ColumnInfo(nil), t.Columns...)
	return t
}

// Find returns the table called name, or nil.
func Find(tables []TableInfo, name string) *TableInfo {
	for i := range tables {
		if tables[i].Name == name {
			return &tables[i]
		}
	}
	return nil
}

// CloneAll deep-copies a table list.
func CloneAll(tables []TableInfo) []TableInfo {
	out := make([]TableInfo, len(tables))
	for i, t := range tables {
		out[i] = t.Clone()
	}
	return out
}
