package schema

import "github.com/koustreak/schemascope/internal/rules"

// Parse builds the descriptors for idx from doc.
//
// Tables and columns keep document order. A table or column whose hard
// visibility rule is false is dropped entirely; every surviving column's
// Visible flag is seeded from the default view rule. A nil or empty document
// yields an empty, non-nil slice.
func Parse(doc *Document, idx rules.DbIndex, p rules.Provider) []TableInfo {
	tables := []TableInfo{}
	if doc == nil {
		return tables
	}

	for _, def := range doc.Definitions {
		if rules.TableHidden(p, idx, def.Name) {
			continue
		}
		tables = append(tables, parseTable(def, idx, p))
	}
	return tables
}

func parseTable(def Definition, idx rules.DbIndex, p rules.Provider) TableInfo {
	t := TableInfo{
		Name:        def.Name,
		DisplayName: rules.TableDisplayName(p, idx, def.Name),
		Columns:     make([]ColumnInfo, 0, len(def.Properties)),
	}
	for _, col := range def.Properties {
		if rules.ColumnHidden(p, idx, def.Name, col) {
			continue
		}
		t.Columns = append(t.Columns, ColumnInfo{
			Name:        col,
			DisplayName: rules.ColumnDisplayName(p, idx, def.Name, col),
			Visible:     p.ColumnInDefaultView(idx, def.Name, col),
		})
	}
	return t
}
