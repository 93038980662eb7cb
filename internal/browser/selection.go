package browser

import "github.com/koustreak/schemascope/internal/schema"

// ClickTable toggles the selection of table name. Clicking the selected
// table collapses it unless force is set; force re-asserts the selection
// after a host re-render without treating it as a toggle. Column toggles are
// preserved either way. Unknown tables are ignored.
func (b *Browser) ClickTable(name string, force bool) {
	b.mu.Lock()
	if schema.Find(b.tables, name) == nil {
		b.mu.Unlock()
		b.log.With().Str("table", name).Logger().Debug("click on unknown table ignored")
		return
	}
	b.selectLocked(name, force)
	b.deriveLocked(b.selected)
	b.unlockAndPublish()
}

// SetTable applies a table chosen by the host. It behaves like a forced
// click but also accepts a table that is not loaded yet; the selection is
// then validated when the schema arrives. An empty name clears the selection.
func (b *Browser) SetTable(name string) {
	b.mu.Lock()
	b.selected = name
	b.deriveLocked(b.selected)
	b.unlockAndPublish()
}

// ClickColumn flips the visibility toggle of table.column. The selection is
// not affected. Unknown tables or columns are ignored.
func (b *Browser) ClickColumn(table, column string) {
	b.mu.Lock()
	t := schema.Find(b.tables, table)
	if t == nil || !t.Toggle(column) {
		b.mu.Unlock()
		b.log.With().Str("table", table).Str("column", column).Logger().Debug("click on unknown column ignored")
		return
	}
	b.deriveLocked(table)
	if b.selected != table {
		b.deriveLocked(b.selected)
	}
	b.unlockAndPublish()
}

// VisibleColumns returns the stored visible column list of table.
func (b *Browser) VisibleColumns(table string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string{}, b.visible[table]...)
}

func (b *Browser) selectLocked(name string, force bool) {
	if b.selected == name && !force {
		b.selected = ""
		return
	}
	b.selected = name
}

// deriveLocked recomputes the visible columns of table from its
// descriptors. The empty table name (no selection) derives to nothing.
func (b *Browser) deriveLocked(table string) []string {
	if table == "" {
		return []string{}
	}
	t := schema.Find(b.tables, table)
	if t == nil {
		delete(b.visible, table)
		return []string{}
	}
	cols := t.VisibleColumns()
	b.visible[table] = cols
	return cols
}

func (b *Browser) deriveAllLocked() {
	for i := range b.tables {
		b.visible[b.tables[i].Name] = b.tables[i].VisibleColumns()
	}
}
