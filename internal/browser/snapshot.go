package browser

import (
	"github.com/koustreak/schemascope/internal/notify"
	"github.com/koustreak/schemascope/internal/rules"
	"github.com/koustreak/schemascope/internal/schema"
)

// Snapshot is the full derived state delivered after every transition.
type Snapshot struct {
	DbIndex rules.DbIndex      `json:"db_index"`
	Loading bool               `json:"loading"`
	Tables  []schema.TableInfo `json:"tables"`

	// Table is the selected table, "" when none.
	Table string `json:"table"`

	// Columns lists every materialized column of Table.
	Columns []string `json:"columns"`

	// VisibleColumns lists the columns of Table whose toggle is on.
	VisibleColumns []string `json:"visible_columns"`

	Notification notify.Notification `json:"notification"`
}

// Snapshot returns the current state.
func (b *Browser) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *Browser) snapshotLocked() Snapshot {
	s := Snapshot{
		DbIndex:        b.dbIndex,
		Loading:        b.loading,
		Tables:         schema.CloneAll(b.tables),
		Table:          b.selected,
		Columns:        []string{},
		VisibleColumns: []string{},
		Notification:   b.timer.State(),
	}
	if t := schema.Find(b.tables, b.selected); t != nil {
		s.Columns = t.ColumnNames()
		s.VisibleColumns = append(s.VisibleColumns, b.visible[b.selected]...)
	}
	return s
}

// Subscribe returns a channel that always holds the latest snapshot,
// starting with the current one. Slow readers skip intermediate snapshots
// but never receive an older one after a newer. Call cancel to unsubscribe.
func (b *Browser) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	b.emitMu.Lock()
	b.mu.Lock()
	ch <- b.snapshotLocked()
	b.subscribers[ch] = b.published
	b.mu.Unlock()
	b.emitMu.Unlock()

	cancel := func() {
		b.emitMu.Lock()
		defer b.emitMu.Unlock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// unlockAndPublish snapshots the state, releases mu and delivers the
// snapshot. Snapshots are numbered under mu and delivered strictly in that
// order; mu is never held while waiting for an earlier delivery, so a
// Listener may read the Browser.
func (b *Browser) unlockAndPublish() {
	snap := b.snapshotLocked()
	b.published++
	seq := b.published
	b.mu.Unlock()

	b.emitMu.Lock()
	defer b.emitMu.Unlock()
	for b.delivered != seq-1 {
		b.turn.Wait()
	}
	defer func() {
		b.delivered = seq
		b.turn.Broadcast()
	}()

	for _, l := range b.listeners {
		l(snap)
	}
	for ch, from := range b.subscribers {
		if seq <= from {
			continue
		}
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// Callbacks is the four-callback host contract. Nil fields are skipped.
type Callbacks struct {
	ChangeTable          func(table string)
	ChangeColumns        func(columns []string)
	ChangeDbIndex        func(idx rules.DbIndex)
	ChangeVisibleColumns func(columns []string)
}

// Listener adapts the callbacks to a snapshot Listener. Table, columns and
// visible columns are reported on every snapshot; the database index only
// when it changes.
func (c Callbacks) Listener() Listener {
	first := true
	var last rules.DbIndex
	return func(s Snapshot) {
		if c.ChangeTable != nil {
			c.ChangeTable(s.Table)
		}
		if c.ChangeColumns != nil {
			c.ChangeColumns(s.Columns)
		}
		if c.ChangeDbIndex != nil && (first || s.DbIndex != last) {
			c.ChangeDbIndex(s.DbIndex)
		}
		first, last = false, s.DbIndex
		if c.ChangeVisibleColumns != nil {
			c.ChangeVisibleColumns(s.VisibleColumns)
		}
	}
}
