package browser

import (
	"context"

	"github.com/koustreak/schemascope/internal/errs"
	"github.com/koustreak/schemascope/internal/rules"
	"github.com/koustreak/schemascope/internal/schema"
)

// Mount issues the first fetch for the current database.
func (b *Browser) Mount() {
	b.mu.Lock()
	b.fetchLocked()
	b.unlockAndPublish()
}

// SetDbIndex switches databases. Tables, selection, visible columns and
// the failure banner are cleared and a new fetch starts; any fetch still
// outstanding for the old index will be discarded when it lands. Setting
// the current index is a no-op.
func (b *Browser) SetDbIndex(idx rules.DbIndex) {
	b.mu.Lock()
	if idx == b.dbIndex {
		b.mu.Unlock()
		return
	}
	b.log.With().Int("from", int(b.dbIndex)).Int("to", int(idx)).Logger().Info("database changed")

	b.dbIndex = idx
	b.tables = []schema.TableInfo{}
	b.selected = ""
	b.visible = make(map[string][]string)
	b.timer.Clear()
	b.fetchLocked()
	b.unlockAndPublish()
}

// Refresh re-fetches the current database. It is the only retry path.
func (b *Browser) Refresh() {
	b.mu.Lock()
	b.fetchLocked()
	b.unlockAndPublish()
}

// fetchLocked starts a background fetch tagged with a fresh generation.
// Without a configured URL nothing is fetched and the state stays empty.
func (b *Browser) fetchLocked() {
	b.generation++
	gen, idx := b.generation, b.dbIndex

	url, ok := b.rules.DatabaseURL(idx)
	if !ok || url == "" {
		b.loading = false
		b.log.With().Int("db_index", int(idx)).Logger().Warn("no schema url configured")
		return
	}

	b.loading = true
	b.wg.Add(1)
	go b.runFetch(gen, idx, url)
}

func (b *Browser) runFetch(gen uint64, idx rules.DbIndex, url string) {
	defer b.wg.Done()

	ctx, cancel := context.WithTimeout(b.ctx, b.timeout)
	defer cancel()

	doc, err := b.fetch(ctx, url)
	b.complete(gen, idx, url, doc, err)
}

func (b *Browser) fetch(ctx context.Context, url string) (*schema.Document, error) {
	src, err := b.opener.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return src.Fetch(ctx)
}

// complete applies a finished fetch if it is still the current one.
func (b *Browser) complete(gen uint64, idx rules.DbIndex, url string, doc *schema.Document, err error) {
	log := b.log.With().
		Int("db_index", int(idx)).
		Uint64("generation", gen).
		Logger()

	b.mu.Lock()
	if gen != b.generation {
		b.mu.Unlock()
		log.Debug("discarding stale schema response")
		return
	}
	b.loading = false

	if err != nil {
		// Armed under mu: the banner always belongs to the current database.
		b.timer.Arm(FetchFailureMessage)
		b.unlockAndPublish()
		log.WarnWith("schema fetch failed", err, map[string]interface{}{
			"url":  url,
			"kind": errs.KindOf(err).String(),
		})
		return
	}

	b.tables = schema.Parse(doc, idx, b.rules)
	b.visible = make(map[string][]string, len(b.tables))
	log.With().Int("tables", len(b.tables)).Logger().Info("schema loaded")

	if b.selected == "" {
		if len(b.tables) > 0 {
			b.selectLocked(b.tables[0].Name, false)
		}
	} else {
		b.selectLocked(b.selected, true)
	}
	b.deriveAllLocked()
	b.unlockAndPublish()
}
