// Package browser owns the schema browsing state of one host view: which
// database is shown, its materialized tables, the selected table, each
// column's visibility toggle and the derived list of visible columns.
//
// All transitions are serialized by one mutex, so the Browser behaves like
// a single logical thread. Schema fetches run in the background and are
// tagged with a generation; a completion whose generation is no longer
// current is dropped. Observers only ever receive complete snapshots.
//
// Usage:
//
//	b := browser.New(catalog, source.NewDialer(source.Options{}),
//	    browser.WithListener(func(s browser.Snapshot) { render(s) }))
//	defer b.Close()
//	b.Mount()
//	b.ClickTable("Users", false)
package browser

import (
	"context"
	"sync"
	"time"

	"github.com/koustreak/schemascope/internal/logger"
	"github.com/koustreak/schemascope/internal/notify"
	"github.com/koustreak/schemascope/internal/rules"
	"github.com/koustreak/schemascope/internal/schema"
	"github.com/koustreak/schemascope/internal/source"
)

const (
	// FetchFailureMessage is the banner shown for any failed fetch.
	FetchFailureMessage = "Database does not exist."

	// DefaultFetchTimeout bounds a single schema fetch.
	DefaultFetchTimeout = 30 * time.Second
)

// Listener receives every settled snapshot, in transition order.
// A Listener may read the Browser (Snapshot, VisibleColumns) but must not
// call its mutating methods synchronously: the mutation would wait for the
// delivery that is calling it.
type Listener func(Snapshot)

// Browser is the schema browsing state machine. Create it with New.
type Browser struct {
	rules   rules.Provider
	opener  source.Opener
	log     *logger.Logger
	timeout time.Duration
	timer   *notify.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	dbIndex    rules.DbIndex
	generation uint64
	loading    bool
	tables     []schema.TableInfo
	selected   string
	visible    map[string][]string // table → visible column names
	published  uint64              // last snapshot number handed out

	// emitMu guards delivery; turn admits snapshot delivered+1 next.
	// emitMu may be held while taking mu, never the reverse.
	emitMu      sync.Mutex
	turn        *sync.Cond
	delivered   uint64
	listeners   []Listener
	subscribers map[chan Snapshot]uint64 // last snapshot number already queued

	timerOpts []notify.Option
}

// Option configures a Browser.
type Option func(*Browser)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *logger.Logger) Option {
	return func(b *Browser) {
		if l != nil {
			b.log = l
		}
	}
}

// WithFetchTimeout bounds each schema fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(b *Browser) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithNotificationTTL sets how long the failure banner stays up.
func WithNotificationTTL(d time.Duration) Option {
	return func(b *Browser) {
		b.timerOpts = append(b.timerOpts, notify.WithTTL(d))
	}
}

// WithTimerOptions passes options to the notification timer.
func WithTimerOptions(opts ...notify.Option) Option {
	return func(b *Browser) {
		b.timerOpts = append(b.timerOpts, opts...)
	}
}

// WithDbIndex sets the database shown first.
func WithDbIndex(idx rules.DbIndex) Option {
	return func(b *Browser) { b.dbIndex = idx }
}

// WithTable pre-selects a table; first-table auto-selection is skipped.
func WithTable(name string) Option {
	return func(b *Browser) { b.selected = name }
}

// WithListener registers l for every snapshot.
func WithListener(l Listener) Option {
	return func(b *Browser) {
		if l != nil {
			b.listeners = append(b.listeners, l)
		}
	}
}

// New returns an unmounted Browser. Call Mount to issue the first fetch.
func New(p rules.Provider, opener source.Opener, opts ...Option) *Browser {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Browser{
		rules:       p,
		opener:      opener,
		log:         logger.Nop(),
		timeout:     DefaultFetchTimeout,
		ctx:         ctx,
		cancel:      cancel,
		tables:      []schema.TableInfo{},
		visible:     make(map[string][]string),
		subscribers: make(map[chan Snapshot]uint64),
	}
	b.turn = sync.NewCond(&b.emitMu)
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.Component("browser")

	timerOpts := append([]notify.Option{notify.OnChange(b.onNotification)}, b.timerOpts...)
	b.timer = notify.New(timerOpts...)
	return b
}

// Close stops background work and waits for in-flight fetches. Their
// results are discarded.
func (b *Browser) Close() {
	b.mu.Lock()
	b.generation++
	b.mu.Unlock()

	b.cancel()
	b.timer.Stop()
	b.wg.Wait()
}

// Wait blocks until every fetch started so far has completed.
func (b *Browser) Wait() {
	b.wg.Wait()
}

// DismissNotification clears the failure banner and its expiry.
func (b *Browser) DismissNotification() {
	b.timer.Dismiss()
}

func (b *Browser) onNotification(notify.Notification) {
	b.mu.Lock()
	b.unlockAndPublish()
}
