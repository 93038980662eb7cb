// Package source fetches schema documents from the configured endpoints.
//
// The URL scheme picks the transport:
//
//	http://, https://         → PostgREST OpenAPI document (GET {url}/)
//	postgres://, postgresql:// → information_schema over pgx
//	mysql://                  → information_schema over database/sql
//
// Every transport yields the same *schema.Document so the parser never
// knows where the schema came from. Sources never retry.
package source

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/koustreak/schemascope/internal/errs"
	"github.com/koustreak/schemascope/internal/logger"
	"github.com/koustreak/schemascope/internal/schema"
)

// Source fetches one database's schema document.
type Source interface {
	// Fetch retrieves and decodes the schema document.
	Fetch(ctx context.Context) (*schema.Document, error)

	// Close releases connections held by the source.
	Close()
}

// Opener builds a Source for a configured URL.
type Opener interface {
	Open(ctx context.Context, rawURL string) (Source, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, rawURL string) (Source, error)

func (f OpenerFunc) Open(ctx context.Context, rawURL string) (Source, error) {
	return f(ctx, rawURL)
}

// Options tunes the transports. The zero value is usable.
type Options struct {
	HTTPClient *http.Client
	Logger     *logger.Logger

	// Schema is the Postgres schema to introspect. Defaults to "public".
	Schema string
}

// Dialer is the default Opener; it dispatches on URL scheme.
type Dialer struct {
	opts Options
}

// NewDialer returns a Dialer using opts.
func NewDialer(opts Options) *Dialer {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Schema == "" {
		opts.Schema = "public"
	}
	return &Dialer{opts: opts}
}

// Open parses rawURL and returns the matching Source.
func (d *Dialer) Open(ctx context.Context, rawURL string) (Source, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid schema url", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return NewHTTP(rawURL, d.opts.HTTPClient, d.opts.Logger), nil
	case "postgres", "postgresql":
		pg, err := OpenPostgres(ctx, rawURL, d.opts.Schema)
		if err != nil {
			return nil, err
		}
		return pg, nil
	case "mysql":
		my, err := OpenMySQL(ctx, u)
		if err != nil {
			return nil, err
		}
		return my, nil
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unsupported schema url scheme %q", u.Scheme)
	}
}
