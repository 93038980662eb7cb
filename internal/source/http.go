package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/koustreak/schemascope/internal/errs"
	"github.com/koustreak/schemascope/internal/logger"
	"github.com/koustreak/schemascope/internal/schema"
)

// maxDocumentSize caps the schema body read from a remote endpoint.
const maxDocumentSize = 32 << 20

// HTTP fetches the OpenAPI document a PostgREST server publishes at its root.
type HTTP struct {
	endpoint string
	client   *http.Client
	log      *logger.Logger
}

// NewHTTP returns an HTTP source for baseURL.
func NewHTTP(baseURL string, client *http.Client, log *logger.Logger) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = logger.Nop()
	}
	return &HTTP{
		endpoint: rootEndpoint(baseURL),
		client:   client,
		log:      log,
	}
}

// rootEndpoint returns baseURL with a trailing slash on its path and no
// query or fragment. An unparsable baseURL is kept as is for Fetch to reject.
func rootEndpoint(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return strings.TrimSuffix(baseURL, "/") + "/"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/"
	u.RawPath = ""
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// Endpoint returns the URL Fetch requests.
func (h *HTTP) Endpoint() string {
	return h.endpoint
}

// Fetch issues GET {url}/ with an empty query and decodes the body.
func (h *HTTP) Fetch(ctx context.Context) (*schema.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid schema request", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/openapi+json, application/json")
	req.Header.Set("X-Request-Id", reqID)

	log := h.log.With().Str("request_id", reqID).Str("url", h.endpoint).Logger()
	log.Debug("requesting schema document")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, mapTransportError(err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, err
	}

	doc, err := schema.Decode(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, err
	}
	log.With().Int("tables", len(doc.Definitions)).Logger().Debug("schema document decoded")
	return doc, nil
}

// Close is a no-op; the http.Client is shared.
func (h *HTTP) Close() {}

func statusError(code int) error {
	if code >= 200 && code < 300 {
		return nil
	}
	msg := fmt.Sprintf("schema endpoint returned %d %s", code, http.StatusText(code))
	switch code {
	case http.StatusNotFound:
		return errs.New(errs.ErrKindNotFound, msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return errs.New(errs.ErrKindPermissionDenied, msg)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return errs.New(errs.ErrKindTimeout, msg)
	default:
		return errs.New(errs.ErrKindConnectionFailed, msg)
	}
}

func mapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, "schema request timed out", err)
	}
	return errs.Wrap(errs.ErrKindConnectionFailed, "schema request failed", err)
}
