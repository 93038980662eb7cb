package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/koustreak/schemascope/internal/errs"
	"github.com/koustreak/schemascope/internal/rules"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type databaseEntry struct {
	Index rules.DbIndex `json:"index"`
	Name  string        `json:"name"`
}

type setTableRequest struct {
	Table string `json:"table"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.browser.Snapshot())
}

func (s *Server) handleDatabases(w http.ResponseWriter, _ *http.Request) {
	if s.catalog == nil {
		s.writeError(w, errs.New(errs.ErrKindNotFound, "no database catalog configured"))
		return
	}
	out := make([]databaseEntry, 0, s.catalog.Len())
	for i := 0; i < s.catalog.Len(); i++ {
		idx := rules.DbIndex(i)
		out = append(out, databaseEntry{Index: idx, Name: s.catalog.Name(idx)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSetDbIndex(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "index")
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		s.writeError(w, errs.Newf(errs.ErrKindInvalidInput, "invalid database index %q", raw))
		return
	}
	s.browser.SetDbIndex(rules.DbIndex(n))
	writeJSON(w, http.StatusOK, s.browser.Snapshot())
}

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	s.browser.Refresh()
	writeJSON(w, http.StatusOK, s.browser.Snapshot())
}

func (s *Server) handleSetTable(w http.ResponseWriter, r *http.Request) {
	var req setTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errs.Wrap(errs.ErrKindInvalidInput, "invalid request body", err))
		return
	}
	s.browser.SetTable(req.Table)
	writeJSON(w, http.StatusOK, s.browser.Snapshot())
}

func (s *Server) handleClickTable(w http.ResponseWriter, r *http.Request) {
	table, err := pathParam(r, "table")
	if err != nil {
		s.writeError(w, err)
		return
	}

	force := false
	if raw := r.URL.Query().Get("force"); raw != "" {
		force, err = strconv.ParseBool(raw)
		if err != nil {
			s.writeError(w, errs.Newf(errs.ErrKindInvalidInput, "invalid force value %q", raw))
			return
		}
	}

	s.browser.ClickTable(table, force)
	writeJSON(w, http.StatusOK, s.browser.Snapshot())
}

func (s *Server) handleClickColumn(w http.ResponseWriter, r *http.Request) {
	table, err := pathParam(r, "table")
	if err != nil {
		s.writeError(w, err)
		return
	}
	column, err := pathParam(r, "column")
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.browser.ClickColumn(table, column)
	writeJSON(w, http.StatusOK, s.browser.Snapshot())
}

func (s *Server) handleDismiss(w http.ResponseWriter, _ *http.Request) {
	s.browser.DismissNotification()
	writeJSON(w, http.StatusOK, s.browser.Snapshot())
}

// handleEvents streams every snapshot as a server-sent event, starting with
// the current one. Only subscription snapshots are sent, so the stream never
// goes back in time. Slow clients skip intermediate snapshots.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, errs.New(errs.ErrKindUnknown, "streaming unsupported"))
		return
	}

	ch, cancel := s.browser.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			if err := writeEvent(w, snap); err != nil {
				s.log.With().Err(err).Logger().Debug("event stream closed")
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
	return err
}

// pathParam returns the unescaped chi URL parameter key.
func pathParam(r *http.Request, key string) (string, error) {
	raw := chi.URLParam(r, key)
	v, err := url.PathUnescape(raw)
	if err != nil || v == "" {
		return "", errs.Newf(errs.ErrKindInvalidInput, "invalid %s %q", key, raw)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.ErrorWith("request failed", err, nil)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: errs.KindOf(err).String()})
}

func statusFor(err error) int {
	switch {
	case errs.IsInvalidInput(err):
		return http.StatusBadRequest
	case errs.IsNotFound(err):
		return http.StatusNotFound
	case errs.IsPermissionDenied(err):
		return http.StatusForbidden
	case errs.IsTimeout(err):
		return http.StatusGatewayTimeout
	case errs.IsConnectionFailed(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
