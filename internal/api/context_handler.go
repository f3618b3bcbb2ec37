package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/dshills/ctxextract/internal/indexer"
	"github.com/dshills/ctxextract/internal/storage"
	"github.com/dshills/ctxextract/pkg/types"
)

// extractRequest uses pointers so an absent field is told apart from an empty one
type extractRequest struct {
	ProjectID *string `json:"projectId"`
	FileName  *string `json:"fileName"`
	FilePath  *string `json:"filePath"`
	Content   *string `json:"content"`
}

func (e extractRequest) toRequest() (indexer.Request, error) {
	fields := []struct {
		name  string
		value *string
	}{
		{"projectId", e.ProjectID},
		{"fileName", e.FileName},
		{"filePath", e.FilePath},
		{"content", e.Content},
	}
	for _, f := range fields {
		if f.value == nil {
			return indexer.Request{}, fmt.Errorf("%w: %s", types.ErrMissingField, f.name)
		}
	}
	req := indexer.Request{
		ProjectID: *e.ProjectID,
		FileName:  *e.FileName,
		FilePath:  *e.FilePath,
		Content:   *e.Content,
	}
	return req, req.Validate()
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)

	var body extractRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: malformed JSON: %v", types.ErrInvalidRequest, err))
		return
	}

	req, err := body.toRequest()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.indexer.Extract(r.Context(), req)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, res.Record)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.store.GetExtraction(r.Context(), id)
	if err != nil {
		s.writeError(w, statusFor(err), fmt.Errorf("get extraction %s: %w", id, err))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.ListFilter{
		ProjectID: strings.TrimSpace(q.Get("projectId")),
	}

	if lang := strings.TrimSpace(q.Get("language")); lang != "" {
		filter.Language = types.Language(strings.ToLower(lang))
		if !filter.Language.Valid() {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: unknown language %q", types.ErrInvalidRequest, lang))
			return
		}
	}

	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: limit: %v", types.ErrInvalidRequest, err))
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: offset: %v", types.ErrInvalidRequest, err))
		return
	}

	records, err := s.store.ListExtractions(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("list extractions: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"extractions": records,
		"count":       len(records),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	projectID := strings.TrimSpace(r.URL.Query().Get("projectId"))
	status, err := s.store.GetStatus(r.Context(), projectID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("get status: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// intParam parses an optional non-negative integer query parameter
func intParam(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return n, nil
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrMissingField), errors.Is(err, types.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
