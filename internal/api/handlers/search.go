package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mpatel-dev/cardvault/internal/search"
)

type SearchHandler struct {
	svc *search.Service
}

func NewSearchHandler(svc *search.Service) *SearchHandler {
	return &SearchHandler{svc: svc}
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var q search.Query
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	results, err := h.svc.Search(r.Context(), q)
	if err != nil {
		writeJSON(w, searchStatus(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results, "count": len(results)})
}

// searchStatus maps the search error taxonomy onto HTTP statuses: bad input
// is the caller's fault, a failing embedder is an upstream fault, and an
// unreachable store means we are not ready to serve.
func searchStatus(err error) int {
	switch {
	case errors.Is(err, search.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, search.ErrEmbeddingUnavailable), errors.Is(err, search.ErrDimensionMismatch):
		return http.StatusBadGateway
	case errors.Is(err, search.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
