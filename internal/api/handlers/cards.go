package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mpatel-dev/cardvault/internal/cards"
	"github.com/mpatel-dev/cardvault/internal/vision"
)

type CardsHandler struct {
	svc      *cards.Service
	analyzer *vision.Analyzer
}

func NewCardsHandler(svc *cards.Service, analyzer *vision.Analyzer) *CardsHandler {
	return &CardsHandler{svc: svc, analyzer: analyzer}
}

type createCardRequest struct {
	ImageBase64 string `json:"image_base64"`
}

func (h *CardsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.ImageBase64 == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "image_base64 required"})
		return
	}

	card, err := h.svc.Create(r.Context(), cards.CreateRequest{ImageBase64: req.ImageBase64})
	if err != nil {
		if errors.Is(err, cards.ErrInvalidCard) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, card)
}

// Analyze runs vision extraction without storing anything. An invalid card
// is a 200 with is_valid false; the caller decides what to do with it.
func (h *CardsHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req createCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.ImageBase64 == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "image_base64 required"})
		return
	}

	meta, err := h.analyzer.AnalyzeCard(r.Context(), req.ImageBase64)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, meta)
}

func (h *CardsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	list, err := h.svc.List(r.Context(), limit, offset)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"cards": list, "count": len(list)})
}

func (h *CardsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid card id"})
		return
	}

	card, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, cards.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "card not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, card)
}

func (h *CardsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid card id"})
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, cards.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "card not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
