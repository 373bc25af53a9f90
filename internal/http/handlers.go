package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"tally/internal/core"
	"tally/internal/log"
)

const categoryCacheKey = "all"

// handleCategories returns all categories ordered by kind, then name.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if cached, ok := s.categoryCache.Get(categoryCacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	categories, err := s.categories.Categories(r.Context())
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Category list failed", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	if categories == nil {
		categories = []core.Category{}
	}

	s.categoryCache.Set(categoryCacheKey, categories)
	writeJSON(w, http.StatusOK, categories)
}

// handleListTransactions answers the paginated, filtered ledger query.
// Invalid filter values are ignored and out-of-range paging falls back to
// defaults; no query string ever produces a client error here.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, page, pageSize := parseListQuery(r.URL.Query())

	envelope, err := s.engine.List(r.Context(), filter, page, pageSize)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Transaction list failed", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	writeJSON(w, http.StatusOK, envelope)
}

// createRequest mirrors the POST /transactions body. Amount accepts either
// a decimal string or a JSON number.
type createRequest struct {
	Type       string     `json:"type"`
	Amount     core.Money `json:"amount"`
	Date       string     `json:"date"`
	Note       *string    `json:"note"`
	CategoryID int64      `json:"categoryId"`
}

// handleCreateTransaction validates and persists a new transaction.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	in := core.TransactionInput{
		Type:       core.TransactionType(strings.TrimSpace(req.Type)),
		Amount:     req.Amount,
		Note:       req.Note,
		CategoryID: req.CategoryID,
	}
	if req.Date != "" {
		ts, ok := parseTimeParam(req.Date)
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid date")
			return
		}
		in.Date = ts
	}

	created, err := s.gateway.Create(r.Context(), in)
	switch {
	case err == nil:
	case core.IsValidation(err):
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	case errors.Is(err, core.ErrCategoryNotFound):
		writeError(w, http.StatusBadRequest, "Unknown category")
		return
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Transaction create failed", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// handleDeleteTransaction removes a transaction by path id.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	switch err := s.gateway.Delete(r.Context(), id); {
	case err == nil:
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "Transaction not found")
		return
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Transaction delete failed",
			log.FieldError, err, log.FieldTransaction, id)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
