package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"deal-underwriter/domain"
	"deal-underwriter/service"
)

const maxJSONBody = 1 << 20

type DealHandler struct {
	service *service.AnalysisService
}

func NewDealHandler(service *service.AnalysisService) *DealHandler {
	return &DealHandler{service: service}
}

func (h *DealHandler) CreateProperty(w http.ResponseWriter, r *http.Request) {

	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var input domain.Property
	if !decodeJSON(w, r, &input) {
		return
	}

	property, err := h.service.CreateProperty(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, property)
}

// Deals lists deals on GET and opens a new one on POST.
func (h *DealHandler) Deals(w http.ResponseWriter, r *http.Request) {

	switch r.Method {
	case http.MethodGet:
		deals, err := h.service.ListDeals(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, deals)

	case http.MethodPost:
		var input domain.NewDeal
		if !decodeJSON(w, r, &input) {
			return
		}
		deal, err := h.service.CreateDeal(r.Context(), input)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusCreated, deal)

	default:
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *DealHandler) RecentDeals(w http.ResponseWriter, r *http.Request) {

	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	deals, err := h.service.RecentDeals(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, deals)
}

func (h *DealHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {

	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stats, err := h.service.DashboardStats(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, stats)
}

func (h *DealHandler) AnalyzeDeal(w http.ResponseWriter, r *http.Request) {

	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req domain.AnalysisRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.AnalyzeDeal(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

func (h *DealHandler) DealResults(w http.ResponseWriter, r *http.Request) {

	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	results, err := h.service.DealResults(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, results)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
