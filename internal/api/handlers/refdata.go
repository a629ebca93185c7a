// Package handlers implements the HTTP handlers of the read-only API.
package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/uptrace/bun"

	"github.com/smassist/backend/internal/refdata"
	"github.com/smassist/backend/pkg/logger"
)

// RefDataHandler serves the stored reference data: stocks, universes and
// the ingestion run ledger.
type RefDataHandler struct {
	stocks    *refdata.StockRepository
	universes *refdata.UniverseRepository
	ledger    *refdata.LedgerRepository
	logger    *logger.Logger
}

// NewRefDataHandler creates a new reference-data handler.
func NewRefDataHandler(db *bun.DB, log *logger.Logger) *RefDataHandler {
	return &RefDataHandler{
		stocks:    refdata.NewStockRepository(db),
		universes: refdata.NewUniverseRepository(db),
		ledger:    refdata.NewLedgerRepository(db),
		logger:    log,
	}
}

// ListStocks returns a page of stocks
// GET /api/stocks?limit=100&offset=0
func (h *RefDataHandler) ListStocks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)

	stocks, err := h.stocks.List(ctx, limit, offset)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list stocks")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve stocks")
		return
	}

	total, err := h.stocks.Count(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to count stocks")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve stocks")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"stocks": stocks,
	})
}

// GetStock returns one stock by NSE or BSE symbol
// GET /api/stocks/{symbol}
func (h *RefDataHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	symbol := mux.Vars(r)["symbol"]
	if symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	stock, err := h.stocks.FindBySymbol(ctx, symbol)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "stock not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to get stock")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve stock")
		return
	}

	respondJSON(w, http.StatusOK, stock)
}

// ListUniverses returns all universes with member counts
// GET /api/universes
func (h *RefDataHandler) ListUniverses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	universes, err := h.universes.List(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list universes")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve universes")
		return
	}

	type universeResponse struct {
		refdata.Universe
		Members int `json:"members"`
	}

	result := make([]universeResponse, 0, len(universes))
	for _, u := range universes {
		n, err := h.universes.MemberCount(ctx, u.ID)
		if err != nil {
			h.logger.WithError(err).WithField("universe", u.Code).Error("Failed to count members")
			respondError(w, http.StatusInternalServerError, "Failed to retrieve universes")
			return
		}
		result = append(result, universeResponse{Universe: u, Members: n})
	}

	respondJSON(w, http.StatusOK, result)
}

// ListMembers returns the included member stocks of a universe
// GET /api/universes/{code}/members
func (h *RefDataHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := mux.Vars(r)["code"]

	universe, err := h.universes.GetByCode(ctx, code)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "universe not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("universe", code).Error("Failed to get universe")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve universe")
		return
	}

	members, err := h.universes.MemberStocks(ctx, universe.ID)
	if err != nil {
		h.logger.WithError(err).WithField("universe", code).Error("Failed to list members")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve members")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"universe": universe,
		"members":  members,
	})
}

// ListRuns returns recent ingestion runs, newest first
// GET /api/runs?limit=20
func (h *RefDataHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := queryInt(r, "limit", 20)

	runs, err := h.ledger.ListRuns(ctx, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve runs")
		return
	}

	respondJSON(w, http.StatusOK, runs)
}

// ListRunSources returns per-source provenance for one run
// GET /api/runs/{id}/sources
func (h *RefDataHandler) ListRunSources(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	runID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "run id must be an integer")
		return
	}

	if _, err := h.ledger.GetRun(ctx, runID); errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "run not found")
		return
	} else if err != nil {
		h.logger.WithError(err).WithField("run_id", runID).Error("Failed to get run")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve run")
		return
	}

	sources, err := h.ledger.ListRunSources(ctx, runID)
	if err != nil {
		h.logger.WithError(err).WithField("run_id", runID).Error("Failed to list run sources")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve run sources")
		return
	}

	respondJSON(w, http.StatusOK, sources)
}

func queryInt(r *http.Request, name string, defaultValue int) int {
	if raw := r.URL.Query().Get(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			return v
		}
	}
	return defaultValue
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
