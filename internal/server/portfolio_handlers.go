package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/vekfolio/riskengine/internal/domain"
	"github.com/vekfolio/riskengine/internal/events"
	"github.com/vekfolio/riskengine/internal/portfolio"
)

// PortfolioHandlers handles position CRUD endpoints
type PortfolioHandlers struct {
	positions *portfolio.Repository
	bus       *events.Bus
	log       zerolog.Logger
}

// NewPortfolioHandlers creates new portfolio handlers
func NewPortfolioHandlers(positions *portfolio.Repository, bus *events.Bus, log zerolog.Logger) *PortfolioHandlers {
	return &PortfolioHandlers{
		positions: positions,
		bus:       bus,
		log:       log.With().Str("handlers", "portfolio").Logger(),
	}
}

// RegisterRoutes registers portfolio routes
func (h *PortfolioHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/positions", h.HandleListPositions)
		r.Put("/positions/{ticker}", h.HandleUpsertPosition)
		r.Get("/positions/{ticker}", h.HandleGetPosition)
		r.Delete("/positions/{ticker}", h.HandleDeletePosition)
		r.Get("/summary", h.HandleSummary)
	})
}

// HandleListPositions returns all positions
func (h *PortfolioHandlers) HandleListPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.positions.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list positions")
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}
	if positions == nil {
		positions = []domain.PositionSnapshot{}
	}
	writeJSON(w, http.StatusOK, positions)
}

// HandleGetPosition returns one position by ticker
func (h *PortfolioHandlers) HandleGetPosition(w http.ResponseWriter, r *http.Request) {
	ticker := normalizeTicker(chi.URLParam(r, "ticker"))

	pos, err := h.positions.Get(ticker)
	if err != nil {
		h.log.Error().Err(err).Str("ticker", ticker).Msg("Failed to get position")
		writeError(w, http.StatusInternalServerError, "failed to get position")
		return
	}
	if pos == nil {
		writeError(w, http.StatusNotFound, "position not found")
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

// HandleUpsertPosition creates or replaces a position. The ticker in the URL
// wins over any ticker in the body.
func (h *PortfolioHandlers) HandleUpsertPosition(w http.ResponseWriter, r *http.Request) {
	ticker := normalizeTicker(chi.URLParam(r, "ticker"))

	var pos domain.PositionSnapshot
	if err := decodeJSON(r, &pos); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	pos.Ticker = ticker

	if pos.MarketValue < 0 {
		writeError(w, http.StatusBadRequest, "market_value must not be negative")
		return
	}
	if pos.Quantity < 0 {
		writeError(w, http.StatusBadRequest, "quantity must not be negative")
		return
	}
	if pos.Currency == "" {
		pos.Currency = domain.CurrencyEUR
	}

	if err := h.positions.Upsert(pos); err != nil {
		h.log.Error().Err(err).Str("ticker", ticker).Msg("Failed to upsert position")
		writeError(w, http.StatusInternalServerError, "failed to save position")
		return
	}

	h.publishChange(ticker, "upsert")
	writeJSON(w, http.StatusOK, pos)
}

// HandleDeletePosition removes a position
func (h *PortfolioHandlers) HandleDeletePosition(w http.ResponseWriter, r *http.Request) {
	ticker := normalizeTicker(chi.URLParam(r, "ticker"))

	removed, err := h.positions.Delete(ticker)
	if err != nil {
		h.log.Error().Err(err).Str("ticker", ticker).Msg("Failed to delete position")
		writeError(w, http.StatusInternalServerError, "failed to delete position")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "position not found")
		return
	}

	h.publishChange(ticker, "delete")
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "ticker": ticker})
}

// HandleSummary returns aggregate portfolio value figures.
func (h *PortfolioHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	positions, err := h.positions.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load positions")
		writeError(w, http.StatusInternalServerError, "failed to load positions")
		return
	}

	total := 0.0
	cash := 0.0
	for _, pos := range positions {
		total += pos.MarketValue
		if pos.IsCash() {
			cash += pos.MarketValue
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_value":    total,
		"position_value": total - cash,
		"cash_amount":    cash,
		"num_positions":  len(positions),
	})
}

func (h *PortfolioHandlers) publishChange(ticker, action string) {
	if h.bus == nil {
		return
	}
	h.bus.Publish(events.Event{
		Type:    events.EventPortfolioChanged,
		Payload: events.PortfolioChangedPayload{Ticker: ticker, Action: action},
	})
}

func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
