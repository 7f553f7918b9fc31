package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/vekfolio/riskengine/internal/marketdata"
)

// PricesHandlers handles market data endpoints
type PricesHandlers struct {
	prices  *marketdata.Repository
	syncJob *marketdata.SyncJob
	log     zerolog.Logger
}

// NewPricesHandlers creates new market data handlers
func NewPricesHandlers(prices *marketdata.Repository, syncJob *marketdata.SyncJob, log zerolog.Logger) *PricesHandlers {
	return &PricesHandlers{
		prices:  prices,
		syncJob: syncJob,
		log:     log.With().Str("handlers", "prices").Logger(),
	}
}

// RegisterRoutes registers market data routes
func (h *PricesHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/prices", func(r chi.Router) {
		r.Get("/tickers", h.HandleTickers)
		r.Get("/{ticker}", h.HandleSeries)
		r.Post("/sync", h.HandleSync)
	})
}

// HandleTickers lists all tickers with stored history.
func (h *PricesHandlers) HandleTickers(w http.ResponseWriter, r *http.Request) {
	tickers, err := h.prices.Tickers()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list tickers")
		writeError(w, http.StatusInternalServerError, "failed to list tickers")
		return
	}
	if tickers == nil {
		tickers = []string{}
	}
	writeJSON(w, http.StatusOK, tickers)
}

// HandleSeries returns the stored daily close series for one ticker.
func (h *PricesHandlers) HandleSeries(w http.ResponseWriter, r *http.Request) {
	ticker := normalizeTicker(chi.URLParam(r, "ticker"))

	series, err := h.prices.GetSeries(ticker)
	if err != nil {
		h.log.Error().Err(err).Str("ticker", ticker).Msg("Failed to load price series")
		writeError(w, http.StatusInternalServerError, "failed to load price series")
		return
	}
	if len(series.Points) == 0 {
		writeError(w, http.StatusNotFound, "no price history for "+ticker)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// HandleSync triggers an immediate price sync. The sync runs synchronously
// within the request so the caller sees failures directly.
func (h *PricesHandlers) HandleSync(w http.ResponseWriter, r *http.Request) {
	if h.syncJob == nil {
		writeError(w, http.StatusServiceUnavailable, "price sync is not configured")
		return
	}

	if err := h.syncJob.Sync(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("Manual price sync failed")
		writeError(w, http.StatusBadGateway, "price sync failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "synced"})
}
