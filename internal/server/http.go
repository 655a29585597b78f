// Package server exposes the engine's computed views over HTTP/JSON.
// Fixed-point fields are rendered as decimal strings so consumers never see
// raw scaled integers.
package server

import (
	"BasketEngine/internal/invalidate"
	"BasketEngine/internal/ledgererr"
	"BasketEngine/internal/observability"
	"BasketEngine/internal/reconcile"
	"BasketEngine/internal/refresh"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Deps holds the collaborators the HTTP surface needs. Publisher and
// Metrics may be nil.
type Deps struct {
	Worker    *refresh.Worker
	Bus       *invalidate.Bus
	Publisher *invalidate.Publisher
	Health    *observability.HealthChecker
	Metrics   *observability.Metrics
	Logger    zerolog.Logger
}

// Server serves the latest views held by the refresh worker and accepts
// invalidation signals from the application layer.
type Server struct {
	deps Deps
	http *http.Server
}

func New(addr string, deps Deps) *Server {
	s := &Server{deps: deps}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/baskets/{address}/view", s.handleView)
	mux.HandleFunc("POST /v1/invalidate", s.handleInvalidate)
	mux.HandleFunc("POST /v1/classify-error", s.handleClassifyError)
	mux.HandleFunc("GET /healthz", deps.Health.LivenessHandler)
	mux.HandleFunc("GET /readyz", deps.Health.ReadinessHandler)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run serves until the context ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.http.Shutdown(shutdownCtx)
	}()

	s.deps.Logger.Info().Str("addr", s.http.Addr).Msg("http server listening")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	basketAddr := r.PathValue("address")
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		httpError(w, http.StatusBadRequest, "owner query parameter required")
		return
	}

	view, ok := s.deps.Worker.View(basketAddr, owner)
	if !ok {
		httpError(w, http.StatusNotFound, "no view for basket/owner")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(toViewResponse(view)); err != nil {
		s.deps.Logger.Warn().Err(err).Msg("encode view response")
	}
}

type invalidateRequest struct {
	Kind   invalidate.Kind `json:"kind"`
	Basket string          `json:"basket"`
	Owner  string          `json:"owner"`
}

// handleInvalidate lets the application layer report a completed action so
// every engine instance re-fetches. Local broadcast always happens; the
// NATS fan-out is best effort.
func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "malformed body")
		return
	}
	if !invalidate.ValidKind(req.Kind) {
		httpError(w, http.StatusBadRequest, "unknown signal kind")
		return
	}

	sig := invalidate.NewSignal(req.Kind, req.Basket, req.Owner)
	s.deps.Bus.Publish(sig)

	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.Publish(sig); err != nil {
			s.deps.Logger.Warn().Err(err).Str("kind", string(sig.Kind)).Msg("nats invalidation publish failed")
		}
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.SignalsPublished.WithLabelValues(string(sig.Kind)).Inc()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"id": sig.ID.String()})
}

type classifyRequest struct {
	Message string   `json:"message"`
	Logs    []string `json:"logs"`
}

type classifyResponse struct {
	Category    string `json:"category"`
	UserMessage string `json:"user_message"`
	Detail      string `json:"detail,omitempty"`
}

// handleClassifyError turns a raw ledger submission failure into a
// user-presentable category and message.
func (s *Server) handleClassifyError(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "malformed body")
		return
	}

	result := ledgererr.Classify(&ledgererr.SubmissionError{
		Message: req.Message,
		Logs:    req.Logs,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(classifyResponse{
		Category:    result.Category.String(),
		UserMessage: result.UserMessage,
		Detail:      result.Detail,
	})
}

func httpError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// --- response types ---

type AssetResponse struct {
	Ticker        string `json:"ticker"`
	Name          string `json:"name"`
	IsLong        bool   `json:"is_long"`
	TargetWeight  string `json:"target_weight_pct"`
	CurrentWeight string `json:"current_weight_pct,omitempty"`
	BaselinePrice string `json:"baseline_price"`
	CurrentPrice  string `json:"current_price,omitempty"`
}

type PositionResponse struct {
	Address          string  `json:"address"`
	IsLong           bool    `json:"is_long"`
	Size             string  `json:"size"`
	UsdcSize         string  `json:"usdc_size"`
	EntryPrice       string  `json:"entry_price"`
	Collateral       string  `json:"collateral"`
	PnL              string  `json:"pnl"`
	PnLPercent       *string `json:"pnl_pct"` // null when collateral is zero
	Profitable       bool    `json:"profitable"`
	LiquidationPrice string  `json:"liquidation_price"`
	Fee              string  `json:"fee"`
}

type OrderResponse struct {
	Address     string  `json:"address"`
	Action      string  `json:"action"`
	Type        string  `json:"type"`
	Status      string  `json:"status"`
	DisplaySize *string `json:"display_size"` // null when unattributable
	MatchedBy   string  `json:"matched_by"`
	Confidence  string  `json:"confidence"`
	Ambiguous   bool    `json:"ambiguous"`
}

type ViewResponse struct {
	Basket      string             `json:"basket"`
	Name        string             `json:"name"`
	Price       string             `json:"price"`
	IsActive    bool               `json:"is_active"`
	Assets      []AssetResponse    `json:"assets"`
	Positions   []PositionResponse `json:"positions"`
	Orders      []OrderResponse    `json:"orders"`
	AsOfSlot    int64              `json:"as_of_slot"`
	RefreshedAt time.Time          `json:"refreshed_at"`
}

// usd renders a usdc/price/qty scaled value as a decimal string.
func usd(v int64) string {
	return decimal.New(v, -6).String()
}

// pct renders a weight-scale fraction as a percent string.
func pct(w int64) string {
	return decimal.New(w, -4).String()
}

func toViewResponse(view *refresh.BasketView) ViewResponse {
	resp := ViewResponse{
		Basket:      view.Basket.Address,
		Name:        view.Basket.Name,
		Price:       usd(view.Basket.Price),
		IsActive:    view.Basket.IsActive,
		AsOfSlot:    view.AsOfSlot,
		RefreshedAt: view.RefreshedAt,
	}

	for i, a := range view.Basket.Assets {
		ar := AssetResponse{
			Ticker:        a.Ticker,
			Name:          a.Name,
			IsLong:        a.IsLong,
			TargetWeight:  pct(a.TargetWeight),
			BaselinePrice: usd(a.BaselinePrice),
		}
		if a.CurrentPrice > 0 {
			ar.CurrentPrice = usd(a.CurrentPrice)
		}
		if i < len(view.CurrentWeights) {
			ar.CurrentWeight = pct(view.CurrentWeights[i])
		}
		resp.Assets = append(resp.Assets, ar)
	}

	for _, pv := range view.Positions {
		pr := PositionResponse{
			Address:          pv.Position.Address,
			IsLong:           pv.Position.IsLong,
			Size:             usd(pv.Position.Size),
			UsdcSize:         usd(pv.Position.UsdcSize),
			EntryPrice:       usd(pv.Position.EntryPrice),
			Collateral:       usd(pv.Position.Collateral),
			PnL:              usd(pv.PnL.Value),
			Profitable:       pv.PnL.Profitable,
			LiquidationPrice: usd(pv.LiquidationPrice),
			Fee:              usd(pv.Fee),
		}
		if pv.PnL.PercentDefined {
			p := decimal.New(pv.PnL.Percent, -2).String()
			pr.PnLPercent = &p
		}
		resp.Positions = append(resp.Positions, pr)
	}

	for _, ov := range view.Orders {
		or := OrderResponse{
			Address:    ov.Order.Address,
			Action:     ov.Order.Action.String(),
			Type:       ov.Order.Type.String(),
			Status:     ov.Order.Status.String(),
			MatchedBy:  ov.Attribution.Rule.String(),
			Confidence: ov.Attribution.Confidence.String(),
			Ambiguous:  ov.Attribution.Confidence == reconcile.ConfidenceHeuristic,
		}
		if ov.Attribution.Attributed {
			v := usd(ov.Attribution.UsdcSize)
			or.DisplaySize = &v
		}
		resp.Orders = append(resp.Orders, or)
	}

	return resp
}
