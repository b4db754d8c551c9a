package trades

import (
	"net/http"
	"strings"
	"time"

	"tradelab/internal/httputil"
	"tradelab/internal/model"
	"tradelab/internal/types"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type Handler struct {
	store    Store
	validate *validator.Validate
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store, validate: validator.New()}
}

type tradeRequest struct {
	PairSymbol   string `json:"pair_symbol" validate:"required"`
	StrategyType string `json:"strategy_type" validate:"required"`
	Direction    string `json:"direction" validate:"required,oneof=long short"`
	EntryPrice   string `json:"entry_price" validate:"required"`
	ExitPrice    string `json:"exit_price,omitempty"`
	Size         string `json:"size" validate:"required"`
	ProfitLoss   string `json:"profit_loss,omitempty"`
	Outcome      string `json:"outcome,omitempty" validate:"omitempty,oneof=win loss breakeven"`
	Session      string `json:"session,omitempty" validate:"max=64"`
	Notes        string `json:"notes,omitempty" validate:"max=5000"`
	EntryDate    string `json:"entry_date" validate:"required"`
	ExitDate     string `json:"exit_date,omitempty"`
}

func (h *Handler) parse(req tradeRequest, userID string) (model.Trade, string) {
	t := model.Trade{
		UserID:       userID,
		PairSymbol:   strings.ToUpper(strings.TrimSpace(req.PairSymbol)),
		StrategyType: strings.TrimSpace(req.StrategyType),
		Direction:    types.TradeDirection(req.Direction),
		Session:      strings.TrimSpace(req.Session),
		Notes:        req.Notes,
	}
	entry, err := decimal.NewFromString(req.EntryPrice)
	if err != nil || entry.LessThanOrEqual(decimal.Zero) {
		return t, "invalid entry_price"
	}
	t.EntryPrice = entry
	size, err := decimal.NewFromString(req.Size)
	if err != nil || size.LessThanOrEqual(decimal.Zero) {
		return t, "invalid size"
	}
	t.Size = size
	if req.ExitPrice != "" {
		v, err := decimal.NewFromString(req.ExitPrice)
		if err != nil || v.LessThanOrEqual(decimal.Zero) {
			return t, "invalid exit_price"
		}
		t.ExitPrice = &v
	}
	if req.ProfitLoss != "" {
		v, err := decimal.NewFromString(req.ProfitLoss)
		if err != nil {
			return t, "invalid profit_loss"
		}
		t.ProfitLoss = &v
	}
	if req.Outcome != "" {
		o := types.TradeOutcome(req.Outcome)
		t.Outcome = &o
	}
	entryDate, err := time.Parse(time.RFC3339, req.EntryDate)
	if err != nil {
		return t, "invalid entry_date, expected RFC3339"
	}
	t.EntryDate = entryDate.UTC()
	if req.ExitDate != "" {
		v, err := time.Parse(time.RFC3339, req.ExitDate)
		if err != nil {
			return t, "invalid exit_date, expected RFC3339"
		}
		vv := v.UTC()
		t.ExitDate = &vv
	}
	return t, ""
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request, userID string) {
	var req tradeRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid trade payload"})
		return
	}
	t, msg := h.parse(req, userID)
	if msg != "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: msg})
		return
	}
	created, err := h.store.Create(r.Context(), t)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request, userID string) {
	out, err := h.store.List(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if out == nil {
		out = []model.Trade{}
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request, userID, tradeID string) {
	t, err := h.store.Get(r.Context(), userID, tradeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request, userID, tradeID string) {
	var req tradeRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid trade payload"})
		return
	}
	t, msg := h.parse(req, userID)
	if msg != "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: msg})
		return
	}
	t.ID = tradeID
	updated, err := h.store.Update(r.Context(), t)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, userID, tradeID string) {
	if err := h.store.Delete(r.Context(), userID, tradeID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
