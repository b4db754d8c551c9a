package paper

import (
	"net/http"
	"strings"

	"tradelab/internal/httputil"
	"tradelab/internal/model"
	"tradelab/internal/types"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

// Monetary fields arrive as strings and are parsed into decimals before any
// domain call; float64 never touches money.
type openPositionRequest struct {
	Symbol     string `json:"symbol" validate:"required"`
	Side       string `json:"side" validate:"required,oneof=long short"`
	EntryPrice string `json:"entry_price" validate:"required"`
	Amount     string `json:"amount" validate:"required"`
	Leverage   string `json:"leverage" validate:"required"`
	StopLoss   string `json:"stop_loss,omitempty" validate:"omitempty"`
	TakeProfit string `json:"take_profit,omitempty" validate:"omitempty"`
}

type closePositionRequest struct {
	ExitPrice string `json:"exit_price,omitempty"`
}

func (h *Handler) Account(w http.ResponseWriter, r *http.Request, userID string) {
	view, err := h.svc.Account(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) Open(w http.ResponseWriter, r *http.Request, userID string) {
	var req openPositionRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid position payload"})
		return
	}
	entry, err := decimal.NewFromString(req.EntryPrice)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid entry_price"})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid amount"})
		return
	}
	leverage, err := decimal.NewFromString(req.Leverage)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid leverage"})
		return
	}
	var stopLoss, takeProfit *decimal.Decimal
	if req.StopLoss != "" {
		v, err := decimal.NewFromString(req.StopLoss)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid stop_loss"})
			return
		}
		stopLoss = &v
	}
	if req.TakeProfit != "" {
		v, err := decimal.NewFromString(req.TakeProfit)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid take_profit"})
			return
		}
		takeProfit = &v
	}

	pos, err := h.svc.OpenPosition(r.Context(), userID, OpenRequest{
		Symbol:     strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Side:       types.PositionSide(req.Side),
		EntryPrice: entry,
		Amount:     amount,
		Leverage:   leverage,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, pos)
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request, userID, positionID string) {
	var req closePositionRequest
	if r.ContentLength != 0 {
		if err := httputil.ReadJSON(r, &req); err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
			return
		}
	}
	var exitPrice *decimal.Decimal
	if req.ExitPrice != "" {
		v, err := decimal.NewFromString(req.ExitPrice)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid exit_price"})
			return
		}
		exitPrice = &v
	}
	pos, err := h.svc.ClosePosition(r.Context(), userID, positionID, exitPrice)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pos)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request, userID string) {
	status := types.PositionStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	positions, err := h.svc.ListPositions(r.Context(), userID, status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if positions == nil {
		positions = []model.Position{}
	}
	httputil.WriteJSON(w, http.StatusOK, positions)
}
