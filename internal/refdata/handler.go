package refdata

import (
	"net/http"
	"strings"

	"tradelab/internal/httputil"
	"tradelab/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type Handler struct {
	store    *Store
	validate *validator.Validate
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store, validate: validator.New()}
}

func (h *Handler) ListPairs(w http.ResponseWriter, r *http.Request) {
	all := r.URL.Query().Get("all") == "true"
	pairs, err := h.store.ListPairs(r.Context(), !all)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if pairs == nil {
		pairs = []model.TradingPair{}
	}
	httputil.WriteJSON(w, http.StatusOK, pairs)
}

type upsertPairRequest struct {
	Symbol      string `json:"symbol" validate:"required,alphanum,min=6,max=10"`
	BaseAsset   string `json:"base_asset" validate:"required"`
	QuoteAsset  string `json:"quote_asset" validate:"required"`
	DisplayName string `json:"display_name" validate:"required"`
	Precision   int    `json:"precision" validate:"gte=0,lte=10"`
	SeedPrice   string `json:"seed_price" validate:"required"`
	Active      bool   `json:"active"`
}

func (h *Handler) UpsertPair(w http.ResponseWriter, r *http.Request) {
	var req upsertPairRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid pair payload"})
		return
	}
	seed, err := decimal.NewFromString(req.SeedPrice)
	if err != nil || seed.LessThanOrEqual(decimal.Zero) {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid seed_price"})
		return
	}
	pair, err := h.store.UpsertPair(r.Context(), model.TradingPair{
		Symbol:      strings.ToUpper(req.Symbol),
		BaseAsset:   strings.ToUpper(req.BaseAsset),
		QuoteAsset:  strings.ToUpper(req.QuoteAsset),
		DisplayName: req.DisplayName,
		Precision:   req.Precision,
		SeedPrice:   seed,
		Active:      req.Active,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pair)
}

func (h *Handler) DeletePair(w http.ResponseWriter, r *http.Request, symbol string) {
	if err := h.store.DeletePair(r.Context(), symbol); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListStrategyTypes(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.ListStrategyTypes(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if out == nil {
		out = []model.StrategyType{}
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

type createStrategyTypeRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=64"`
	Description string `json:"description" validate:"max=500"`
}

func (h *Handler) CreateStrategyType(w http.ResponseWriter, r *http.Request) {
	var req createStrategyTypeRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid strategy type payload"})
		return
	}
	st, err := h.store.CreateStrategyType(r.Context(), strings.TrimSpace(req.Name), strings.TrimSpace(req.Description))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, st)
}

func (h *Handler) DeleteStrategyType(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.DeleteStrategyType(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
