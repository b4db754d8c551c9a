package marketdata

import (
	"net/http"
	"strings"

	"tradelab/internal/httputil"
)

type Handler struct {
	quotes *Quotes
}

func NewHandler(quotes *Quotes) *Handler {
	return &Handler{quotes: quotes}
}

func (h *Handler) GetQuotes(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if symbol == "" {
		httputil.WriteJSON(w, http.StatusOK, h.quotes.All())
		return
	}
	quote, ok := h.quotes.Snapshot(symbol)
	if !ok {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "no quote for " + symbol})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, quote)
}
