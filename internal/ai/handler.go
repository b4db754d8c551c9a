package ai

import (
	"net/http"

	"tradelab/internal/apperr"
	"tradelab/internal/httputil"
)

type Handler struct {
	client *Client
}

func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

// Commentary degrades instead of failing: with no upstream configured, or
// when the upstream call errors, the response is 200 with an error payload
// so the client can fall back gracefully.
func (h *Handler) Commentary(w http.ResponseWriter, r *http.Request, _ string) {
	var req CommentaryRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	if req.Symbol == "" {
		httputil.WriteError(w, apperr.Validation("symbol required"))
		return
	}
	if !h.client.Available() {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"error": "ai unavailable"})
		return
	}
	text, err := h.client.Commentary(r.Context(), req)
	if err != nil {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"error": "ai unavailable"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"commentary": text})
}
