package trades

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"tradelab/internal/apperr"
	"tradelab/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu     sync.Mutex
	trades map[string]model.Trade
}

func newMemStore() *memStore {
	return &memStore{trades: make(map[string]model.Trade)}
}

func (m *memStore) Create(_ context.Context, t model.Trade) (model.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	m.trades[t.ID] = t
	return t, nil
}

func (m *memStore) Get(_ context.Context, userID, tradeID string) (model.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trades[tradeID]
	if !ok || t.UserID != userID {
		return model.Trade{}, apperr.NotFound("trade")
	}
	return t, nil
}

func (m *memStore) List(_ context.Context, userID string) ([]model.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Trade
	for _, t := range m.trades {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) Update(_ context.Context, t model.Trade) (model.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.trades[t.ID]
	if !ok || existing.UserID != t.UserID {
		return model.Trade{}, apperr.NotFound("trade")
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	m.trades[t.ID] = t
	return t, nil
}

func (m *memStore) Delete(_ context.Context, userID, tradeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trades[tradeID]
	if !ok || t.UserID != userID {
		return apperr.NotFound("trade")
	}
	delete(m.trades, tradeID)
	return nil
}

const validTrade = `{
	"pair_symbol": "eurusd",
	"strategy_type": "Breakout",
	"direction": "long",
	"entry_price": "1.0850",
	"exit_price": "1.0900",
	"size": "10000",
	"profit_loss": "50",
	"outcome": "win",
	"entry_date": "2024-03-01T09:30:00Z",
	"exit_date": "2024-03-01T11:00:00Z"
}`

func TestCreateTrade(t *testing.T) {
	h := NewHandler(newMemStore())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/trades", strings.NewReader(validTrade))
	h.Create(rr, req, "u1")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"EURUSD"`)
}

func TestCreateTradeRejectsBadPayloads(t *testing.T) {
	h := NewHandler(newMemStore())
	tests := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"bad direction", strings.Replace(validTrade, `"long"`, `"hold"`, 1)},
		{"float-ish garbage price", strings.Replace(validTrade, `"1.0850"`, `"1.08.50"`, 1)},
		{"negative size", strings.Replace(validTrade, `"10000"`, `"-1"`, 1)},
		{"bad date", strings.Replace(validTrade, `"2024-03-01T09:30:00Z"`, `"yesterday"`, 1)},
		{"bad outcome", strings.Replace(validTrade, `"win"`, `"draw"`, 1)},
		{"unknown field", `{"pair_symbol":"EURUSD","hack":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/trades", strings.NewReader(tt.body))
			h.Create(rr, req, "u1")
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
		})
	}
}

func TestTradeOwnershipScoping(t *testing.T) {
	store := newMemStore()
	h := NewHandler(store)

	created, err := store.Create(context.Background(), model.Trade{UserID: "owner", PairSymbol: "EURUSD"})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/trades/"+created.ID, nil)
	h.Get(rr, req, "someone-else", created.ID)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/trades/"+created.ID, nil)
	h.Delete(rr, req, "someone-else", created.ID)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/trades/"+created.ID, nil)
	h.Get(rr, req, "owner", created.ID)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestUpdateAndDeleteTrade(t *testing.T) {
	store := newMemStore()
	h := NewHandler(store)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/trades", strings.NewReader(validTrade))
	h.Create(rr, req, "u1")
	require.Equal(t, http.StatusCreated, rr.Code)

	var id string
	for k := range store.trades {
		id = k
	}

	updated := strings.Replace(validTrade, `"win"`, `"loss"`, 1)
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/api/trades/"+id, strings.NewReader(updated))
	h.Update(rr, req, "u1", id)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"loss"`)

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/trades/"+id, nil)
	h.Delete(rr, req, "u1", id)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/trades", nil)
	h.List(rr, req, "u1")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]\n", rr.Body.String())
}
