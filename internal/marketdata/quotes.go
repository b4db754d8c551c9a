package marketdata

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type Quote struct {
	Symbol    string          `json:"symbol"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	Spread    decimal.Decimal `json:"spread"`
	Timestamp int64           `json:"ts"`
}

// Quotes keeps the latest simulated bid/ask per symbol. It backs both the
// REST quote endpoint and position close-at-market.
type Quotes struct {
	mu   sync.RWMutex
	data map[string]Quote
}

func NewQuotes() *Quotes {
	return &Quotes{data: make(map[string]Quote)}
}

func (q *Quotes) set(symbol string, bid, ask decimal.Decimal) Quote {
	quote := Quote{
		Symbol:    symbol,
		Bid:       bid,
		Ask:       ask,
		Spread:    ask.Sub(bid),
		Timestamp: time.Now().UnixMilli(),
	}
	q.mu.Lock()
	q.data[symbol] = quote
	q.mu.Unlock()
	return quote
}

// Quote implements the quote source used by the paper-trading service.
func (q *Quotes) Quote(symbol string) (decimal.Decimal, decimal.Decimal, bool) {
	q.mu.RLock()
	quote, ok := q.data[symbol]
	q.mu.RUnlock()
	if !ok {
		return decimal.Zero, decimal.Zero, false
	}
	return quote.Bid, quote.Ask, true
}

func (q *Quotes) Snapshot(symbol string) (Quote, bool) {
	q.mu.RLock()
	quote, ok := q.data[symbol]
	q.mu.RUnlock()
	return quote, ok
}

func (q *Quotes) All() []Quote {
	q.mu.RLock()
	out := make([]Quote, 0, len(q.data))
	for _, quote := range q.data {
		out = append(out, quote)
	}
	q.mu.RUnlock()
	return out
}
