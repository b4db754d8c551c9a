package marketdata

import (
	"context"
	"math/rand"
	"time"

	"tradelab/internal/model"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Publisher drives a random-walk quote per active pair and pushes each tick
// onto the bus. Prices are simulated; there is no upstream feed.
type Publisher struct {
	bus      *Bus
	quotes   *Quotes
	log      *logrus.Logger
	interval time.Duration
	states   []*walkState
}

type walkState struct {
	symbol    string
	precision int32
	mid       float64
	seed      float64
	rng       *rand.Rand
}

// Half-spread as a fraction of the mid price.
const halfSpreadFrac = 0.0002

func NewPublisher(bus *Bus, quotes *Quotes, pairs []model.TradingPair, interval time.Duration, log *logrus.Logger) *Publisher {
	p := &Publisher{bus: bus, quotes: quotes, log: log, interval: interval}
	for _, pair := range pairs {
		if !pair.Active {
			continue
		}
		seed, _ := pair.SeedPrice.Float64()
		if seed <= 0 {
			continue
		}
		p.states = append(p.states, &walkState{
			symbol:    pair.Symbol,
			precision: int32(pair.Precision),
			mid:       seed,
			seed:      seed,
			rng:       rand.New(rand.NewSource(time.Now().UnixNano() + int64(len(p.states)))),
		})
	}
	return p
}

// Start publishes one tick immediately so quotes exist before the first
// interval elapses, then loops until ctx is done.
func (p *Publisher) Start(ctx context.Context) {
	p.tick()
	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.tick()
			case <-ctx.Done():
				p.log.Info("quote publisher stopped")
				return
			}
		}
	}()
	p.log.WithField("pairs", len(p.states)).Info("quote publisher started")
}

func (p *Publisher) tick() {
	for _, st := range p.states {
		st.step()
		mid := decimal.NewFromFloat(st.mid)
		half := mid.Mul(decimal.NewFromFloat(halfSpreadFrac))
		bid := mid.Sub(half).Round(st.precision)
		ask := mid.Add(half).Round(st.precision)
		quote := p.quotes.set(st.symbol, bid, ask)
		p.bus.Publish(Event{Type: "quote", Symbol: st.symbol, Data: quote})
	}
}

func (st *walkState) step() {
	// Random walk with a weak pull back to the seed so prices stay in a
	// plausible band over long sessions.
	drift := (st.seed - st.mid) * 0.001
	shock := (st.rng.Float64()*2 - 1) * st.seed * 0.0005
	st.mid += drift + shock
	if st.mid <= 0 {
		st.mid = st.seed
	}
}
