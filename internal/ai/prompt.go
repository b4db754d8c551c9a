package ai

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a trading mentor reviewing simulated trades on an educational platform.
Explain price action in plain language, point out what a disciplined trader would watch,
and never give financial advice or predict guaranteed outcomes.`

type Candle struct {
	Time  int64  `json:"time"`
	Open  string `json:"open"`
	High  string `json:"high"`
	Low   string `json:"low"`
	Close string `json:"close"`
}

type CommentaryRequest struct {
	Symbol    string   `json:"symbol"`
	Timeframe string   `json:"timeframe"`
	Candles   []Candle `json:"candles,omitempty"`
	Note      string   `json:"note,omitempty"`
}

func buildUserPrompt(req CommentaryRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\nTimeframe: %s\n", req.Symbol, req.Timeframe)
	if len(req.Candles) > 0 {
		b.WriteString("Recent candles (time, open, high, low, close):\n")
		for _, c := range req.Candles {
			fmt.Fprintf(&b, "%d %s %s %s %s\n", c.Time, c.Open, c.High, c.Low, c.Close)
		}
	}
	if req.Note != "" {
		fmt.Fprintf(&b, "Student note: %s\n", req.Note)
	}
	b.WriteString("Give a short commentary on this chart for a student trader.")
	return b.String()
}
