package types

type PositionSide string

type PositionStatus string

type TradeDirection string

type TradeOutcome string

const (
	PositionSideLong  PositionSide = "long"
	PositionSideShort PositionSide = "short"
)

const (
	PositionStatusActive PositionStatus = "active"
	PositionStatusClosed PositionStatus = "closed"
)

const (
	TradeDirectionLong  TradeDirection = "long"
	TradeDirectionShort TradeDirection = "short"
)

const (
	TradeOutcomeWin       TradeOutcome = "win"
	TradeOutcomeLoss      TradeOutcome = "loss"
	TradeOutcomeBreakeven TradeOutcome = "breakeven"
)

func (s PositionSide) Valid() bool {
	return s == PositionSideLong || s == PositionSideShort
}

func (d TradeDirection) Valid() bool {
	return d == TradeDirectionLong || d == TradeDirectionShort
}

func (o TradeOutcome) Valid() bool {
	return o == TradeOutcomeWin || o == TradeOutcomeLoss || o == TradeOutcomeBreakeven
}
