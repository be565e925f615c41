package models

import (
	"errors"
	"time"
)

var ErrUnknownScoreboardEvent = errors.New("unknown scoreboard event type")

// ScoreboardEvent identifies a refund lifecycle event applied to the scoreboard
type ScoreboardEvent string

const (
	EventNewRefund    ScoreboardEvent = "NEW_REFUND"
	EventSettleRefund ScoreboardEvent = "SETTLE_REFUND"
	EventFailRefund   ScoreboardEvent = "FAIL_REFUND"
	EventVoidRefund   ScoreboardEvent = "VOID_REFUND"
)

// Scoreboard is the denormalized per-merchant usage/liability summary. It
// exists so the dashboard can answer "how many refunds, how much outstanding"
// in O(1) without scanning refund_records. It is advisory: billing-critical
// figures come from range queries, and the reconciliation job rebuilds it from
// source records.
type Scoreboard struct {
	MerchantID string `gorm:"type:varchar(128);primaryKey" json:"merchantId"`

	TotalRefundsCount     int64   `gorm:"not null;default:0" json:"totalRefundsCount"`
	ActiveLiabilityAmount float64 `gorm:"type:decimal(14,2);not null;default:0" json:"activeLiabilityAmount"`
	TotalSettledAmount    float64 `gorm:"type:decimal(14,2);not null;default:0" json:"totalSettledAmount"`
	StuckAmount           float64 `gorm:"type:decimal(14,2);not null;default:0" json:"stuckAmount"`
	FailedCount           int64   `gorm:"not null;default:0" json:"failedCount"`

	LastUpdated time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"lastUpdated"`
}

// TableName specifies the table name for Scoreboard
func (Scoreboard) TableName() string {
	return "merchant_scoreboards"
}

// ScoreboardDelta is the set of field adjustments a single event produces.
// Every field is applied as an atomic in-database increment.
type ScoreboardDelta struct {
	TotalRefundsCount     int64
	ActiveLiabilityAmount float64
	TotalSettledAmount    float64
	StuckAmount           float64
	FailedCount           int64
}

// DeltaForEvent translates a refund lifecycle event into field increments.
func DeltaForEvent(event ScoreboardEvent, amount float64) (ScoreboardDelta, error) {
	switch event {
	case EventNewRefund:
		return ScoreboardDelta{TotalRefundsCount: 1, ActiveLiabilityAmount: amount}, nil
	case EventSettleRefund:
		return ScoreboardDelta{ActiveLiabilityAmount: -amount, TotalSettledAmount: amount}, nil
	case EventFailRefund:
		return ScoreboardDelta{ActiveLiabilityAmount: -amount, StuckAmount: amount, FailedCount: 1}, nil
	case EventVoidRefund:
		return ScoreboardDelta{ActiveLiabilityAmount: -amount, TotalRefundsCount: -1}, nil
	}
	return ScoreboardDelta{}, ErrUnknownScoreboardEvent
}
