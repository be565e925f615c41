package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"refund-billing-service/internal/models"
)

// ScoreboardRepositoryInterface defines scoreboard persistence operations
type ScoreboardRepositoryInterface interface {
	ApplyDelta(ctx context.Context, merchantID string, delta models.ScoreboardDelta) error
	Get(ctx context.Context, merchantID string) (*models.Scoreboard, error)
	Overwrite(ctx context.Context, scoreboard *models.Scoreboard) error
}

// ScoreboardRepository handles scoreboard data operations
type ScoreboardRepository struct {
	db *gorm.DB
}

var _ ScoreboardRepositoryInterface = (*ScoreboardRepository)(nil)

// NewScoreboardRepository creates a new scoreboard repository
func NewScoreboardRepository(db *gorm.DB) *ScoreboardRepository {
	return &ScoreboardRepository{db: db}
}

// ApplyDelta applies field increments atomically in a single statement. The
// row is created on first use via upsert, so concurrent refund updates from
// multiple sessions never race a read-modify-write cycle.
func (r *ScoreboardRepository) ApplyDelta(ctx context.Context, merchantID string, delta models.ScoreboardDelta) error {
	now := time.Now()
	row := models.Scoreboard{
		MerchantID:            merchantID,
		TotalRefundsCount:     delta.TotalRefundsCount,
		ActiveLiabilityAmount: delta.ActiveLiabilityAmount,
		TotalSettledAmount:    delta.TotalSettledAmount,
		StuckAmount:           delta.StuckAmount,
		FailedCount:           delta.FailedCount,
		LastUpdated:           now,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "merchant_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_refunds_count":     gorm.Expr("merchant_scoreboards.total_refunds_count + ?", delta.TotalRefundsCount),
			"active_liability_amount": gorm.Expr("merchant_scoreboards.active_liability_amount + ?", delta.ActiveLiabilityAmount),
			"total_settled_amount":    gorm.Expr("merchant_scoreboards.total_settled_amount + ?", delta.TotalSettledAmount),
			"stuck_amount":            gorm.Expr("merchant_scoreboards.stuck_amount + ?", delta.StuckAmount),
			"failed_count":            gorm.Expr("merchant_scoreboards.failed_count + ?", delta.FailedCount),
			"last_updated":            now,
		}),
	}).Create(&row).Error
}

// Get gets the scoreboard for a merchant. A merchant with no refund history
// yet gets an empty scoreboard rather than an error.
func (r *ScoreboardRepository) Get(ctx context.Context, merchantID string) (*models.Scoreboard, error) {
	var scoreboard models.Scoreboard
	err := r.db.WithContext(ctx).First(&scoreboard, "merchant_id = ?", merchantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.Scoreboard{MerchantID: merchantID}, nil
		}
		return nil, err
	}
	return &scoreboard, nil
}

// Overwrite merge-writes a full scoreboard document. Used only by the
// reconciliation job, which recomputes every field from source records.
func (r *ScoreboardRepository) Overwrite(ctx context.Context, scoreboard *models.Scoreboard) error {
	scoreboard.LastUpdated = time.Now()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "merchant_id"}},
		UpdateAll: true,
	}).Create(scoreboard).Error
}
