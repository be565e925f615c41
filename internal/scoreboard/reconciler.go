package scoreboard

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"refund-billing-service/internal/models"
	"refund-billing-service/internal/repository"
)

// DefaultBatchSize is the page size for the reconciliation scan.
const DefaultBatchSize = 500

// ReconcileOptions controls a reconciliation run.
type ReconcileOptions struct {
	// MerchantID limits the rebuild to one merchant. Empty rebuilds all.
	MerchantID string
	// DryRun computes and logs the rebuilt scoreboards without writing.
	DryRun bool
	// BatchSize overrides the scan page size. Zero means DefaultBatchSize.
	BatchSize int
}

// Reconciler rebuilds scoreboards from refund records. It is the recovery path
// for incremental drift (missed events, duplicate counts) and is safe to run
// any number of times and concurrently with live traffic: it reads a
// consistent-enough snapshot and merge-writes whole documents, accepting that
// it may slightly race in-flight increments.
type Reconciler struct {
	refunds     repository.RefundRepositoryInterface
	scoreboards repository.ScoreboardRepositoryInterface
	log         *logrus.Entry
}

// NewReconciler creates a new reconciler
func NewReconciler(refunds repository.RefundRepositoryInterface, scoreboards repository.ScoreboardRepositoryInterface, logger *logrus.Logger) *Reconciler {
	return &Reconciler{
		refunds:     refunds,
		scoreboards: scoreboards,
		log:         logger.WithField("component", "scoreboard.reconciler"),
	}
}

// Reconcile scans refund records in keyset-paginated batches, buckets them by
// merchant and status, and overwrites every touched scoreboard.
func (r *Reconciler) Reconcile(ctx context.Context, opts ReconcileOptions) (*models.ReconcileSummary, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	rebuilt := make(map[string]*models.Scoreboard)
	summary := &models.ReconcileSummary{DryRun: opts.DryRun}

	afterID := uuid.Nil
	for {
		page, err := r.refunds.ScanPage(ctx, afterID, opts.MerchantID, batchSize)
		if err != nil {
			return nil, fmt.Errorf("scan failed after id %s: %w", afterID, err)
		}
		if len(page) == 0 {
			break
		}

		for i := range page {
			if err := r.bucket(rebuilt, &page[i], summary); err != nil {
				r.log.WithError(err).WithField("refund_id", page[i].ID).Warn("Skipping unclassifiable refund")
			}
		}

		summary.Refunds += len(page)
		afterID = page[len(page)-1].ID
		if len(page) < batchSize {
			break
		}
	}

	summary.Merchants = len(rebuilt)

	// Deterministic write order keeps repeated runs byte-for-byte identical in
	// their logs and makes partial failures easier to resume.
	merchantIDs := make([]string, 0, len(rebuilt))
	for id := range rebuilt {
		merchantIDs = append(merchantIDs, id)
	}
	sort.Strings(merchantIDs)

	for _, merchantID := range merchantIDs {
		board := rebuilt[merchantID]
		entry := r.log.WithFields(logrus.Fields{
			"merchant_id":      merchantID,
			"total_refunds":    board.TotalRefundsCount,
			"active_liability": board.ActiveLiabilityAmount,
			"settled":          board.TotalSettledAmount,
			"stuck":            board.StuckAmount,
			"failed":           board.FailedCount,
		})

		if opts.DryRun {
			entry.Info("Reconcile (dry run): computed scoreboard")
			continue
		}

		if err := r.scoreboards.Overwrite(ctx, board); err != nil {
			return summary, fmt.Errorf("failed to overwrite scoreboard for %s: %w", merchantID, err)
		}
		summary.Written++
		entry.Info("Reconcile: scoreboard rebuilt")
	}

	return summary, nil
}

// bucket folds one refund record into its merchant's rebuilt scoreboard.
func (r *Reconciler) bucket(rebuilt map[string]*models.Scoreboard, refund *models.RefundRecord, summary *models.ReconcileSummary) error {
	board, ok := rebuilt[refund.MerchantID]
	if !ok {
		board = &models.Scoreboard{MerchantID: refund.MerchantID}
		rebuilt[refund.MerchantID] = board
	}

	status := refund.Status
	if !isKnownStatus(status) {
		normalized, err := models.NormalizeRefundStatus(string(status))
		if err != nil {
			return fmt.Errorf("refund %s: %w", refund.ID, err)
		}
		status = normalized
		summary.Normalized++
	}

	switch status {
	case models.RefundVoid:
		// Voided refunds contribute to no bucket and no count.
	case models.RefundSettled:
		board.TotalRefundsCount++
		board.TotalSettledAmount += refund.Amount
	case models.RefundFailed:
		board.TotalRefundsCount++
		board.StuckAmount += refund.Amount
		board.FailedCount++
	default:
		// Gathering, initiated and processing refunds are open liability.
		board.TotalRefundsCount++
		board.ActiveLiabilityAmount += refund.Amount
	}
	return nil
}

func isKnownStatus(s models.RefundStatus) bool {
	switch s {
	case models.RefundGathering, models.RefundInitiated, models.RefundProcessing,
		models.RefundSettled, models.RefundFailed, models.RefundVoid:
		return true
	}
	return false
}
