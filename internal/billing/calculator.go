package billing

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"refund-billing-service/internal/models"
)

// UsageSource provides the billable refund count for a cycle window. Usage for
// billing purposes is always a windowed range query over refund records
// (createdAt >= cycle start, voids excluded); the scoreboard counter is a
// display convenience and is never consulted here.
type UsageSource interface {
	CountBillableRefunds(ctx context.Context, merchantID string, since time.Time) (int64, error)
}

// Calculator combines the plan catalog, usage source and tax calculator to
// produce the amounts owed at renewal, upgrade and downgrade time.
type Calculator struct {
	catalog *Catalog
	usage   UsageSource
	log     *logrus.Entry
}

// NewCalculator creates a billing calculator.
func NewCalculator(catalog *Catalog, usage UsageSource, logger *logrus.Logger) *Calculator {
	return &Calculator{
		catalog: catalog,
		usage:   usage,
		log:     logger.WithField("component", "billing.calculator"),
	}
}

// CycleCharge is the fully broken-down amount due for a cycle renewal.
type CycleCharge struct {
	Plan         Plan
	Usage        int64
	OverageCount int64
	OverageFee   float64
	Bill         BillBreakdown
	CycleStart   time.Time
	CycleEnd     time.Time
}

// RenewalDue computes the GST-inclusive amount owed for the merchant's current
// cycle: base price plus overage beyond the plan allowance. Usage exactly at
// the allowance produces no overage.
func (c *Calculator) RenewalDue(ctx context.Context, merchant *models.Merchant) (*CycleCharge, error) {
	plan, err := c.catalog.Lookup(merchant.PlanType)
	if err != nil {
		return nil, err
	}

	cycleStart := merchant.CycleStart()
	usage, err := c.usage.CountBillableRefunds(ctx, merchant.ID, cycleStart)
	if err != nil {
		return nil, fmt.Errorf("failed to count cycle usage: %w", err)
	}

	overageCount := usage - plan.IncludedRefunds
	if overageCount < 0 {
		overageCount = 0
	}
	overageFee := float64(overageCount) * plan.ExcessRate

	return &CycleCharge{
		Plan:         plan,
		Usage:        usage,
		OverageCount: overageCount,
		OverageFee:   overageFee,
		Bill:         CalculateFinalBill(plan.BasePrice + overageFee),
		CycleStart:   cycleStart,
		CycleEnd:     merchant.CycleEnd(),
	}, nil
}

// ProrationCharge is the GST-inclusive amount due for a mid-cycle upgrade.
type ProrationCharge struct {
	CurrentPlan   Plan
	TargetPlan    Plan
	RemainingDays int64
	Bill          BillBreakdown
}

// UpgradeProration computes the immediate charge for switching to a
// higher-priced plan mid-cycle. Downgrades never produce a charge; callers
// should schedule them with ScheduleDowngrade instead.
func (c *Calculator) UpgradeProration(merchant *models.Merchant, target models.PlanType, now time.Time) (*ProrationCharge, error) {
	current, err := c.catalog.Lookup(merchant.PlanType)
	if err != nil {
		return nil, err
	}
	targetPlan, err := c.catalog.Lookup(target)
	if err != nil {
		return nil, err
	}

	diff := targetPlan.BasePrice - current.BasePrice
	if diff <= 0 {
		return nil, fmt.Errorf("plan %s is not an upgrade from %s", target, merchant.PlanType)
	}

	remaining := merchant.CycleEnd().Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	remainingDays := int64(math.Ceil(remaining.Hours() / 24))

	prorated := diff / 30 * float64(remainingDays)

	return &ProrationCharge{
		CurrentPlan:   current,
		TargetPlan:    targetPlan,
		RemainingDays: remainingDays,
		Bill:          CalculateFinalBill(prorated),
	}, nil
}

// ScheduledDowngrade records when a lower-priced plan takes effect.
type ScheduledDowngrade struct {
	TargetPlan    Plan
	EffectiveDate time.Time
}

// ScheduleDowngrade validates a downgrade and returns the plan change to be
// applied at the next cycle boundary. No charge is produced now; the gateway
// bills the new plan at renewal.
func (c *Calculator) ScheduleDowngrade(merchant *models.Merchant, target models.PlanType) (*ScheduledDowngrade, error) {
	current, err := c.catalog.Lookup(merchant.PlanType)
	if err != nil {
		return nil, err
	}
	targetPlan, err := c.catalog.Lookup(target)
	if err != nil {
		return nil, err
	}
	if targetPlan.BasePrice >= current.BasePrice {
		return nil, fmt.Errorf("plan %s is not a downgrade from %s", target, merchant.PlanType)
	}

	return &ScheduledDowngrade{
		TargetPlan:    targetPlan,
		EffectiveDate: merchant.CycleEnd(),
	}, nil
}
