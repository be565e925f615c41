package billing

import (
	"encoding/json"
	"fmt"

	"refund-billing-service/internal/models"
)

// Plan is one subscription tier. The catalog is versioned, immutable data:
// plans are validated once at startup and never mutated at runtime.
type Plan struct {
	Key             models.PlanType `json:"key"`
	Name            string          `json:"name"`
	BasePrice       float64         `json:"basePrice"`
	IncludedRefunds int64           `json:"includedRefunds"`
	ExcessRate      float64         `json:"excessRate"`
}

// ErrUnknownPlan is returned for a plan key that is not in the catalog.
// Lookups fail loudly; a missing plan must never silently become a zero-price
// phantom plan in money math.
type ErrUnknownPlan struct {
	Key models.PlanType
}

func (e ErrUnknownPlan) Error() string {
	return fmt.Sprintf("unknown plan: %q", string(e.Key))
}

// Catalog is a read-only plan lookup.
type Catalog struct {
	plans map[models.PlanType]Plan
}

// NewCatalog validates and freezes a set of plans.
func NewCatalog(plans []Plan) (*Catalog, error) {
	if len(plans) == 0 {
		return nil, fmt.Errorf("plan catalog is empty")
	}
	byKey := make(map[models.PlanType]Plan, len(plans))
	for _, p := range plans {
		if p.Key == "" || p.Name == "" {
			return nil, fmt.Errorf("plan %+v: key and name are required", p)
		}
		if p.BasePrice <= 0 {
			return nil, fmt.Errorf("plan %s: basePrice must be positive", p.Key)
		}
		if p.IncludedRefunds < 0 || p.ExcessRate < 0 {
			return nil, fmt.Errorf("plan %s: includedRefunds and excessRate must be non-negative", p.Key)
		}
		if _, dup := byKey[p.Key]; dup {
			return nil, fmt.Errorf("plan %s: duplicate key", p.Key)
		}
		byKey[p.Key] = p
	}
	return &Catalog{plans: byKey}, nil
}

// ParseCatalog builds a catalog from a JSON plan table (config override).
func ParseCatalog(data []byte) (*Catalog, error) {
	var plans []Plan
	if err := json.Unmarshal(data, &plans); err != nil {
		return nil, fmt.Errorf("failed to parse plan table: %w", err)
	}
	return NewCatalog(plans)
}

// Lookup returns the plan for key or ErrUnknownPlan.
func (c *Catalog) Lookup(key models.PlanType) (Plan, error) {
	p, ok := c.plans[key]
	if !ok {
		return Plan{}, ErrUnknownPlan{Key: key}
	}
	return p, nil
}

// Plans returns every plan in the catalog.
func (c *Catalog) Plans() []Plan {
	out := make([]Plan, 0, len(c.plans))
	for _, p := range c.plans {
		out = append(out, p)
	}
	return out
}

// DefaultCatalog returns the built-in plan table.
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog([]Plan{
		{Key: models.PlanStartup, Name: "Startup", BasePrice: 999, IncludedRefunds: 100, ExcessRate: 15},
		{Key: models.PlanGrowth, Name: "Growth", BasePrice: 2499, IncludedRefunds: 400, ExcessRate: 10},
		{Key: models.PlanScale, Name: "Scale", BasePrice: 4999, IncludedRefunds: 1000, ExcessRate: 5},
	})
	if err != nil {
		panic(err) // built-in table, cannot fail
	}
	return catalog
}
