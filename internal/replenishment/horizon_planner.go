package replenishment

import (
	"sort"

	"dmis/internal/models"
	"dmis/pkg/errclass"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type routeKey struct {
	from, to uuid.UUID
}

// LeadTimeTable resolves lead times for one planning run.
type LeadTimeTable struct {
	routes      map[routeKey]int
	donation    int
	procurement int
}

// NewLeadTimeTable layers configured rows over the policy defaults. Transfer
// rows are kept per route; donation and procurement rows replace the default.
// Invalid rows are skipped.
func NewLeadTimeTable(configs []models.LeadTimeConfig, policy Policy) *LeadTimeTable {
	t := &LeadTimeTable{
		routes:      make(map[routeKey]int),
		donation:    policy.DonationLeadTimeHours,
		procurement: policy.ProcurementLeadTimeHours,
	}
	for _, c := range configs {
		if c.Validate() != nil {
			continue
		}
		switch c.Horizon {
		case models.HorizonTransfer:
			t.routes[routeKey{from: *c.FromWarehouseID, to: *c.ToWarehouseID}] = c.LeadTimeHours
		case models.HorizonDonation:
			t.donation = c.LeadTimeHours
		case models.HorizonProcurement:
			t.procurement = c.LeadTimeHours
		}
	}
	return t
}

// Route returns the transfer lead time from one warehouse to another.
// Horizon A has no default; an unconfigured route is unusable.
func (t *LeadTimeTable) Route(from, to uuid.UUID) (int, bool) {
	h, ok := t.routes[routeKey{from: from, to: to}]
	return h, ok
}

func (t *LeadTimeTable) Donation() (int, bool) {
	return t.donation, t.donation > 0
}

func (t *LeadTimeTable) Procurement() (int, bool) {
	return t.procurement, t.procurement > 0
}

type stockKey struct {
	warehouse, item uuid.UUID
}

// WorkingPool is the run-local copy of transferable surplus and unclaimed
// donations. Lines consume from it in order so the same stock is never
// promised twice within a run. It is not safe for concurrent use.
type WorkingPool struct {
	surplus    map[stockKey]decimal.Decimal
	warehouses map[uuid.UUID][]uuid.UUID
	donations  map[uuid.UUID]decimal.Decimal
}

func NewWorkingPool() *WorkingPool {
	return &WorkingPool{
		surplus:    make(map[stockKey]decimal.Decimal),
		warehouses: make(map[uuid.UUID][]uuid.UUID),
		donations:  make(map[uuid.UUID]decimal.Decimal),
	}
}

// SetSurplus records what a warehouse can give away of an item.
func (p *WorkingPool) SetSurplus(warehouseID, itemID uuid.UUID, qty decimal.Decimal) {
	if !qty.IsPositive() {
		return
	}
	key := stockKey{warehouse: warehouseID, item: itemID}
	if _, exists := p.surplus[key]; !exists {
		p.warehouses[itemID] = append(p.warehouses[itemID], warehouseID)
	}
	p.surplus[key] = qty
}

func (p *WorkingPool) Surplus(warehouseID, itemID uuid.UUID) decimal.Decimal {
	if s, ok := p.surplus[stockKey{warehouse: warehouseID, item: itemID}]; ok {
		return s
	}
	return decimal.Zero
}

func (p *WorkingPool) SetDonation(itemID uuid.UUID, qty decimal.Decimal) {
	if qty.IsPositive() {
		p.donations[itemID] = qty
	}
}

func (p *WorkingPool) Donation(itemID uuid.UUID) decimal.Decimal {
	if d, ok := p.donations[itemID]; ok {
		return d
	}
	return decimal.Zero
}

// Allocation is a line's gap split across the three horizons.
type Allocation struct {
	Gap                      decimal.Decimal
	HorizonA                 decimal.Decimal
	HorizonB                 decimal.Decimal
	HorizonC                 decimal.Decimal
	Sources                  []models.TransferSource
	DonationLeadTimeHours    *int
	ProcurementLeadTimeHours *int
}

func (a Allocation) Total() decimal.Decimal {
	return a.HorizonA.Add(a.HorizonB).Add(a.HorizonC)
}

// Check enforces that the horizons add up to exactly the gap.
func (a Allocation) Check() error {
	if !a.Total().Equal(a.Gap) {
		return errclass.ErrPlanInvariantViolation.WithMessagef("horizons allocate %s of gap %s", a.Total(), a.Gap)
	}
	return nil
}

// ApplyTo copies the allocation onto a needs list line.
func (a Allocation) ApplyTo(item *models.NeedsListItem) {
	item.HorizonAQty = a.HorizonA
	item.HorizonBQty = a.HorizonB
	item.HorizonCQty = a.HorizonC
	item.HorizonASources = a.Sources
	item.HorizonBLeadTimeHours = a.DonationLeadTimeHours
	item.HorizonCLeadTimeHours = a.ProcurementLeadTimeHours
}

// HorizonPlanner allocates line gaps against a working pool.
type HorizonPlanner struct {
	pool      *WorkingPool
	leadTimes *LeadTimeTable
}

func NewHorizonPlanner(pool *WorkingPool, leadTimes *LeadTimeTable) *HorizonPlanner {
	return &HorizonPlanner{pool: pool, leadTimes: leadTimes}
}

type candidate struct {
	warehouseID uuid.UUID
	surplus     decimal.Decimal
	leadTime    int
}

// PlanLine splits gap for (warehouseID, itemID) across transfer, donation
// and procurement in that order. maxTransferHours bounds which routes count
// as Horizon A. The pool is only drawn down when the allocation passes
// Check; a failing line leaves the pool untouched.
func (hp *HorizonPlanner) PlanLine(warehouseID, itemID uuid.UUID, gap decimal.Decimal, maxTransferHours int) (Allocation, error) {
	alloc := Allocation{
		Gap:      gap,
		HorizonA: decimal.Zero,
		HorizonB: decimal.Zero,
		HorizonC: decimal.Zero,
		Sources:  []models.TransferSource{},
	}
	if h, ok := hp.leadTimes.Donation(); ok {
		alloc.DonationLeadTimeHours = &h
	}
	if h, ok := hp.leadTimes.Procurement(); ok {
		alloc.ProcurementLeadTimeHours = &h
	}
	if !gap.IsPositive() {
		alloc.Gap = decimal.Zero
		return alloc, nil
	}

	remaining := gap
	for _, c := range hp.candidates(warehouseID, itemID, maxTransferHours) {
		if !remaining.IsPositive() {
			break
		}
		take := decimal.Min(remaining, c.surplus)
		alloc.HorizonA = alloc.HorizonA.Add(take)
		alloc.Sources = append(alloc.Sources, models.TransferSource{
			WarehouseID:   c.warehouseID,
			Quantity:      take,
			LeadTimeHours: c.leadTime,
		})
		remaining = remaining.Sub(take)
	}

	if alloc.DonationLeadTimeHours != nil && remaining.IsPositive() {
		take := decimal.Min(remaining, hp.pool.Donation(itemID))
		alloc.HorizonB = take
		remaining = remaining.Sub(take)
	}

	if alloc.ProcurementLeadTimeHours != nil && remaining.IsPositive() {
		alloc.HorizonC = remaining
	}

	if err := alloc.Check(); err != nil {
		return alloc, err
	}
	hp.commit(itemID, alloc)
	return alloc, nil
}

// candidates lists sibling warehouses that can transfer the item, ordered by
// shortest lead time, then largest surplus.
func (hp *HorizonPlanner) candidates(warehouseID, itemID uuid.UUID, maxTransferHours int) []candidate {
	var out []candidate
	for _, from := range hp.pool.warehouses[itemID] {
		if from == warehouseID {
			continue
		}
		surplus := hp.pool.Surplus(from, itemID)
		if !surplus.IsPositive() {
			continue
		}
		lead, ok := hp.leadTimes.Route(from, warehouseID)
		if !ok || lead > maxTransferHours {
			continue
		}
		out = append(out, candidate{warehouseID: from, surplus: surplus, leadTime: lead})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].leadTime != out[j].leadTime {
			return out[i].leadTime < out[j].leadTime
		}
		if !out[i].surplus.Equal(out[j].surplus) {
			return out[i].surplus.GreaterThan(out[j].surplus)
		}
		return out[i].warehouseID.String() < out[j].warehouseID.String()
	})
	return out
}

func (hp *HorizonPlanner) commit(itemID uuid.UUID, alloc Allocation) {
	for _, src := range alloc.Sources {
		key := stockKey{warehouse: src.WarehouseID, item: itemID}
		hp.pool.surplus[key] = hp.pool.surplus[key].Sub(src.Quantity)
	}
	if alloc.HorizonB.IsPositive() {
		hp.pool.donations[itemID] = hp.pool.donations[itemID].Sub(alloc.HorizonB)
	}
}
