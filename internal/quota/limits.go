package quota

import (
	"maps"
	"slices"

	"hearth/pkg/domain"
)

// ResourceKind names a countable household resource.
type ResourceKind string

const (
	ResourceMembers        ResourceKind = "members"
	ResourceTasks          ResourceKind = "tasks"
	ResourceVehicles       ResourceKind = "vehicles"
	ResourcePets           ResourceKind = "pets"
	ResourceChildren       ResourceKind = "children"
	ResourceEmployees      ResourceKind = "employees"
	ResourceInventoryItems ResourceKind = "inventory_items"
)

var allKinds = []ResourceKind{
	ResourceMembers,
	ResourceTasks,
	ResourceVehicles,
	ResourcePets,
	ResourceChildren,
	ResourceEmployees,
	ResourceInventoryItems,
}

// Kinds returns every resource kind in display order.
func Kinds() []ResourceKind { return slices.Clone(allKinds) }

func ParseResourceKind(s string) (ResourceKind, bool) {
	k := ResourceKind(s)
	return k, slices.Contains(allKinds, k)
}

// Feature names a boolean plan capability.
type Feature string

const (
	FeatureEmployees      Feature = "employees"
	FeatureReceiptScan    Feature = "receipt_scanning"
	FeatureSharedCalendar Feature = "shared_calendar"
)

// gates lists resource kinds that also need a feature flag.
var gates = map[ResourceKind]Feature{
	ResourceEmployees: FeatureEmployees,
}

// Unlimited is the ceiling value meaning no limit.
const Unlimited = -1

// PlanLimits is the ceiling table for one plan. It is immutable once built.
type PlanLimits struct {
	ceilings map[ResourceKind]int
	features map[Feature]bool
}

func NewPlanLimits(ceilings map[ResourceKind]int, features map[Feature]bool) PlanLimits {
	return PlanLimits{ceilings: maps.Clone(ceilings), features: maps.Clone(features)}
}

// Ceiling returns the limit for kind. Kinds missing from the table get zero.
func (l PlanLimits) Ceiling(kind ResourceKind) int { return l.ceilings[kind] }

func (l PlanLimits) Has(f Feature) bool { return l.features[f] }

// Features returns a copy of the feature flags.
func (l PlanLimits) Features() map[Feature]bool { return maps.Clone(l.features) }

// Table maps plans to their limits.
type Table struct {
	plans map[domain.Plan]PlanLimits
}

func NewTable(plans map[domain.Plan]PlanLimits) *Table {
	return &Table{plans: maps.Clone(plans)}
}

// For returns the limits of plan, falling back to FREE for unknown plans.
func (t *Table) For(plan domain.Plan) PlanLimits {
	if l, ok := t.plans[plan]; ok {
		return l
	}
	return t.plans[domain.PlanFree]
}

// DefaultPlanLimits builds the production plan table.
func DefaultPlanLimits() *Table {
	return NewTable(map[domain.Plan]PlanLimits{
		domain.PlanFree: NewPlanLimits(map[ResourceKind]int{
			ResourceMembers:        3,
			ResourceTasks:          50,
			ResourceVehicles:       1,
			ResourcePets:           2,
			ResourceChildren:       3,
			ResourceEmployees:      0,
			ResourceInventoryItems: 100,
		}, map[Feature]bool{}),
		domain.PlanFamily: NewPlanLimits(map[ResourceKind]int{
			ResourceMembers:        8,
			ResourceTasks:          500,
			ResourceVehicles:       4,
			ResourcePets:           6,
			ResourceChildren:       8,
			ResourceEmployees:      2,
			ResourceInventoryItems: 1000,
		}, map[Feature]bool{
			FeatureEmployees:      true,
			FeatureSharedCalendar: true,
		}),
		domain.PlanPremium: NewPlanLimits(map[ResourceKind]int{
			ResourceMembers:        Unlimited,
			ResourceTasks:          Unlimited,
			ResourceVehicles:       Unlimited,
			ResourcePets:           Unlimited,
			ResourceChildren:       Unlimited,
			ResourceEmployees:      Unlimited,
			ResourceInventoryItems: Unlimited,
		}, map[Feature]bool{
			FeatureEmployees:      true,
			FeatureReceiptScan:    true,
			FeatureSharedCalendar: true,
		}),
	})
}
