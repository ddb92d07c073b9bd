package seeder

import (
	"context"
	"fmt"
	"log/slog"

	householdmodels "hearth/internal/household/models"
	"hearth/internal/quota"
	usermodels "hearth/internal/user/models"
	"hearth/pkg/domain"
)

type Households interface {
	Create(ctx context.Context, name string) (*householdmodels.Household, error)
	ChangePlan(ctx context.Context, actor *domain.Principal, id domain.TenantID, plan domain.Plan) (*householdmodels.Household, error)
}

type Users interface {
	Create(ctx context.Context, tenantID domain.TenantID, email, displayName string, role domain.Role) (*usermodels.User, error)
}

// ResourceCounts is the in-memory quota counter. Nil skips resource seeding.
type ResourceCounts interface {
	Add(tenantID domain.TenantID, kind quota.ResourceKind, delta int) int
}

// Seeder populates in-memory stores with demo data.
type Seeder struct {
	households Households
	users      Users
	counts     ResourceCounts
	logger     *slog.Logger
}

func New(households Households, users Users, counts ResourceCounts, logger *slog.Logger) *Seeder {
	return &Seeder{
		households: households,
		users:      users,
		counts:     counts,
		logger:     logger,
	}
}

// Summary lists the seeded ids so tokens can be minted for them.
type Summary struct {
	SuperAdminID domain.UserID
	Households   []SeededHousehold
}

type SeededHousehold struct {
	ID      domain.TenantID
	Name    string
	Plan    domain.Plan
	Members map[domain.Role]domain.UserID
}

type demoHousehold struct {
	name    string
	plan    domain.Plan
	members []demoUser
	usage   map[quota.ResourceKind]int
}

type demoUser struct {
	email string
	name  string
	role  domain.Role
}

var demoHouseholds = []demoHousehold{
	{
		name: "The Okafors",
		plan: domain.PlanFree,
		members: []demoUser{
			{"ada@okafor.example", "Ada Okafor", domain.RoleAdmin},
			{"chidi@okafor.example", "Chidi Okafor", domain.RoleParent},
			{"ngozi@okafor.example", "Ngozi Okafor", domain.RoleMember},
		},
		usage: map[quota.ResourceKind]int{quota.ResourceTasks: 48, quota.ResourcePets: 2},
	},
	{
		name: "The Lindqvists",
		plan: domain.PlanFamily,
		members: []demoUser{
			{"astrid@lindqvist.example", "Astrid Lindqvist", domain.RoleAdmin},
			{"erik@lindqvist.example", "Erik Lindqvist", domain.RoleParent},
			{"maja@lindqvist.example", "Maja Berg", domain.RoleStaff},
		},
		usage: map[quota.ResourceKind]int{quota.ResourceVehicles: 2, quota.ResourceEmployees: 1},
	},
}

// SeedAll creates one super admin and the demo households. Plan upgrades are
// made by the seeded super admin so they show up in the audit trail.
func (s *Seeder) SeedAll(ctx context.Context) (*Summary, error) {
	s.logger.InfoContext(ctx, "seeding demo data")

	admin, err := s.users.Create(ctx, domain.TenantID{}, "ops@hearth.example", "Hearth Ops", domain.RoleSuperAdmin)
	if err != nil {
		return nil, fmt.Errorf("seed super admin: %w", err)
	}
	actor := &domain.Principal{SubjectID: admin.ID, Role: domain.RoleSuperAdmin}
	summary := &Summary{SuperAdminID: admin.ID}

	for _, demo := range demoHouseholds {
		seeded, err := s.seedHousehold(ctx, actor, demo)
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", demo.name, err)
		}
		summary.Households = append(summary.Households, seeded)
	}

	s.logger.InfoContext(ctx, "demo data seeded",
		"super_admin_id", admin.ID.String(),
		"households", len(summary.Households),
	)
	return summary, nil
}

func (s *Seeder) seedHousehold(ctx context.Context, actor *domain.Principal, demo demoHousehold) (SeededHousehold, error) {
	h, err := s.households.Create(ctx, demo.name)
	if err != nil {
		return SeededHousehold{}, err
	}
	if demo.plan != domain.PlanFree {
		if _, err := s.households.ChangePlan(ctx, actor, h.ID, demo.plan); err != nil {
			return SeededHousehold{}, err
		}
	}

	out := SeededHousehold{ID: h.ID, Name: h.Name, Plan: demo.plan, Members: map[domain.Role]domain.UserID{}}
	for _, m := range demo.members {
		u, err := s.users.Create(ctx, h.ID, m.email, m.name, m.role)
		if err != nil {
			return SeededHousehold{}, err
		}
		out.Members[m.role] = u.ID
	}
	if s.counts != nil {
		for kind, n := range demo.usage {
			s.counts.Add(h.ID, kind, n)
		}
	}
	return out, nil
}
