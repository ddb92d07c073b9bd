package quota_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearth/internal/quota"
	"hearth/pkg/domain"
)

const planYAML = `
plans:
  FREE:
    limits: {members: 2, tasks: 10}
  PREMIUM:
    limits: {members: -1, employees: -1}
    features: [employees, receipt_scanning]
`

func TestParsePlanTable(t *testing.T) {
	table, err := quota.ParsePlanTable([]byte(planYAML))
	require.NoError(t, err)

	free := table.For(domain.PlanFree)
	assert.Equal(t, 2, free.Ceiling(quota.ResourceMembers))
	assert.Equal(t, 0, free.Ceiling(quota.ResourcePets), "missing kinds are closed")
	assert.False(t, free.Has(quota.FeatureEmployees))

	premium := table.For(domain.PlanPremium)
	assert.Equal(t, quota.Unlimited, premium.Ceiling(quota.ResourceMembers))
	assert.True(t, premium.Has(quota.FeatureReceiptScan))

	assert.Equal(t, free, table.For(domain.PlanFamily), "undefined plans fall back to FREE")
}

func TestParsePlanTable_FlowStyle(t *testing.T) {
	table, err := quota.ParsePlanTable([]byte(
		`plans: {FREE: {limits: {members: 3}}, FAMILY: {limits: {members: 8, tasks: -1}, features: [employees]}}`))
	require.NoError(t, err)

	family := table.For(domain.PlanFamily)
	assert.Equal(t, 8, family.Ceiling(quota.ResourceMembers))
	assert.Equal(t, quota.Unlimited, family.Ceiling(quota.ResourceTasks))
	assert.True(t, family.Has(quota.FeatureEmployees))
}

func TestParsePlanTable_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown plan":     "plans:\n  GOLD:\n    limits: {members: 1}\n",
		"unknown resource": "plans:\n  FREE:\n    limits: {boats: 1}\n",
		"bad ceiling":      "plans:\n  FREE:\n    limits: {members: -2}\n",
		"unknown feature":  "plans:\n  FREE:\n    features: [teleport]\n",
		"missing free":     "plans:\n  PREMIUM:\n    limits: {members: -1}\n",
		"not yaml":         "plans: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := quota.ParsePlanTable([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadPlanTable(t *testing.T) {
	table, err := quota.LoadPlanTable("")
	require.NoError(t, err)
	assert.Equal(t, 3, table.For(domain.PlanFree).Ceiling(quota.ResourceMembers))

	path := filepath.Join(t.TempDir(), "plans.yaml")
	require.NoError(t, os.WriteFile(path, []byte(planYAML), 0o600))
	table, err = quota.LoadPlanTable(path)
	require.NoError(t, err)
	assert.Equal(t, 2, table.For(domain.PlanFree).Ceiling(quota.ResourceMembers))

	_, err = quota.LoadPlanTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
