package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to TenantStatus
		allowed  bool
	}{
		{TenantPending, TenantProvisioning, true},
		{TenantProvisioning, TenantActive, true},
		{TenantProvisioning, TenantFailed, true},
		{TenantActive, TenantUpdating, true},
		{TenantUpdating, TenantActive, true},
		{TenantUpdating, TenantFailed, true},
		{TenantFailed, TenantProvisioning, true},
		{TenantFailed, TenantUpdating, true},

		{TenantPending, TenantActive, false},
		{TenantPending, TenantFailed, false},
		{TenantActive, TenantActive, false},
		{TenantActive, TenantProvisioning, false},
		{TenantActive, TenantFailed, false},
		{TenantProvisioning, TenantUpdating, false},
		{TenantFailed, TenantActive, false},
		{TenantUpdating, TenantProvisioning, false},
	}

	for _, tc := range cases {
		got := tc.from.CanTransitionTo(tc.to)
		assert.Equalf(t, tc.allowed, got, "%s -> %s", tc.from, tc.to)
	}
}

func TestTenantFlags(t *testing.T) {
	root := Tenant{Key: RootTenantKey}
	assert.True(t, root.IsRoot())
	assert.False(t, root.HasIsolatedDatabase())

	isolated := Tenant{Key: "alpha", ConnectionString: "host=db dbname=diquis-alpha"}
	assert.False(t, isolated.IsRoot())
	assert.True(t, isolated.HasIsolatedDatabase())
}
