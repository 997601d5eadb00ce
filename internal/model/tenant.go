package model

import (
	"time"
)

// RootTenantKey is the reserved key of the bootstrap tenant. It can never be
// edited or deleted through normal flows.
const RootTenantKey = "root"

// TenantStatus tracks where a tenant sits in the provisioning lifecycle.
type TenantStatus string

const (
	TenantPending      TenantStatus = "pending"
	TenantProvisioning TenantStatus = "provisioning"
	TenantActive       TenantStatus = "active"
	TenantUpdating     TenantStatus = "updating"
	TenantFailed       TenantStatus = "failed"
)

// validTransitions encodes the monotonic per-operation state machine:
// Pending → Provisioning → {Active | Failed}; Active → Updating → {Active |
// Failed}. Failed tenants may be retried, which starts again from
// Provisioning or Updating.
var validTransitions = map[TenantStatus][]TenantStatus{
	TenantPending:      {TenantProvisioning},
	TenantProvisioning: {TenantActive, TenantFailed},
	TenantActive:       {TenantUpdating},
	TenantUpdating:     {TenantActive, TenantFailed},
	TenantFailed:       {TenantProvisioning, TenantUpdating},
}

// CanTransitionTo reports whether moving from s to next is a valid step.
func (s TenantStatus) CanTransitionTo(next TenantStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Tenant is the durable directory record of a customer academy. It lives in
// the shared base database and is mutated only by the provisioning workflow
// after creation.
type Tenant struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Key  string `json:"key" gorm:"type:varchar(100);uniqueIndex;not null"`
	Name string `json:"name" gorm:"type:varchar(255);not null"`

	IsActive bool `json:"is_active" gorm:"default:true"`

	// ConnectionString is empty for tenants in the shared default database
	// and holds the DSN of the tenant's isolated database otherwise.
	ConnectionString string `json:"-" gorm:"type:text"`

	Status                  TenantStatus `json:"status" gorm:"type:varchar(20);index;not null"`
	ProvisioningError       string       `json:"provisioning_error,omitempty" gorm:"type:text"`
	LastProvisioningAttempt *time.Time   `json:"last_provisioning_attempt,omitempty"`

	CreatedOn time.Time `json:"created_on" gorm:"column:created_on"`

	SoftDeleteFields
}

// IsRoot reports whether this is the protected bootstrap tenant.
func (t *Tenant) IsRoot() bool {
	return t.Key == RootTenantKey
}

// HasIsolatedDatabase reports whether the tenant lives in its own database.
func (t *Tenant) HasIsolatedDatabase() bool {
	return t.ConnectionString != ""
}
