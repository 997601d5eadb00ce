package model

import (
	"time"

	"gorm.io/gorm"
)

// TenantOwned marks entities partitioned by tenant. The scoped data layer
// stamps TenantID on writes and filters every read by it; callers never set
// the field themselves.
type TenantOwned interface {
	SetTenantID(id uint)
	GetTenantID() uint
}

// Auditable marks entities that carry creation/modification stamps.
type Auditable interface {
	StampCreated(at time.Time, by uint)
	StampModified(at time.Time, by uint)
}

// SoftDeletable marks entities whose deletes are recorded, not performed.
type SoftDeletable interface {
	StampDeleted(at time.Time, by uint)
}

// TenantScoped is embedded by every entity that belongs to a single tenant.
type TenantScoped struct {
	TenantID uint `json:"tenant_id" gorm:"index;not null"`
}

func (m *TenantScoped) SetTenantID(id uint) { m.TenantID = id }
func (m *TenantScoped) GetTenantID() uint   { return m.TenantID }

// AuditFields is embedded by auditable entities. CreatedOn/CreatedBy are set
// exactly once at insert; LastModifiedOn/LastModifiedBy on every update.
type AuditFields struct {
	CreatedOn      time.Time  `json:"created_on" gorm:"column:created_on"`
	CreatedBy      uint       `json:"created_by" gorm:"column:created_by"`
	LastModifiedOn *time.Time `json:"last_modified_on,omitempty" gorm:"column:last_modified_on"`
	LastModifiedBy *uint      `json:"last_modified_by,omitempty" gorm:"column:last_modified_by"`
}

func (m *AuditFields) StampCreated(at time.Time, by uint) {
	m.CreatedOn = at
	m.CreatedBy = by
}

func (m *AuditFields) StampModified(at time.Time, by uint) {
	m.LastModifiedOn = &at
	m.LastModifiedBy = &by
}

// SoftDeleteFields is embedded by soft-deletable entities. DeletedOn uses
// gorm.DeletedAt so deleted rows drop out of every query automatically.
type SoftDeleteFields struct {
	DeletedOn gorm.DeletedAt `json:"-" gorm:"column:deleted_on;index"`
	DeletedBy *uint          `json:"-" gorm:"column:deleted_by"`
}

func (m *SoftDeleteFields) StampDeleted(at time.Time, by uint) {
	m.DeletedOn = gorm.DeletedAt{Time: at, Valid: true}
	m.DeletedBy = &by
}
