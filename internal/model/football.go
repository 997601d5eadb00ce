package model

import "time"

// Category groups players by age bracket (U-9, U-11, ...). Names are unique
// within an academy.
type Category struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"type:varchar(100);not null;uniqueIndex:idx_categories_tenant_name"`
	Description string `json:"description" gorm:"type:text"`
	MinAge      int    `json:"min_age"`
	MaxAge      int    `json:"max_age"`

	TenantID uint `json:"tenant_id" gorm:"not null;uniqueIndex:idx_categories_tenant_name"`

	AuditFields
	SoftDeleteFields
}

func (m *Category) SetTenantID(id uint) { m.TenantID = id }
func (m *Category) GetTenantID() uint   { return m.TenantID }

// Division is a competitive tier within an academy.
type Division struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"type:varchar(100);not null;uniqueIndex:idx_divisions_tenant_name"`
	Description string `json:"description" gorm:"type:text"`

	TenantID uint `json:"tenant_id" gorm:"not null;uniqueIndex:idx_divisions_tenant_name"`

	AuditFields
	SoftDeleteFields
}

func (m *Division) SetTenantID(id uint) { m.TenantID = id }
func (m *Division) GetTenantID() uint   { return m.TenantID }

// Position is a playing position (goalkeeper, striker, ...).
type Position struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"type:varchar(100);not null;uniqueIndex:idx_positions_tenant_name"`

	TenantID uint `json:"tenant_id" gorm:"not null;uniqueIndex:idx_positions_tenant_name"`

	AuditFields
	SoftDeleteFields
}

func (m *Position) SetTenantID(id uint) { m.TenantID = id }
func (m *Position) GetTenantID() uint   { return m.TenantID }

// Skill is a trainable ability tracked per player.
type Skill struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"type:varchar(100);not null;uniqueIndex:idx_skills_tenant_name"`
	Description string `json:"description" gorm:"type:text"`

	TenantID uint `json:"tenant_id" gorm:"not null;uniqueIndex:idx_skills_tenant_name"`

	AuditFields
	SoftDeleteFields
}

func (m *Skill) SetTenantID(id uint) { m.TenantID = id }
func (m *Skill) GetTenantID() uint   { return m.TenantID }

// Player is a registered academy player.
type Player struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	FirstName   string    `json:"first_name" gorm:"type:varchar(100);not null"`
	LastName    string    `json:"last_name" gorm:"type:varchar(100);not null"`
	DateOfBirth time.Time `json:"date_of_birth"`
	Height      float64   `json:"height"`
	Weight      float64   `json:"weight"`

	CategoryID *uint `json:"category_id,omitempty" gorm:"index"`
	DivisionID *uint `json:"division_id,omitempty" gorm:"index"`
	PositionID *uint `json:"position_id,omitempty" gorm:"index"`

	TenantScoped
	AuditFields
	SoftDeleteFields
}
