package model

// Product represents merchandise sold by an academy. SKUs are unique per
// tenant, not globally, so two academies can list the same SKU.
type Product struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Name        string  `json:"name" gorm:"type:varchar(255);not null"`
	Description string  `json:"description" gorm:"type:text"`
	SKU         string  `json:"sku" gorm:"type:varchar(100);not null;uniqueIndex:idx_products_tenant_sku"`
	Price       float64 `json:"price" gorm:"not null"`
	Stock       int     `json:"stock" gorm:"default:0"`
	IsActive    bool    `json:"is_active" gorm:"default:true"`

	TenantID uint `json:"tenant_id" gorm:"not null;uniqueIndex:idx_products_tenant_sku"`

	AuditFields
	SoftDeleteFields
}

func (m *Product) SetTenantID(id uint) { m.TenantID = id }
func (m *Product) GetTenantID() uint   { return m.TenantID }
