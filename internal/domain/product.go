package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is an inventory item. Quantity never goes negative through the
// sale path; only an explicit admin stock adjustment may set it below zero.
type Product struct {
	ID          int64           `json:"id,string" form:"id"`
	Name        string          `gorm:"size:255;index" json:"name" form:"name"`
	CategoryID  int64           `gorm:"index;not null" json:"category,string" form:"category"`
	Category    *Category       `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE" json:"-"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2)" json:"price" form:"price"`
	Quantity    int             `gorm:"not null;default:0" json:"quantity" form:"quantity"`
	Description string          `json:"description" form:"description"`
	Image       string          `gorm:"size:1024" json:"image" form:"image"` // URL to product image (optional)
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Derived fields filled by the API layer, never persisted.
	CategoryName string `gorm:"-" json:"category_name"`
	IsLowStock   bool   `gorm:"-" json:"is_low_stock"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "products"
}

// LowStock reports whether the product quantity is at or below threshold.
func (p *Product) LowStock(threshold int) bool {
	return p.Quantity <= threshold
}
