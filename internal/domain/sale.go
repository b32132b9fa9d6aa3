package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale records a single sale transaction. UnitPrice is snapshotted from the
// product at creation time; TotalPrice is always Quantity * UnitPrice as of
// the last save. Stock is decremented exactly once, when the sale is created.
type Sale struct {
	ID          int64           `json:"id,string" form:"id"`
	ProductID   int64           `gorm:"index;not null" json:"product,string" form:"product"`
	Product     *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"-"`
	Quantity    int             `gorm:"not null" json:"quantity" form:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(10,2)" json:"unit_price" form:"unit_price"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(10,2)" json:"total_price"`
	SaleDate    time.Time       `gorm:"index" json:"sale_date" form:"sale_date"`
	CreatedByID int64           `gorm:"index;not null" json:"created_by,string"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Derived fields filled by the API layer, never persisted.
	ProductName       string `gorm:"-" json:"product_name"`
	CreatedByUsername string `gorm:"-" json:"created_by_username"`
}

// TableName Specify table name
func (Sale) TableName() string {
	return "sales"
}

// RecalcTotal recomputes TotalPrice from Quantity and UnitPrice. Runs on
// every save, including the first.
func (s *Sale) RecalcTotal() {
	s.TotalPrice = s.UnitPrice.Mul(decimal.NewFromInt(int64(s.Quantity)))
}
