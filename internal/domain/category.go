package domain

import "time"

// Category groups products. Names are unique across all categories.
type Category struct {
	ID          int64     `json:"id,string" form:"id"`
	Name        string    `gorm:"size:100;uniqueIndex" json:"name" form:"name"`
	Description string    `json:"description" form:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Category) TableName() string {
	return "categories"
}
