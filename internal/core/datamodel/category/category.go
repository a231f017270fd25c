package category

import "time"

type Category struct {
	ID          int64      `gorm:"primaryKey"`
	Description string     `gorm:"column:description;not null"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	DeletedAt   *time.Time `gorm:"column:deleted_at"`
}

func (Category) TableName() string {
	return "categories"
}

type Account struct {
	ID          int64      `gorm:"primaryKey"`
	CategoryID  int64      `gorm:"column:category_id;index;not null"`
	Description string     `gorm:"column:description;not null"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	DeletedAt   *time.Time `gorm:"column:deleted_at"`
}

func (Account) TableName() string {
	return "accounts"
}
