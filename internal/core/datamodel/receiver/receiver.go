package receiver

import "time"

type Receiver struct {
	ID        int64      `gorm:"primaryKey"`
	Name      string     `gorm:"column:name;not null"`
	Email     *string    `gorm:"column:email"`
	Phone     *string    `gorm:"column:phone"`
	Role      *string    `gorm:"column:role"`
	CreatedBy int64      `gorm:"column:created_by;not null"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	DeletedAt *time.Time `gorm:"column:deleted_at"`
}

func (Receiver) TableName() string {
	return "receivers"
}

type ReceiverCategory struct {
	ReceiverID int64 `gorm:"column:receiver_id;primaryKey"`
	CategoryID int64 `gorm:"column:category_id;primaryKey"`
}

func (ReceiverCategory) TableName() string {
	return "receiver_categories"
}

type ReceiverAccount struct {
	ReceiverID int64 `gorm:"column:receiver_id;primaryKey"`
	AccountID  int64 `gorm:"column:account_id;primaryKey"`
}

func (ReceiverAccount) TableName() string {
	return "receiver_accounts"
}
