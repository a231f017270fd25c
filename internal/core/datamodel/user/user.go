package user

import "time"

type User struct {
	ID        int64      `gorm:"primaryKey"`
	Name      string     `gorm:"column:name;not null"`
	Email     string     `gorm:"column:email;uniqueIndex;not null"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	DeletedAt *time.Time `gorm:"column:deleted_at"`
}

func (User) TableName() string {
	return "users"
}

type UserRole struct {
	UserID int64  `gorm:"column:user_id;primaryKey"`
	Role   string `gorm:"column:role;primaryKey"`
}

func (UserRole) TableName() string {
	return "user_roles"
}

type OTPCode struct {
	ID         int64      `gorm:"primaryKey"`
	Email      string     `gorm:"column:email;index;not null"`
	CodeHash   string     `gorm:"column:code_hash;not null"`
	Attempts   int        `gorm:"column:attempts;not null;default:0"`
	ExpiresAt  time.Time  `gorm:"column:expires_at;not null"`
	ConsumedAt *time.Time `gorm:"column:consumed_at"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
}

func (OTPCode) TableName() string {
	return "otp_codes"
}
