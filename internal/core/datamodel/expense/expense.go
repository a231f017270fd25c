package expense

import (
	"time"

	"github.com/shopspring/decimal"
)

type Expense struct {
	ID               int64           `gorm:"primaryKey"`
	UserID           int64           `gorm:"column:user_id;index;not null"`
	Description      string          `gorm:"column:description;not null"`
	Amount           decimal.Decimal `gorm:"column:amount;type:decimal(14,2);not null"`
	Phase            string          `gorm:"column:phase;index;not null"`
	Vendor           *string         `gorm:"column:vendor"`
	ReceiverID       *int64          `gorm:"column:receiver_id"`
	PaymentMethod    *string         `gorm:"column:payment_method"`
	Priority         *string         `gorm:"column:priority"`
	Comments         *string         `gorm:"column:comments"`
	ApproverComments *string         `gorm:"column:approver_comments"`
	ApproverID       *int64          `gorm:"column:approver_id"`
	ApprovedAt       *time.Time      `gorm:"column:approved_at"`
	PayerID          *int64          `gorm:"column:payer_id"`
	PaidAt           *time.Time      `gorm:"column:paid_at"`
	QuotationFile    *string         `gorm:"column:quotation_file"`
	ReceiptFile      *string         `gorm:"column:receipt_file"`
	CreatedAt        time.Time       `gorm:"column:created_at;index"`
	UpdatedAt        time.Time       `gorm:"column:updated_at"`
	DeletedAt        *time.Time      `gorm:"column:deleted_at"`
}

func (Expense) TableName() string {
	return "expenses"
}

type ExpenseCategory struct {
	ExpenseID  int64 `gorm:"column:expense_id;primaryKey"`
	CategoryID int64 `gorm:"column:category_id;primaryKey"`
}

func (ExpenseCategory) TableName() string {
	return "expense_categories"
}

type ExpenseAccount struct {
	ExpenseID int64 `gorm:"column:expense_id;primaryKey"`
	AccountID int64 `gorm:"column:account_id;primaryKey"`
}

func (ExpenseAccount) TableName() string {
	return "expense_accounts"
}
