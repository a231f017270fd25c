package postgres

import (
	"context"
	"time"

	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/core/database"
	userDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/user"
	"gorm.io/gorm"
)

type OTPRepository struct {
	db *gorm.DB
}

func NewOTPRepository(db *gorm.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

var _ auth.OTPStore = (*OTPRepository)(nil)

func (r *OTPRepository) Save(ctx context.Context, rec *auth.OTPRecord) error {
	row := &userDatamodel.OTPCode{
		Email:     rec.Email,
		CodeHash:  rec.CodeHash,
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
	}
	if err := database.GetDB(ctx, r.db).Create(row).Error; err != nil {
		return database.Wrap(err, "failed to store one-time code")
	}
	rec.ID = row.ID
	return nil
}

func (r *OTPRepository) Latest(ctx context.Context, email string) (*auth.OTPRecord, error) {
	var row userDatamodel.OTPCode
	err := database.GetDB(ctx, r.db).
		Where("email = ? AND consumed_at IS NULL", email).
		Order("created_at DESC, id DESC").
		First(&row).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, nil
		}
		return nil, database.Wrap(err, "failed to load one-time code")
	}
	return &auth.OTPRecord{
		ID:         row.ID,
		Email:      row.Email,
		CodeHash:   row.CodeHash,
		Attempts:   row.Attempts,
		ExpiresAt:  row.ExpiresAt,
		ConsumedAt: row.ConsumedAt,
		CreatedAt:  row.CreatedAt,
	}, nil
}

func (r *OTPRepository) IncrementAttempts(ctx context.Context, id int64) error {
	err := database.GetDB(ctx, r.db).Model(&userDatamodel.OTPCode{}).
		Where("id = ?", id).
		Update("attempts", gorm.Expr("attempts + 1")).Error
	return database.Wrap(err, "failed to record attempt")
}

func (r *OTPRepository) Consume(ctx context.Context, id int64) (bool, error) {
	res := database.GetDB(ctx, r.db).Model(&userDatamodel.OTPCode{}).
		Where("id = ? AND consumed_at IS NULL", id).
		Update("consumed_at", time.Now().UTC())
	if res.Error != nil {
		return false, database.Wrap(res.Error, "failed to consume one-time code")
	}
	return res.RowsAffected > 0, nil
}
