package postgres

import (
	"sort"

	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/database"
	categoryDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/category"
	"gorm.io/gorm"
)

// UniqueIDs returns ids sorted with duplicates removed.
func UniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CheckCategories fails with a validation error unless every id names a
// live category. db is expected to be bound to the caller's transaction.
func CheckCategories(db *gorm.DB, ids []int64) error {
	ids = UniqueIDs(ids)
	if len(ids) == 0 {
		return nil
	}

	var count int64
	err := db.Model(&categoryDatamodel.Category{}).
		Where("id IN ? AND deleted_at IS NULL", ids).
		Count(&count).Error
	if err != nil {
		return database.Wrap(err, "failed to check categories")
	}
	if int(count) != len(ids) {
		return errors.NewValidationFieldError("category_ids", "unknown or deleted category", errors.ErrCodeInvalidCategory)
	}
	return nil
}

// CheckAccounts fails unless every id names a live account. When within is
// non-empty each account must also belong to one of those categories.
func CheckAccounts(db *gorm.DB, ids []int64, within []int64) error {
	ids = UniqueIDs(ids)
	if len(ids) == 0 {
		return nil
	}

	q := db.Model(&categoryDatamodel.Account{}).Where("id IN ? AND deleted_at IS NULL", ids)
	if len(within) > 0 {
		q = q.Where("category_id IN ?", UniqueIDs(within))
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return database.Wrap(err, "failed to check accounts")
	}
	if int(count) != len(ids) {
		msg := "unknown or deleted account"
		if len(within) > 0 {
			msg = "account does not exist or is outside the selected categories"
		}
		return errors.NewValidationFieldError("account_ids", msg, errors.ErrCodeInvalidAccount)
	}
	return nil
}
