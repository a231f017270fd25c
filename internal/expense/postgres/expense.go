package postgres

import (
	"context"
	"strings"
	"time"

	errors "github.com/frahmantamala/expense-approval/internal"
	categoryPostgres "github.com/frahmantamala/expense-approval/internal/category/postgres"
	"github.com/frahmantamala/expense-approval/internal/core/database"
	expenseDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-approval/internal/expense"
	"gorm.io/gorm"
)

// ExpenseRepository implements expense.Repository using GORM
type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

var _ expense.Repository = (*ExpenseRepository)(nil)

// Create inserts the expense and its junction rows in one transaction. Links
// are checked first: categories must be live and every account must belong
// to one of them.
func (r *ExpenseRepository) Create(ctx context.Context, e *expense.Expense) error {
	row := expense.ToDataModel(e)
	err := database.GetDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := categoryPostgres.CheckCategories(tx, e.CategoryIDs); err != nil {
			return err
		}
		if err := categoryPostgres.CheckAccounts(tx, e.AccountIDs, e.CategoryIDs); err != nil {
			return err
		}
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		return replaceLinks(tx, row.ID, &e.CategoryIDs, &e.AccountIDs)
	})
	if err != nil {
		return database.Wrap(err, "failed to create expense")
	}
	e.ID = row.ID
	e.CreatedAt = row.CreatedAt
	e.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*expense.Expense, error) {
	var row expenseDatamodel.Expense
	if err := database.GetDB(ctx, r.db).Where("id = ?", id).First(&row).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, errors.ErrExpenseNotFound
		}
		return nil, database.Wrap(err, "failed to get expense")
	}
	out, err := r.withLinks(ctx, []*expenseDatamodel.Expense{&row})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// List orders newest first. The end date covers the whole day.
func (r *ExpenseRepository) List(ctx context.Context, f expense.Filter) ([]*expense.Expense, error) {
	db := database.GetDB(ctx, r.db)
	q := db.Model(&expenseDatamodel.Expense{}).Where("deleted_at IS NULL")

	if len(f.Phases) > 0 {
		phases := make([]string, len(f.Phases))
		for i, p := range f.Phases {
			phases[i] = string(p)
		}
		q = q.Where("phase IN ?", phases)
	}
	if f.RequesterID != nil {
		q = q.Where("user_id = ?", *f.RequesterID)
	}
	if f.StartDate != nil {
		q = q.Where("created_at >= ?", f.StartDate.UTC())
	}
	if f.EndDate != nil {
		q = q.Where("created_at < ?", f.EndDate.UTC().AddDate(0, 0, 1))
	}
	if f.MinAmount != nil {
		q = q.Where("amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		q = q.Where("amount <= ?", *f.MaxAmount)
	}
	if f.Query != "" {
		q = q.Where("LOWER(description) LIKE ?", likePattern(f.Query))
	}
	if f.Category != "" {
		matching := db.Session(&gorm.Session{NewDB: true}).
			Model(&expenseDatamodel.ExpenseCategory{}).
			Select("expense_categories.expense_id").
			Joins("JOIN categories ON categories.id = expense_categories.category_id").
			Where("LOWER(categories.description) LIKE ?", likePattern(f.Category))
		q = q.Where("id IN (?)", matching)
	}

	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var rows []*expenseDatamodel.Expense
	if err := q.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, database.Wrap(err, "failed to list expenses")
	}
	return r.withLinks(ctx, rows)
}

// Update is an unguarded partial update of a live expense.
func (r *ExpenseRepository) Update(ctx context.Context, id int64, patch expense.Patch) error {
	ok, err := r.update(ctx, id, "", patch)
	if err != nil {
		return err
	}
	if !ok {
		return errors.ErrExpenseNotFound
	}
	return nil
}

func (r *ExpenseRepository) UpdateIfPhase(ctx context.Context, id int64, expected expense.Phase, patch expense.Patch) (bool, error) {
	return r.update(ctx, id, expected, patch)
}

func (r *ExpenseRepository) update(ctx context.Context, id int64, expected expense.Phase, patch expense.Patch) (bool, error) {
	cols := patch.Columns()
	cols["updated_at"] = time.Now().UTC()

	var written bool
	err := database.GetDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&expenseDatamodel.Expense{}).Where("id = ? AND deleted_at IS NULL", id)
		if expected != "" {
			q = q.Where("phase = ?", string(expected))
		}
		res := q.Updates(cols)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		written = true

		if patch.CategoryIDs == nil && patch.AccountIDs == nil {
			return nil
		}
		categoryIDs, accountIDs, err := r.effectiveLinks(tx, id, patch)
		if err != nil {
			return err
		}
		if err := categoryPostgres.CheckCategories(tx, categoryIDs); err != nil {
			return err
		}
		if err := categoryPostgres.CheckAccounts(tx, accountIDs, categoryIDs); err != nil {
			return err
		}
		return replaceLinks(tx, id, patch.CategoryIDs, patch.AccountIDs)
	})
	if err != nil {
		return false, database.Wrap(err, "failed to update expense")
	}
	return written, nil
}

// effectiveLinks merges the patch's link sets with the stored ones, so the
// category/account consistency check sees the final state.
func (r *ExpenseRepository) effectiveLinks(tx *gorm.DB, id int64, patch expense.Patch) ([]int64, []int64, error) {
	var categoryIDs, accountIDs []int64
	if patch.CategoryIDs != nil {
		categoryIDs = *patch.CategoryIDs
	} else if err := tx.Model(&expenseDatamodel.ExpenseCategory{}).Where("expense_id = ?", id).Pluck("category_id", &categoryIDs).Error; err != nil {
		return nil, nil, err
	}
	if patch.AccountIDs != nil {
		accountIDs = *patch.AccountIDs
	} else if err := tx.Model(&expenseDatamodel.ExpenseAccount{}).Where("expense_id = ?", id).Pluck("account_id", &accountIDs).Error; err != nil {
		return nil, nil, err
	}
	return categoryIDs, accountIDs, nil
}

func (r *ExpenseRepository) SoftDelete(ctx context.Context, id int64) (bool, error) {
	res := database.GetDB(ctx, r.db).Model(&expenseDatamodel.Expense{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", time.Now().UTC())
	if res.Error != nil {
		return false, database.Wrap(res.Error, "failed to delete expense")
	}
	return res.RowsAffected > 0, nil
}

func replaceLinks(tx *gorm.DB, expenseID int64, categoryIDs, accountIDs *[]int64) error {
	if categoryIDs != nil {
		if err := tx.Where("expense_id = ?", expenseID).Delete(&expenseDatamodel.ExpenseCategory{}).Error; err != nil {
			return err
		}
		ids := categoryPostgres.UniqueIDs(*categoryIDs)
		if len(ids) > 0 {
			links := make([]expenseDatamodel.ExpenseCategory, len(ids))
			for i, id := range ids {
				links[i] = expenseDatamodel.ExpenseCategory{ExpenseID: expenseID, CategoryID: id}
			}
			if err := tx.Create(&links).Error; err != nil {
				return err
			}
		}
	}
	if accountIDs != nil {
		if err := tx.Where("expense_id = ?", expenseID).Delete(&expenseDatamodel.ExpenseAccount{}).Error; err != nil {
			return err
		}
		ids := categoryPostgres.UniqueIDs(*accountIDs)
		if len(ids) > 0 {
			links := make([]expenseDatamodel.ExpenseAccount, len(ids))
			for i, id := range ids {
				links[i] = expenseDatamodel.ExpenseAccount{ExpenseID: expenseID, AccountID: id}
			}
			if err := tx.Create(&links).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *ExpenseRepository) withLinks(ctx context.Context, rows []*expenseDatamodel.Expense) ([]*expense.Expense, error) {
	out := make([]*expense.Expense, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}

	db := database.GetDB(ctx, r.db)
	var cats []expenseDatamodel.ExpenseCategory
	if err := db.Where("expense_id IN ?", ids).Order("category_id").Find(&cats).Error; err != nil {
		return nil, database.Wrap(err, "failed to load expense categories")
	}
	var accts []expenseDatamodel.ExpenseAccount
	if err := db.Where("expense_id IN ?", ids).Order("account_id").Find(&accts).Error; err != nil {
		return nil, database.Wrap(err, "failed to load expense accounts")
	}

	catsBy := make(map[int64][]expenseDatamodel.ExpenseCategory, len(rows))
	for _, c := range cats {
		catsBy[c.ExpenseID] = append(catsBy[c.ExpenseID], c)
	}
	acctsBy := make(map[int64][]expenseDatamodel.ExpenseAccount, len(rows))
	for _, a := range accts {
		acctsBy[a.ExpenseID] = append(acctsBy[a.ExpenseID], a)
	}

	for _, row := range rows {
		out = append(out, expense.FromDataModel(row, catsBy[row.ID], acctsBy[row.ID]))
	}
	return out, nil
}

func likePattern(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("%", "", "_", "").Replace(s)
	return "%" + s + "%"
}
