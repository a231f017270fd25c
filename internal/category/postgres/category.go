package postgres

import (
	"context"
	"time"

	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/category"
	"github.com/frahmantamala/expense-approval/internal/core/database"
	categoryDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/category"
	"gorm.io/gorm"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) category.RepositoryAPI {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) ListCategories(ctx context.Context) ([]*category.Category, error) {
	var rows []*categoryDatamodel.Category
	err := database.GetDB(ctx, r.db).
		Where("deleted_at IS NULL").
		Order("description ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, database.Wrap(err, "failed to list categories")
	}

	out := make([]*category.Category, len(rows))
	for i, row := range rows {
		out[i] = category.FromDataModel(row)
	}
	return out, nil
}

// GetCategory resolves soft-deleted rows too.
func (r *CategoryRepository) GetCategory(ctx context.Context, id int64) (*category.Category, error) {
	var row categoryDatamodel.Category
	if err := database.GetDB(ctx, r.db).Where("id = ?", id).First(&row).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, errors.ErrCategoryNotFound
		}
		return nil, database.Wrap(err, "failed to get category")
	}
	return category.FromDataModel(&row), nil
}

func (r *CategoryRepository) CreateCategory(ctx context.Context, c *category.Category) error {
	row := category.ToDataModel(c)
	if err := database.GetDB(ctx, r.db).Create(row).Error; err != nil {
		return database.Wrap(err, "failed to create category")
	}
	c.ID = row.ID
	c.CreatedAt = row.CreatedAt
	return nil
}

func (r *CategoryRepository) UpdateCategory(ctx context.Context, id int64, description string) error {
	res := database.GetDB(ctx, r.db).Model(&categoryDatamodel.Category{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("description", description)
	if res.Error != nil {
		return database.Wrap(res.Error, "failed to update category")
	}
	if res.RowsAffected == 0 {
		return errors.ErrCategoryNotFound
	}
	return nil
}

func (r *CategoryRepository) DeleteCategory(ctx context.Context, id int64) (bool, error) {
	return r.softDelete(ctx, &categoryDatamodel.Category{}, id)
}

func (r *CategoryRepository) ListAccounts(ctx context.Context, categoryID *int64) ([]*category.Account, error) {
	q := database.GetDB(ctx, r.db).Where("deleted_at IS NULL")
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	}

	var rows []*categoryDatamodel.Account
	if err := q.Order("description ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, database.Wrap(err, "failed to list accounts")
	}

	out := make([]*category.Account, len(rows))
	for i, row := range rows {
		out[i] = category.AccountFromDataModel(row)
	}
	return out, nil
}

func (r *CategoryRepository) GetAccount(ctx context.Context, id int64) (*category.Account, error) {
	var row categoryDatamodel.Account
	if err := database.GetDB(ctx, r.db).Where("id = ?", id).First(&row).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, errors.ErrAccountNotFound
		}
		return nil, database.Wrap(err, "failed to get account")
	}
	return category.AccountFromDataModel(&row), nil
}

func (r *CategoryRepository) CreateAccount(ctx context.Context, a *category.Account) error {
	row := category.AccountToDataModel(a)
	if err := database.GetDB(ctx, r.db).Create(row).Error; err != nil {
		return database.Wrap(err, "failed to create account")
	}
	a.ID = row.ID
	a.CreatedAt = row.CreatedAt
	return nil
}

func (r *CategoryRepository) UpdateAccount(ctx context.Context, id int64, categoryID *int64, description *string) error {
	updates := map[string]interface{}{}
	if categoryID != nil {
		updates["category_id"] = *categoryID
	}
	if description != nil {
		updates["description"] = *description
	}
	if len(updates) == 0 {
		_, err := r.GetAccount(ctx, id)
		return err
	}

	res := database.GetDB(ctx, r.db).Model(&categoryDatamodel.Account{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(updates)
	if res.Error != nil {
		return database.Wrap(res.Error, "failed to update account")
	}
	if res.RowsAffected == 0 {
		return errors.ErrAccountNotFound
	}
	return nil
}

func (r *CategoryRepository) DeleteAccount(ctx context.Context, id int64) (bool, error) {
	return r.softDelete(ctx, &categoryDatamodel.Account{}, id)
}

func (r *CategoryRepository) softDelete(ctx context.Context, model interface{}, id int64) (bool, error) {
	res := database.GetDB(ctx, r.db).Model(model).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", time.Now().UTC())
	if res.Error != nil {
		return false, database.Wrap(res.Error, "failed to delete")
	}
	return res.RowsAffected > 0, nil
}
