package postgres

import (
	"context"
	"time"

	errors "github.com/frahmantamala/expense-approval/internal"
	categoryPostgres "github.com/frahmantamala/expense-approval/internal/category/postgres"
	"github.com/frahmantamala/expense-approval/internal/core/database"
	receiverDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/receiver"
	"github.com/frahmantamala/expense-approval/internal/receiver"
	"gorm.io/gorm"
)

type ReceiverRepository struct {
	db *gorm.DB
}

func NewReceiverRepository(db *gorm.DB) *ReceiverRepository {
	return &ReceiverRepository{db: db}
}

var _ receiver.RepositoryAPI = (*ReceiverRepository)(nil)

func (r *ReceiverRepository) List(ctx context.Context) ([]*receiver.Receiver, error) {
	var rows []*receiverDatamodel.Receiver
	err := database.GetDB(ctx, r.db).
		Where("deleted_at IS NULL").
		Order("name ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, database.Wrap(err, "failed to list receivers")
	}
	return r.withLinks(ctx, rows)
}

func (r *ReceiverRepository) GetByID(ctx context.Context, id int64) (*receiver.Receiver, error) {
	var row receiverDatamodel.Receiver
	if err := database.GetDB(ctx, r.db).Where("id = ?", id).First(&row).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, errors.ErrReceiverNotFound
		}
		return nil, database.Wrap(err, "failed to get receiver")
	}
	out, err := r.withLinks(ctx, []*receiverDatamodel.Receiver{&row})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// ByCategories selects through the junction with IN, so a receiver linked to
// several of the categories still appears once.
func (r *ReceiverRepository) ByCategories(ctx context.Context, categoryIDs []int64) ([]*receiver.Receiver, error) {
	db := database.GetDB(ctx, r.db)
	linked := db.Session(&gorm.Session{NewDB: true}).
		Model(&receiverDatamodel.ReceiverCategory{}).
		Select("receiver_id").
		Where("category_id IN ?", categoryPostgres.UniqueIDs(categoryIDs))

	var rows []*receiverDatamodel.Receiver
	err := db.Where("deleted_at IS NULL AND id IN (?)", linked).
		Order("name ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, database.Wrap(err, "failed to list receivers by category")
	}
	return r.withLinks(ctx, rows)
}

func (r *ReceiverRepository) Create(ctx context.Context, rc *receiver.Receiver) error {
	row := receiver.ToDataModel(rc)
	err := database.GetDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := categoryPostgres.CheckCategories(tx, rc.CategoryIDs); err != nil {
			return err
		}
		if err := categoryPostgres.CheckAccounts(tx, rc.AccountIDs, nil); err != nil {
			return err
		}
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		return replaceLinks(tx, row.ID, &rc.CategoryIDs, &rc.AccountIDs)
	})
	if err != nil {
		return database.Wrap(err, "failed to create receiver")
	}
	rc.ID = row.ID
	rc.CreatedAt = row.CreatedAt
	return nil
}

// Update writes the scalar patch and replaces whichever link sets are given,
// all in one transaction.
func (r *ReceiverRepository) Update(ctx context.Context, id int64, patch receiver.Patch, categoryIDs, accountIDs *[]int64) error {
	err := database.GetDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&receiverDatamodel.Receiver{}).Where("id = ? AND deleted_at IS NULL", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return errors.ErrReceiverNotFound
		}

		if !patch.Empty() {
			updates := map[string]interface{}{}
			if patch.Email != nil {
				updates["email"] = *patch.Email
			}
			if patch.Phone != nil {
				updates["phone"] = *patch.Phone
			}
			if patch.Role != nil {
				updates["role"] = *patch.Role
			}
			if err := tx.Model(&receiverDatamodel.Receiver{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}

		if categoryIDs != nil {
			if err := categoryPostgres.CheckCategories(tx, *categoryIDs); err != nil {
				return err
			}
		}
		if accountIDs != nil {
			if err := categoryPostgres.CheckAccounts(tx, *accountIDs, nil); err != nil {
				return err
			}
		}
		return replaceLinks(tx, id, categoryIDs, accountIDs)
	})
	return database.Wrap(err, "failed to update receiver")
}

func (r *ReceiverRepository) SoftDelete(ctx context.Context, id int64) (bool, error) {
	res := database.GetDB(ctx, r.db).Model(&receiverDatamodel.Receiver{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", time.Now().UTC())
	if res.Error != nil {
		return false, database.Wrap(res.Error, "failed to delete receiver")
	}
	return res.RowsAffected > 0, nil
}

func replaceLinks(tx *gorm.DB, receiverID int64, categoryIDs, accountIDs *[]int64) error {
	if categoryIDs != nil {
		if err := tx.Where("receiver_id = ?", receiverID).Delete(&receiverDatamodel.ReceiverCategory{}).Error; err != nil {
			return err
		}
		ids := categoryPostgres.UniqueIDs(*categoryIDs)
		if len(ids) > 0 {
			links := make([]receiverDatamodel.ReceiverCategory, len(ids))
			for i, id := range ids {
				links[i] = receiverDatamodel.ReceiverCategory{ReceiverID: receiverID, CategoryID: id}
			}
			if err := tx.Create(&links).Error; err != nil {
				return err
			}
		}
	}
	if accountIDs != nil {
		if err := tx.Where("receiver_id = ?", receiverID).Delete(&receiverDatamodel.ReceiverAccount{}).Error; err != nil {
			return err
		}
		ids := categoryPostgres.UniqueIDs(*accountIDs)
		if len(ids) > 0 {
			links := make([]receiverDatamodel.ReceiverAccount, len(ids))
			for i, id := range ids {
				links[i] = receiverDatamodel.ReceiverAccount{ReceiverID: receiverID, AccountID: id}
			}
			if err := tx.Create(&links).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *ReceiverRepository) withLinks(ctx context.Context, rows []*receiverDatamodel.Receiver) ([]*receiver.Receiver, error) {
	out := make([]*receiver.Receiver, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}

	db := database.GetDB(ctx, r.db)
	var cats []receiverDatamodel.ReceiverCategory
	if err := db.Where("receiver_id IN ?", ids).Order("category_id").Find(&cats).Error; err != nil {
		return nil, database.Wrap(err, "failed to load receiver categories")
	}
	var accts []receiverDatamodel.ReceiverAccount
	if err := db.Where("receiver_id IN ?", ids).Order("account_id").Find(&accts).Error; err != nil {
		return nil, database.Wrap(err, "failed to load receiver accounts")
	}

	catsBy := make(map[int64][]receiverDatamodel.ReceiverCategory, len(rows))
	for _, c := range cats {
		catsBy[c.ReceiverID] = append(catsBy[c.ReceiverID], c)
	}
	acctsBy := make(map[int64][]receiverDatamodel.ReceiverAccount, len(rows))
	for _, a := range accts {
		acctsBy[a.ReceiverID] = append(acctsBy[a.ReceiverID], a)
	}

	for _, row := range rows {
		out = append(out, receiver.FromDataModel(row, catsBy[row.ID], acctsBy[row.ID]))
	}
	return out, nil
}
