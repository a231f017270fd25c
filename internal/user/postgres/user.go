package postgres

import (
	"context"
	"time"

	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/database"
	userDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/user"
	"github.com/frahmantamala/expense-approval/internal/core/identity"
	"github.com/frahmantamala/expense-approval/internal/user"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

var _ user.Repository = (*UserRepository)(nil)

func (r *UserRepository) List(ctx context.Context, role *identity.Role) ([]*user.User, error) {
	q := database.GetDB(ctx, r.db).Where("deleted_at IS NULL")
	if role != nil {
		q = q.Where("id IN (?)", r.db.Model(&userDatamodel.UserRole{}).Select("user_id").Where("role = ?", string(*role)))
	}

	var rows []*userDatamodel.User
	if err := q.Order("name ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, database.Wrap(err, "failed to list users")
	}
	return r.withRoles(ctx, rows)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64, includeDeleted bool) (*user.User, error) {
	q := database.GetDB(ctx, r.db).Where("id = ?", id)
	if !includeDeleted {
		q = q.Where("deleted_at IS NULL")
	}
	return r.first(ctx, q)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string, includeDeleted bool) (*user.User, error) {
	q := database.GetDB(ctx, r.db).Where("LOWER(email) = ?", user.NormalizeEmail(email))
	if !includeDeleted {
		q = q.Where("deleted_at IS NULL")
	}
	return r.first(ctx, q)
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	row := user.ToDataModel(u)
	err := database.GetDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		if len(u.Roles) == 0 {
			return nil
		}
		roles := make([]userDatamodel.UserRole, len(u.Roles))
		for i, role := range u.Roles {
			roles[i] = userDatamodel.UserRole{UserID: row.ID, Role: string(role)}
		}
		return tx.Create(&roles).Error
	})
	if err != nil {
		if database.IsDuplicate(err) {
			return errors.ErrEmailTaken
		}
		return database.Wrap(err, "failed to create user")
	}
	u.ID = row.ID
	u.CreatedAt = row.CreatedAt
	return nil
}

func (r *UserRepository) Update(ctx context.Context, id int64, name, email *string) error {
	updates := map[string]interface{}{}
	if name != nil {
		updates["name"] = *name
	}
	if email != nil {
		updates["email"] = *email
	}
	if len(updates) == 0 {
		_, err := r.GetByID(ctx, id, false)
		return err
	}

	res := database.GetDB(ctx, r.db).Model(&userDatamodel.User{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(updates)
	if res.Error != nil {
		if database.IsDuplicate(res.Error) {
			return errors.ErrEmailTaken
		}
		return database.Wrap(res.Error, "failed to update user")
	}
	if res.RowsAffected == 0 {
		return errors.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SoftDelete(ctx context.Context, id int64) (bool, error) {
	res := database.GetDB(ctx, r.db).Model(&userDatamodel.User{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", time.Now().UTC())
	if res.Error != nil {
		return false, database.Wrap(res.Error, "failed to delete user")
	}
	return res.RowsAffected > 0, nil
}

func (r *UserRepository) AddRole(ctx context.Context, userID int64, role identity.Role) error {
	err := database.GetDB(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&userDatamodel.UserRole{UserID: userID, Role: string(role)}).Error
	return database.Wrap(err, "failed to assign role")
}

func (r *UserRepository) RemoveRole(ctx context.Context, userID int64, role identity.Role) (bool, error) {
	res := database.GetDB(ctx, r.db).
		Where("user_id = ? AND role = ?", userID, string(role)).
		Delete(&userDatamodel.UserRole{})
	if res.Error != nil {
		return false, database.Wrap(res.Error, "failed to remove role")
	}
	return res.RowsAffected > 0, nil
}

// Roles is a pure projection of user_roles. No rows is a valid answer.
func (r *UserRepository) Roles(ctx context.Context, userID int64) (identity.Roles, error) {
	var rows []userDatamodel.UserRole
	if err := database.GetDB(ctx, r.db).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, database.Wrap(err, "failed to load roles")
	}
	roles := make([]identity.Role, len(rows))
	for i, row := range rows {
		roles[i] = identity.Role(row.Role)
	}
	return identity.NewRoles(roles...), nil
}

func (r *UserRepository) first(ctx context.Context, q *gorm.DB) (*user.User, error) {
	var row userDatamodel.User
	if err := q.First(&row).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, errors.ErrUserNotFound
		}
		return nil, database.Wrap(err, "failed to get user")
	}
	users, err := r.withRoles(ctx, []*userDatamodel.User{&row})
	if err != nil {
		return nil, err
	}
	return users[0], nil
}

func (r *UserRepository) withRoles(ctx context.Context, rows []*userDatamodel.User) ([]*user.User, error) {
	out := make([]*user.User, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}

	var roleRows []userDatamodel.UserRole
	if err := database.GetDB(ctx, r.db).Where("user_id IN ?", ids).Find(&roleRows).Error; err != nil {
		return nil, database.Wrap(err, "failed to load roles")
	}
	byUser := make(map[int64][]userDatamodel.UserRole, len(rows))
	for _, rr := range roleRows {
		byUser[rr.UserID] = append(byUser[rr.UserID], rr)
	}

	for _, row := range rows {
		out = append(out, user.FromDataModel(row, byUser[row.ID]))
	}
	return out, nil
}
