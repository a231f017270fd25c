package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/report"
	"github.com/jmoiron/sqlx"
)

// ReportRepository reads expense rows for aggregation. It bypasses gorm and
// builds plain SELECTs with squirrel.
type ReportRepository struct {
	db          *sqlx.DB
	placeholder sq.PlaceholderFormat
}

func NewReportRepository(db *sqlx.DB) *ReportRepository {
	var placeholder sq.PlaceholderFormat = sq.Question
	if sqlx.BindType(db.DriverName()) == sqlx.DOLLAR {
		placeholder = sq.Dollar
	}
	return &ReportRepository{db: db, placeholder: placeholder}
}

// Load returns live expenses created within rg, each with its category
// descriptions.
func (r *ReportRepository) Load(ctx context.Context, rg report.Range) ([]report.Record, error) {
	query := sq.Select("id", "user_id", "amount", "phase", "created_at").
		From("expenses").
		Where(sq.Eq{"deleted_at": nil}).
		OrderBy("created_at ASC", "id ASC").
		PlaceholderFormat(r.placeholder)
	if rg.Start != nil {
		query = query.Where(sq.GtOrEq{"created_at": rg.Start.UTC()})
	}
	if rg.End != nil {
		query = query.Where(sq.Lt{"created_at": rg.End.UTC().AddDate(0, 0, 1)})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, errors.NewInternalError("failed to build report query", err)
	}

	var records []report.Record
	if err := r.db.SelectContext(ctx, &records, sql, args...); err != nil {
		return nil, errors.NewStoreUnavailableError("failed to load report records", err)
	}
	if len(records) == 0 {
		return []report.Record{}, nil
	}

	ids := make([]int64, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	names, err := r.categoryNames(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].Categories = names[records[i].ID]
	}
	return records, nil
}

type categoryRow struct {
	ExpenseID   int64  `db:"expense_id"`
	Description string `db:"description"`
}

func (r *ReportRepository) categoryNames(ctx context.Context, expenseIDs []int64) (map[int64][]string, error) {
	sql, args, err := sq.Select("ec.expense_id", "c.description").
		From("expense_categories ec").
		Join("categories c ON c.id = ec.category_id").
		Where(sq.Eq{"ec.expense_id": expenseIDs}).
		OrderBy("ec.expense_id", "c.description").
		PlaceholderFormat(r.placeholder).
		ToSql()
	if err != nil {
		return nil, errors.NewInternalError("failed to build category query", err)
	}

	var rows []categoryRow
	if err := r.db.SelectContext(ctx, &rows, sql, args...); err != nil {
		return nil, errors.NewStoreUnavailableError("failed to load expense categories", err)
	}

	out := make(map[int64][]string, len(expenseIDs))
	for _, row := range rows {
		out[row.ExpenseID] = append(out[row.ExpenseID], row.Description)
	}
	return out, nil
}

type userRow struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// UserNames resolves display names, deactivated users included.
func (r *ReportRepository) UserNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	sql, args, err := sq.Select("id", "name").
		From("users").
		Where(sq.Eq{"id": ids}).
		PlaceholderFormat(r.placeholder).
		ToSql()
	if err != nil {
		return nil, errors.NewInternalError("failed to build user query", err)
	}

	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, sql, args...); err != nil {
		return nil, errors.NewStoreUnavailableError("failed to load user names", err)
	}
	for _, row := range rows {
		out[row.ID] = row.Name
	}
	return out, nil
}
