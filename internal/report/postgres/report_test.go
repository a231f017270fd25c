package postgres_test

import (
	"context"
	"testing"
	"time"

	categoryDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/category"
	expenseDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/expense"
	userDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/user"
	"github.com/frahmantamala/expense-approval/internal/core/database/testdb"
	"github.com/frahmantamala/expense-approval/internal/report"
	reportPostgres "github.com/frahmantamala/expense-approval/internal/report/postgres"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func TestReportPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Report Postgres Suite")
}

var _ = Describe("Report Repository", func() {
	var (
		ctx  context.Context
		db   *gorm.DB
		repo *reportPostgres.ReportRepository

		ana, luis int64
	)

	insert := func(userID int64, amount string, createdAt time.Time, deleted bool, categoryIDs ...int64) int64 {
		row := &expenseDatamodel.Expense{
			UserID:      userID,
			Description: "gasto",
			Amount:      decimal.RequireFromString(amount),
			Phase:       "created",
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		}
		if deleted {
			now := time.Now().UTC()
			row.DeletedAt = &now
		}
		Expect(db.Create(row).Error).To(Succeed())
		for _, c := range categoryIDs {
			Expect(db.Create(&expenseDatamodel.ExpenseCategory{ExpenseID: row.ID, CategoryID: c}).Error).To(Succeed())
		}
		return row.ID
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = testdb.Open()
		Expect(err).NotTo(HaveOccurred())

		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		repo = reportPostgres.NewReportRepository(sqlx.NewDb(sqlDB, "sqlite3"))

		users := []*userDatamodel.User{{Name: "Ana", Email: "ana@example.com"}, {Name: "Luis", Email: "luis@example.com"}}
		for _, u := range users {
			Expect(db.Create(u).Error).To(Succeed())
		}
		ana, luis = users[0].ID, users[1].ID
	})

	AfterEach(func() {
		Expect(testdb.Close(db)).To(Succeed())
	})

	It("honours inclusive day bounds and skips deleted rows", func() {
		inside := insert(ana, "10.00", time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC), false)
		insert(ana, "20.00", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), false)
		insert(ana, "30.00", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), true)
		first := insert(luis, "40.00", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), false)

		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
		records, err := repo.Load(ctx, report.Range{Start: &start, End: &end})

		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(2))
		Expect(records[0].ID).To(Equal(first))
		Expect(records[1].ID).To(Equal(inside))
		Expect(records[1].Amount.Equal(decimal.RequireFromString("10"))).To(BeTrue())
		Expect(records[1].CreatedAt.UTC().Day()).To(Equal(31))
	})

	It("attaches category descriptions", func() {
		cats := []*categoryDatamodel.Category{{Description: "Transporte"}, {Description: "Comida"}}
		for _, c := range cats {
			Expect(db.Create(c).Error).To(Succeed())
		}
		both := insert(ana, "80.00", time.Now().UTC(), false, cats[0].ID, cats[1].ID)
		none := insert(luis, "5.00", time.Now().UTC(), false)

		records, err := repo.Load(ctx, report.Range{})
		Expect(err).NotTo(HaveOccurred())

		byID := map[int64]report.Record{}
		for _, r := range records {
			byID[r.ID] = r
		}
		Expect(byID[both].Categories).To(Equal([]string{"Comida", "Transporte"}))
		Expect(byID[none].Categories).To(BeEmpty())
	})

	It("returns an empty slice when nothing matches", func() {
		records, err := repo.Load(ctx, report.Range{})
		Expect(err).NotTo(HaveOccurred())
		Expect(records).NotTo(BeNil())
		Expect(records).To(BeEmpty())
	})

	It("resolves names including deactivated users", func() {
		Expect(db.Model(&userDatamodel.User{}).Where("id = ?", luis).Update("deleted_at", time.Now().UTC()).Error).To(Succeed())

		names, err := repo.UserNames(ctx, []int64{ana, luis, 999})
		Expect(err).NotTo(HaveOccurred())
		Expect(names).To(Equal(map[int64]string{ana: "Ana", luis: "Luis"}))
	})
})
