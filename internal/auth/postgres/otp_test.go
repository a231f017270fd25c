package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/frahmantamala/expense-approval/internal/auth"
	authPostgres "github.com/frahmantamala/expense-approval/internal/auth/postgres"
	"github.com/frahmantamala/expense-approval/internal/core/database/testdb"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

func TestAuthPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Postgres Suite")
}

var _ = Describe("OTP Repository", func() {
	var (
		ctx  context.Context
		db   *gorm.DB
		repo *authPostgres.OTPRepository
	)

	save := func(email, hash string, createdAt time.Time) *auth.OTPRecord {
		rec := &auth.OTPRecord{Email: email, CodeHash: hash, ExpiresAt: createdAt.Add(time.Minute), CreatedAt: createdAt}
		Expect(repo.Save(ctx, rec)).To(Succeed())
		return rec
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = testdb.Open()
		Expect(err).NotTo(HaveOccurred())
		repo = authPostgres.NewOTPRepository(db)
	})

	AfterEach(func() {
		Expect(testdb.Close(db)).To(Succeed())
	})

	It("returns nil when no code is outstanding", func() {
		rec, err := repo.Latest(ctx, "none@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(rec).To(BeNil())
	})

	It("returns the newest unconsumed code", func() {
		now := time.Now().UTC()
		save("a@example.com", "old", now.Add(-time.Minute))
		newest := save("a@example.com", "new", now)

		rec, err := repo.Latest(ctx, "a@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.ID).To(Equal(newest.ID))
		Expect(rec.CodeHash).To(Equal("new"))
	})

	It("counts attempts and consumes once", func() {
		rec := save("a@example.com", "h", time.Now().UTC())

		Expect(repo.IncrementAttempts(ctx, rec.ID)).To(Succeed())
		Expect(repo.IncrementAttempts(ctx, rec.ID)).To(Succeed())
		got, err := repo.Latest(ctx, "a@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Attempts).To(Equal(2))

		ok, err := repo.Consume(ctx, rec.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())

		ok, err = repo.Consume(ctx, rec.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())

		got, err = repo.Latest(ctx, "a@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeNil())
	})
})
