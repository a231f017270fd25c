package expense_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	appErrors "github.com/frahmantamala/expense-approval/internal"
	categoryDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/category"
	"github.com/frahmantamala/expense-approval/internal/core/database/testdb"
	"github.com/frahmantamala/expense-approval/internal/core/events"
	"github.com/frahmantamala/expense-approval/internal/core/identity"
	"github.com/frahmantamala/expense-approval/internal/expense"
	expensePostgres "github.com/frahmantamala/expense-approval/internal/expense/postgres"
	"github.com/frahmantamala/expense-approval/internal/storage"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type mockReceivers struct {
	eligible map[int64][]int64
}

func (m *mockReceivers) CheckEligible(_ context.Context, receiverID int64, categoryIDs []int64) error {
	for _, want := range categoryIDs {
		for _, have := range m.eligible[receiverID] {
			if want == have {
				return nil
			}
		}
	}
	return appErrors.NewValidationFieldError("receiver_id", "receiver is not linked to any selected category", appErrors.ErrCodeInvalidReceiver)
}

type mockStore struct {
	uploads []storage.Bucket
	fail    error
}

func (m *mockStore) Upload(_ context.Context, bucket storage.Bucket, filename string, body io.Reader, size int64, _ string) (*storage.Descriptor, error) {
	if err := storage.CheckFile(bucket, filename, size, 0); err != nil {
		return nil, err
	}
	if m.fail != nil {
		return nil, m.fail
	}
	_, _ = io.Copy(io.Discard, body)
	m.uploads = append(m.uploads, bucket)
	return &storage.Descriptor{URL: "https://files.test/" + string(bucket) + "/" + filename, Name: filename, Size: size}, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	types  []string
	failed bool
}

func (p *capturePublisher) PublishSync(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, event.EventType())
	if p.failed {
		return errors.New("subscriber down")
	}
	return nil
}

var _ = Describe("Expense Service", func() {
	var (
		ctx       context.Context
		db        *gorm.DB
		service   *expense.Service
		store     *mockStore
		publisher *capturePublisher

		requester, other, approver, payer, viewer, admin *identity.Session

		transporte, comida int64
		taxi, almuerzo     int64
	)

	session := func(id int64, roles ...identity.Role) *identity.Session {
		return identity.NewSession(identity.User{ID: id}, roles)
	}

	draft := func() expense.CreateExpenseDTO {
		return expense.CreateExpenseDTO{
			Description: "Taxi al cliente",
			Amount:      decimal.RequireFromString("150.00"),
			CategoryIDs: []int64{transporte},
			AccountIDs:  []int64{taxi},
		}
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = testdb.Open()
		Expect(err).NotTo(HaveOccurred())

		cats := []*categoryDatamodel.Category{{Description: "Transporte"}, {Description: "Comida"}}
		for _, c := range cats {
			Expect(db.Create(c).Error).To(Succeed())
		}
		transporte, comida = cats[0].ID, cats[1].ID
		accts := []*categoryDatamodel.Account{{CategoryID: transporte, Description: "Taxi"}, {CategoryID: comida, Description: "Almuerzo"}}
		for _, a := range accts {
			Expect(db.Create(a).Error).To(Succeed())
		}
		taxi, almuerzo = accts[0].ID, accts[1].ID

		store = &mockStore{}
		publisher = &capturePublisher{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		receivers := &mockReceivers{eligible: map[int64][]int64{9: {transporte}}}
		service = expense.NewService(expensePostgres.NewExpenseRepository(db), receivers, store, publisher, logger)

		requester = session(10, identity.RoleRequester)
		other = session(11, identity.RoleRequester)
		approver = session(20, identity.RoleApprover)
		payer = session(30, identity.RolePayer)
		viewer = session(40, identity.RoleViewer)
		admin = session(1, identity.RoleAdmin)
	})

	AfterEach(func() {
		Expect(testdb.Close(db)).To(Succeed())
	})

	Describe("the approval walk-through", func() {
		It("goes created, approved, paid and refuses a second payment", func() {
			dto := draft()
			receiverID := int64(9)
			dto.ReceiverID = &receiverID

			e, err := service.Create(ctx, requester, dto)
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Phase).To(Equal(expense.PhaseCreated))
			Expect(e.ApproverID).To(BeNil())
			Expect(e.Amount.Equal(decimal.NewFromInt(150))).To(BeTrue())

			e, err = service.Approve(ctx, approver, e.ID, expense.ApproveExpenseDTO{Comment: strPtr("ok")})
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Phase).To(Equal(expense.PhaseApproved))
			Expect(*e.ApproverID).To(Equal(int64(20)))
			Expect(e.ApprovedAt).NotTo(BeNil())
			Expect(*e.ApproverComments).To(Equal("ok"))
			Expect(e.PayerID).To(BeNil())

			e, err = service.Pay(ctx, payer, e.ID, expense.PayExpenseDTO{PaymentDate: strPtr("2024-01-15")})
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Phase).To(Equal(expense.PhasePaid))
			Expect(*e.PayerID).To(Equal(int64(30)))
			Expect(e.PaidAt.UTC().Format("2006-01-02")).To(Equal("2024-01-15"))

			_, err = service.Pay(ctx, payer, e.ID, expense.PayExpenseDTO{})
			Expect(errors.Is(err, appErrors.ErrInvalidTransition)).To(BeTrue())

			Expect(publisher.types).To(Equal([]string{
				events.EventTypeExpenseCreated,
				events.EventTypeExpenseApproved,
				events.EventTypeExpensePaid,
			}))
		})
	})

	Describe("Create", func() {
		It("needs the requester role", func() {
			_, err := service.Create(ctx, approver, draft())
			Expect(errors.Is(err, appErrors.ErrPermissionDenied)).To(BeTrue())
		})

		It("rejects accounts outside the selected categories and persists nothing", func() {
			dto := draft()
			dto.AccountIDs = []int64{almuerzo}
			_, err := service.Create(ctx, requester, dto)
			Expect(appErrors.IsType(err, appErrors.ErrorTypeValidation)).To(BeTrue())

			var count int64
			Expect(db.Table("expenses").Count(&count).Error).To(Succeed())
			Expect(count).To(BeZero())
			Expect(db.Table("expense_categories").Count(&count).Error).To(Succeed())
			Expect(count).To(BeZero())
		})

		It("rejects a receiver that does not serve the categories", func() {
			dto := draft()
			dto.CategoryIDs = []int64{comida}
			dto.AccountIDs = []int64{almuerzo}
			receiverID := int64(9)
			dto.ReceiverID = &receiverID
			_, err := service.Create(ctx, requester, dto)
			Expect(appErrors.IsType(err, appErrors.ErrorTypeValidation)).To(BeTrue())
		})

		It("does not fail when an event subscriber does", func() {
			publisher.failed = true
			_, err := service.Create(ctx, requester, draft())
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("reads", func() {
		var mine, theirs *expense.Expense

		BeforeEach(func() {
			var err error
			mine, err = service.Create(ctx, requester, draft())
			Expect(err).NotTo(HaveOccurred())
			theirs, err = service.Create(ctx, other, draft())
			Expect(err).NotTo(HaveOccurred())
		})

		It("lets owners and reviewers read, but not other requesters", func() {
			_, err := service.Get(ctx, requester, mine.ID)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Get(ctx, viewer, mine.ID)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Get(ctx, requester, theirs.ID)
			Expect(errors.Is(err, appErrors.ErrPermissionDenied)).To(BeTrue())
		})

		It("scopes requester listings to their own expenses", func() {
			list, err := service.List(ctx, requester, expense.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(1))
			Expect(list[0].ID).To(Equal(mine.ID))

			all, err := service.List(ctx, approver, expense.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))
		})

		It("lists pending expenses and recent ones", func() {
			_, err := service.Reject(ctx, approver, theirs.ID, expense.RejectExpenseDTO{Comment: "duplicado"})
			Expect(err).NotTo(HaveOccurred())

			pending, err := service.ListPending(ctx, approver, 0, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(HaveLen(1))
			Expect(pending[0].ID).To(Equal(mine.ID))

			recent, err := service.Recent(ctx, admin, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(recent).To(HaveLen(1))
		})

		It("ListMine ignores a requester filter for someone else", func() {
			someone := theirs.UserID
			list, err := service.ListMine(ctx, approver, expense.Filter{RequesterID: &someone})
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(BeEmpty())
		})
	})

	Describe("Update and Delete", func() {
		var e *expense.Expense

		BeforeEach(func() {
			var err error
			e, err = service.Create(ctx, requester, draft())
			Expect(err).NotTo(HaveOccurred())
		})

		It("lets the owner edit while created and replaces link sets", func() {
			amount := decimal.RequireFromString("99.90")
			cats := []int64{transporte, comida}
			accts := []int64{taxi, almuerzo}
			updated, err := service.Update(ctx, requester, e.ID, expense.UpdateExpenseDTO{
				Amount:      &amount,
				CategoryIDs: &cats,
				AccountIDs:  &accts,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Amount.Equal(amount)).To(BeTrue())
			Expect(updated.CategoryIDs).To(ConsistOf(transporte, comida))
			Expect(updated.AccountIDs).To(ConsistOf(taxi, almuerzo))
		})

		It("refuses edits from other requesters and after a decision", func() {
			desc := "otro"
			_, err := service.Update(ctx, other, e.ID, expense.UpdateExpenseDTO{Description: &desc})
			Expect(errors.Is(err, appErrors.ErrPermissionDenied)).To(BeTrue())

			_, err = service.Approve(ctx, approver, e.ID, expense.ApproveExpenseDTO{})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Update(ctx, requester, e.ID, expense.UpdateExpenseDTO{Description: &desc})
			Expect(errors.Is(err, appErrors.ErrInvalidTransition)).To(BeTrue())
		})

		It("lets an admin edit any created expense", func() {
			desc := "corregido"
			updated, err := service.Update(ctx, admin, e.ID, expense.UpdateExpenseDTO{Description: &desc})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Description).To(Equal("corregido"))
		})

		It("soft deletes and then reports not found", func() {
			Expect(service.Delete(ctx, requester, e.ID)).To(Succeed())
			err := service.Delete(ctx, requester, e.ID)
			Expect(errors.Is(err, appErrors.ErrExpenseNotFound)).To(BeTrue())
			_, err = service.Get(ctx, requester, e.ID)
			Expect(errors.Is(err, appErrors.ErrExpenseNotFound)).To(BeTrue())
		})
	})

	Describe("transitions", func() {
		var e *expense.Expense

		BeforeEach(func() {
			var err error
			e, err = service.Create(ctx, requester, draft())
			Expect(err).NotTo(HaveOccurred())
		})

		It("gates each transition on its role", func() {
			_, err := service.Approve(ctx, requester, e.ID, expense.ApproveExpenseDTO{})
			Expect(errors.Is(err, appErrors.ErrPermissionDenied)).To(BeTrue())
			_, err = service.Pay(ctx, approver, e.ID, expense.PayExpenseDTO{})
			Expect(errors.Is(err, appErrors.ErrPermissionDenied)).To(BeTrue())
		})

		It("keeps the expense unchanged when a reject has no comment", func() {
			_, err := service.Reject(ctx, approver, e.ID, expense.RejectExpenseDTO{Comment: "   "})
			Expect(appErrors.IsType(err, appErrors.ErrorTypeValidation)).To(BeTrue())

			got, err := service.Get(ctx, approver, e.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Phase).To(Equal(expense.PhaseCreated))
			Expect(got.ApproverID).To(BeNil())
		})

		It("stores the reject comment apart from the requester comment", func() {
			dto := draft()
			dto.Comments = strPtr("por favor aprobar")
			withComment, err := service.Create(ctx, requester, dto)
			Expect(err).NotTo(HaveOccurred())

			got, err := service.Reject(ctx, approver, withComment.ID, expense.RejectExpenseDTO{Comment: "falta factura"})
			Expect(err).NotTo(HaveOccurred())
			Expect(*got.Comments).To(Equal("por favor aprobar"))
			Expect(*got.ApproverComments).To(Equal("falta factura"))
			Expect(*got.ApproverID).To(Equal(int64(20)))
			Expect(got.PayerID).To(BeNil())
		})

		It("refuses a malformed payment date", func() {
			_, err := service.Approve(ctx, approver, e.ID, expense.ApproveExpenseDTO{})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Pay(ctx, payer, e.ID, expense.PayExpenseDTO{PaymentDate: strPtr("2024-1-15")})
			Expect(appErrors.IsType(err, appErrors.ErrorTypeValidation)).To(BeTrue())
		})

		It("returns not found for unknown expenses", func() {
			_, err := service.Approve(ctx, approver, 4242, expense.ApproveExpenseDTO{})
			Expect(errors.Is(err, appErrors.ErrExpenseNotFound)).To(BeTrue())
		})
	})

	Describe("attachments", func() {
		var e *expense.Expense

		file := func(name string) expense.Upload {
			return expense.Upload{Filename: name, Size: 5, Body: strings.NewReader("bytes")}
		}

		BeforeEach(func() {
			var err error
			e, err = service.Create(ctx, requester, draft())
			Expect(err).NotTo(HaveOccurred())
		})

		It("attaches a quotation while created", func() {
			got, err := service.UploadQuotation(ctx, requester, e.ID, file("cotizacion.PDF"))
			Expect(err).NotTo(HaveOccurred())
			Expect(*got.QuotationFile).To(ContainSubstring("/quotes/"))
			Expect(store.uploads).To(Equal([]storage.Bucket{storage.BucketQuotes}))
		})

		It("refuses disallowed extensions before uploading", func() {
			_, err := service.UploadQuotation(ctx, requester, e.ID, file("macro.exe"))
			Expect(appErrors.IsType(err, appErrors.ErrorTypeValidation)).To(BeTrue())
			Expect(store.uploads).To(BeEmpty())
		})

		It("attaches a receipt only once approved and only for payers", func() {
			_, err := service.UploadReceipt(ctx, payer, e.ID, file("recibo.png"))
			Expect(errors.Is(err, appErrors.ErrInvalidTransition)).To(BeTrue())

			_, err = service.Approve(ctx, approver, e.ID, expense.ApproveExpenseDTO{})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.UploadReceipt(ctx, requester, e.ID, file("recibo.png"))
			Expect(errors.Is(err, appErrors.ErrPermissionDenied)).To(BeTrue())

			got, err := service.UploadReceipt(ctx, payer, e.ID, file("recibo.png"))
			Expect(err).NotTo(HaveOccurred())
			Expect(*got.ReceiptFile).To(ContainSubstring("/receipts/"))
		})

		It("surfaces storage outages", func() {
			store.fail = appErrors.NewStoreUnavailableError("storage down", nil)
			_, err := service.UploadQuotation(ctx, requester, e.ID, file("cotizacion.pdf"))
			Expect(appErrors.IsType(err, appErrors.ErrorTypeStoreUnavailable)).To(BeTrue())
		})
	})
})

// staleRepository simulates a concurrent writer: the guarded update never
// matches, and the re-read shows the phase moved on.
type staleRepository struct {
	expense.Repository
	current *expense.Expense
}

func (r *staleRepository) GetByID(context.Context, int64) (*expense.Expense, error) {
	cp := *r.current
	return &cp, nil
}

func (r *staleRepository) UpdateIfPhase(context.Context, int64, expense.Phase, expense.Patch) (bool, error) {
	r.current.Phase = expense.PhaseRejected
	return false, nil
}

var _ = Describe("Expense Service concurrency", func() {
	It("reports an invalid transition when the guarded write loses", func() {
		repo := &staleRepository{current: &expense.Expense{ID: 1, UserID: 10, Phase: expense.PhaseCreated, CreatedAt: time.Now()}}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service := expense.NewService(repo, nil, nil, nil, logger)

		approver := identity.NewSession(identity.User{ID: 20}, identity.Roles{identity.RoleApprover})
		_, err := service.Approve(context.Background(), approver, 1, expense.ApproveExpenseDTO{})
		Expect(errors.Is(err, appErrors.ErrInvalidTransition)).To(BeTrue())
	})
})
