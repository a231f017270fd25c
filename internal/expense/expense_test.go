package expense_test

import (
	"errors"
	"net/url"
	"testing"
	"time"

	appErrors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/expense"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

func TestExpense(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Expense Suite")
}

func strPtr(s string) *string { return &s }

var _ = Describe("Expense phases", func() {
	var (
		e   *expense.Expense
		now time.Time
	)

	BeforeEach(func() {
		now = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
		e = expense.NewExpense(7, expense.CreateExpenseDTO{
			Description: " Taxi al aeropuerto ",
			Amount:      decimal.RequireFromString("150.004"),
			Comments:    strPtr("urgente"),
			CategoryIDs: []int64{1},
			AccountIDs:  []int64{2},
		}, now)
	})

	It("starts created without approver or payer", func() {
		Expect(e.Phase).To(Equal(expense.PhaseCreated))
		Expect(e.Description).To(Equal("Taxi al aeropuerto"))
		Expect(e.Amount.String()).To(Equal("150"))
		Expect(e.ApproverID).To(BeNil())
		Expect(e.PayerID).To(BeNil())
	})

	It("approves with an optional comment kept apart from the requester's", func() {
		t, err := e.Approve(3, strPtr("ok"), now)
		Expect(err).NotTo(HaveOccurred())
		Expect(t.From).To(Equal(expense.PhaseCreated))
		Expect(e.Phase).To(Equal(expense.PhaseApproved))
		Expect(*e.ApproverID).To(Equal(int64(3)))
		Expect(*e.ApproverComments).To(Equal("ok"))
		Expect(*e.Comments).To(Equal("urgente"))

		cols := t.Patch.Columns()
		Expect(cols).To(HaveKeyWithValue("phase", "approved"))
		Expect(cols).To(HaveKeyWithValue("approver_comments", "ok"))
		Expect(cols).NotTo(HaveKey("comments"))
	})

	It("approves without a comment", func() {
		t, err := e.Approve(3, strPtr("   "), now)
		Expect(err).NotTo(HaveOccurred())
		Expect(e.ApproverComments).To(BeNil())
		Expect(t.Patch.Columns()).NotTo(HaveKey("approver_comments"))
	})

	It("rejects only with a non-blank comment and leaves the expense alone otherwise", func() {
		_, err := e.Reject(3, "  \t ", now)
		Expect(appErrors.IsType(err, appErrors.ErrorTypeValidation)).To(BeTrue())
		Expect(e.Phase).To(Equal(expense.PhaseCreated))
		Expect(e.ApproverID).To(BeNil())

		_, err = e.Reject(3, "sin factura", now)
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Phase).To(Equal(expense.PhaseRejected))
		Expect(*e.ApproverID).To(Equal(int64(3)))
	})

	It("pays only approved expenses", func() {
		_, err := e.Pay(4, now, now)
		Expect(errors.Is(err, appErrors.ErrInvalidTransition)).To(BeTrue())

		_, err = e.Approve(3, nil, now)
		Expect(err).NotTo(HaveOccurred())
		paidAt := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
		recordedAt := now.Add(time.Hour)
		t, err := e.Pay(4, paidAt, recordedAt)
		Expect(err).NotTo(HaveOccurred())
		Expect(t.From).To(Equal(expense.PhaseApproved))
		Expect(e.Phase).To(Equal(expense.PhasePaid))
		Expect(*e.PaidAt).To(Equal(paidAt))
		Expect(e.UpdatedAt).To(Equal(recordedAt))

		_, err = e.Pay(4, paidAt, recordedAt)
		Expect(errors.Is(err, appErrors.ErrInvalidTransition)).To(BeTrue())
	})

	It("never leaves a terminal phase", func() {
		_, err := e.Reject(3, "no", now)
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Phase.Terminal()).To(BeTrue())

		_, err = e.Approve(3, nil, now)
		Expect(errors.Is(err, appErrors.ErrInvalidTransition)).To(BeTrue())
		_, err = e.Reject(3, "otra vez", now)
		Expect(errors.Is(err, appErrors.ErrInvalidTransition)).To(BeTrue())
	})
})

var _ = Describe("ParsePhase", func() {
	It("maps pending to created and is case-insensitive", func() {
		Expect(expense.ParsePhase("pending")).To(Equal(expense.PhaseCreated))
		Expect(expense.ParsePhase("Approved")).To(Equal(expense.PhaseApproved))
	})

	It("rejects unknown phases", func() {
		_, err := expense.ParsePhase("archived")
		Expect(appErrors.IsType(err, appErrors.ErrorTypeValidation)).To(BeTrue())
	})
})

var _ = Describe("ParseFilter", func() {
	It("reads every parameter", func() {
		q := url.Values{}
		q.Add("phase", "pending,paid")
		q.Add("phase", "rejected")
		q.Set("requester_id", "5")
		q.Set("start_date", "2024-01-01")
		q.Set("end_date", "2024-01-31")
		q.Set("min_amount", "10.5")
		q.Set("max_amount", "200")
		q.Set("q", " taxi ")
		q.Set("category", "trans")
		q.Set("limit", "500")
		q.Set("offset", "20")

		f, err := expense.ParseFilter(q)
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Phases).To(Equal([]expense.Phase{expense.PhaseCreated, expense.PhasePaid, expense.PhaseRejected}))
		Expect(*f.RequesterID).To(Equal(int64(5)))
		Expect(*f.StartDate).To(Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
		Expect(f.MinAmount.String()).To(Equal("10.5"))
		Expect(f.Query).To(Equal("taxi"))
		Expect(f.Category).To(Equal("trans"))
		Expect(f.Limit).To(Equal(expense.MaxListLimit))
		Expect(f.Offset).To(Equal(20))
	})

	It("defaults the limit", func() {
		f, err := expense.ParseFilter(url.Values{})
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Limit).To(Equal(expense.DefaultListLimit))
	})

	DescribeTable("rejects bad values",
		func(key, value string) {
			_, err := expense.ParseFilter(url.Values{key: {value}})
			Expect(appErrors.IsType(err, appErrors.ErrorTypeValidation)).To(BeTrue())
		},
		Entry("unpadded date", "start_date", "2024-1-5"),
		Entry("not a date", "end_date", "yesterday"),
		Entry("negative amount", "min_amount", "-1"),
		Entry("bad requester", "requester_id", "abc"),
		Entry("negative offset", "offset", "-3"),
	)

	It("rejects an inverted date range", func() {
		_, err := expense.ParseFilter(url.Values{"start_date": {"2024-02-01"}, "end_date": {"2024-01-01"}})
		Expect(appErrors.IsType(err, appErrors.ErrorTypeValidation)).To(BeTrue())
	})
})

var _ = Describe("CreateExpenseDTO", func() {
	valid := func() expense.CreateExpenseDTO {
		return expense.CreateExpenseDTO{
			Description: "Taxi",
			Amount:      decimal.NewFromInt(150),
			CategoryIDs: []int64{1},
			AccountIDs:  []int64{1},
		}
	}

	It("accepts a complete draft", func() {
		Expect(valid().Validate()).To(Succeed())
	})

	DescribeTable("refuses invalid drafts",
		func(mutate func(*expense.CreateExpenseDTO)) {
			dto := valid()
			mutate(&dto)
			Expect(appErrors.IsType(dto.Validate(), appErrors.ErrorTypeValidation)).To(BeTrue())
		},
		Entry("zero amount", func(d *expense.CreateExpenseDTO) { d.Amount = decimal.Zero }),
		Entry("negative amount", func(d *expense.CreateExpenseDTO) { d.Amount = decimal.NewFromInt(-5) }),
		Entry("blank description", func(d *expense.CreateExpenseDTO) { d.Description = "  " }),
		Entry("no categories", func(d *expense.CreateExpenseDTO) { d.CategoryIDs = nil }),
		Entry("no accounts", func(d *expense.CreateExpenseDTO) { d.AccountIDs = []int64{} }),
		Entry("unknown priority", func(d *expense.CreateExpenseDTO) { d.Priority = strPtr("Alta") }),
	)
})
