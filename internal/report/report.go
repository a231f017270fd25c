package report

import (
	"sort"
	"time"

	"github.com/frahmantamala/expense-approval/internal/expense"
	"github.com/shopspring/decimal"
)

// Uncategorized is the bucket for expenses without a linked category.
const Uncategorized = "uncategorized"

const monthLayout = "2006-01"

// Record is the read-model view of one expense.
type Record struct {
	ID         int64           `db:"id"`
	UserID     int64           `db:"user_id"`
	Amount     decimal.Decimal `db:"amount"`
	Phase      string          `db:"phase"`
	CreatedAt  time.Time       `db:"created_at"`
	Categories []string        `db:"-"`
}

type Bucket struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

func (b *Bucket) add(amount decimal.Decimal) {
	b.Count++
	b.Amount = b.Amount.Add(amount)
}

type Summary struct {
	TotalCount  int               `json:"total_count"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	Average     decimal.Decimal   `json:"average_amount"`
	ByPhase     map[string]Bucket `json:"by_phase"`
}

type MonthBucket struct {
	Month string `json:"month"`
	Bucket
}

type CategoryBucket struct {
	Category string `json:"category"`
	Bucket
}

type RequesterBucket struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Bucket
}

// Average returns zero for an empty set.
func Average(sum decimal.Decimal, count int) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return sum.DivRound(decimal.NewFromInt(int64(count)), 2)
}

// Summarize computes totals and per-phase buckets. Every known phase is
// present in ByPhase, with a zero bucket when nothing is in it.
func Summarize(records []Record) Summary {
	s := Summary{
		TotalAmount: decimal.Zero,
		ByPhase:     make(map[string]Bucket, len(expense.Phases)),
	}
	for _, p := range expense.Phases {
		s.ByPhase[string(p)] = Bucket{Amount: decimal.Zero}
	}

	for _, r := range records {
		s.TotalCount++
		s.TotalAmount = s.TotalAmount.Add(r.Amount)

		b := s.ByPhase[r.Phase]
		b.add(r.Amount)
		s.ByPhase[r.Phase] = b
	}

	s.Average = Average(s.TotalAmount, s.TotalCount)
	return s
}

// ByMonth groups by the UTC year-month of creation, oldest first.
func ByMonth(records []Record) []MonthBucket {
	buckets := make(map[string]*Bucket)
	for _, r := range records {
		month := r.CreatedAt.UTC().Format(monthLayout)
		b, ok := buckets[month]
		if !ok {
			b = &Bucket{Amount: decimal.Zero}
			buckets[month] = b
		}
		b.add(r.Amount)
	}

	out := make([]MonthBucket, 0, len(buckets))
	for month, b := range buckets {
		out = append(out, MonthBucket{Month: month, Bucket: *b})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// ByCategory credits the full amount of an expense to each of its categories,
// so bucket amounts can add up to more than the total.
func ByCategory(records []Record) []CategoryBucket {
	buckets := make(map[string]*Bucket)
	credit := func(name string, amount decimal.Decimal) {
		b, ok := buckets[name]
		if !ok {
			b = &Bucket{Amount: decimal.Zero}
			buckets[name] = b
		}
		b.add(amount)
	}

	for _, r := range records {
		if len(r.Categories) == 0 {
			credit(Uncategorized, r.Amount)
			continue
		}
		seen := make(map[string]bool, len(r.Categories))
		for _, c := range r.Categories {
			if seen[c] {
				continue
			}
			seen[c] = true
			credit(c, r.Amount)
		}
	}

	out := make([]CategoryBucket, 0, len(buckets))
	for name, b := range buckets {
		out = append(out, CategoryBucket{Category: name, Bucket: *b})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// ByRequester groups by requester id. Names are filled in by the caller.
func ByRequester(records []Record) []RequesterBucket {
	buckets := make(map[int64]*Bucket)
	for _, r := range records {
		b, ok := buckets[r.UserID]
		if !ok {
			b = &Bucket{Amount: decimal.Zero}
			buckets[r.UserID] = b
		}
		b.add(r.Amount)
	}

	out := make([]RequesterBucket, 0, len(buckets))
	for id, b := range buckets {
		out = append(out, RequesterBucket{UserID: id, Bucket: *b})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// RequesterIDs lists the distinct requesters in records.
func RequesterIDs(records []Record) []int64 {
	seen := make(map[int64]bool)
	ids := make([]int64, 0)
	for _, r := range records {
		if !seen[r.UserID] {
			seen[r.UserID] = true
			ids = append(ids, r.UserID)
		}
	}
	return ids
}
