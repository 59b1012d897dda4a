// Package aging classifies invoices into delinquency buckets by days past due.
package aging

import (
	"errors"
	"time"
)

// Bucket is an aging tier label. Buckets are totally ordered by delinquency;
// use Compare or Escalates, never string comparison.
type Bucket string

const (
	BucketCurrent     Bucket = "current"
	BucketDPD1To30    Bucket = "dpd_1_30"
	BucketDPD31To60   Bucket = "dpd_31_60"
	BucketDPD61To90   Bucket = "dpd_61_90"
	BucketDPD91To120  Bucket = "dpd_91_120"
	BucketDPD121To150 Bucket = "dpd_121_150"
	BucketDPD150Plus  Bucket = "dpd_150_plus"
)

var (
	ErrInvalidDueDate = errors.New("invalid_due_date")
	ErrUnknownBucket  = errors.New("unknown_aging_bucket")
)

// ordered lists every bucket from least to most delinquent. The ranges
// partition the non-negative day line with inclusive upper bounds.
var ordered = []Bucket{
	BucketCurrent,
	BucketDPD1To30,
	BucketDPD31To60,
	BucketDPD61To90,
	BucketDPD91To120,
	BucketDPD121To150,
	BucketDPD150Plus,
}

var orderIndex = func() map[Bucket]int {
	m := make(map[Bucket]int, len(ordered))
	for i, b := range ordered {
		m[b] = i
	}
	return m
}()

// Buckets returns all buckets from least to most delinquent.
func Buckets() []Bucket {
	out := make([]Bucket, len(ordered))
	copy(out, ordered)
	return out
}

// Valid reports whether b is a known bucket label.
func (b Bucket) Valid() bool {
	_, ok := orderIndex[b]
	return ok
}

// Index returns the bucket's position in the delinquency order, or -1 for an
// unknown label (e.g. an empty column on a freshly imported invoice).
func (b Bucket) Index() int {
	idx, ok := orderIndex[b]
	if !ok {
		return -1
	}
	return idx
}

// Compare returns -1, 0 or 1 as b is less, equally or more delinquent than o.
func (b Bucket) Compare(o Bucket) int {
	bi, oi := b.Index(), o.Index()
	switch {
	case bi < oi:
		return -1
	case bi > oi:
		return 1
	default:
		return 0
	}
}

// DaysPastDue returns whole days elapsed between dueDate and asOf, after
// truncating both to UTC day granularity. Negative means not yet due.
func DaysPastDue(dueDate, asOf time.Time) int {
	due := truncateToDay(dueDate)
	ref := truncateToDay(asOf)
	return int(ref.Sub(due).Hours() / 24)
}

// Classify maps (dueDate, asOf) to the invoice's aging bucket. The same asOf
// must be used for every invoice in a batch run.
func Classify(dueDate, asOf time.Time) (Bucket, error) {
	if dueDate.IsZero() {
		return "", ErrInvalidDueDate
	}
	if asOf.IsZero() {
		return "", ErrInvalidDueDate
	}
	return classifyDays(DaysPastDue(dueDate, asOf)), nil
}

func classifyDays(dpd int) Bucket {
	switch {
	case dpd <= 0:
		return BucketCurrent
	case dpd <= 30:
		return BucketDPD1To30
	case dpd <= 60:
		return BucketDPD31To60
	case dpd <= 90:
		return BucketDPD61To90
	case dpd <= 120:
		return BucketDPD91To120
	case dpd <= 150:
		return BucketDPD121To150
	default:
		return BucketDPD150Plus
	}
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
