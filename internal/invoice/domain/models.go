// Package domain contains persistence models for receivable invoices.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/collectra/collectra/internal/aging"
	"gorm.io/datatypes"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusOpen          InvoiceStatus = "OPEN"
	InvoiceStatusInPaymentPlan InvoiceStatus = "IN_PAYMENT_PLAN"
	InvoiceStatusPaid          InvoiceStatus = "PAID"
	InvoiceStatusVoid          InvoiceStatus = "VOID"
	InvoiceStatusUncollectible InvoiceStatus = "UNCOLLECTIBLE"
)

// EligibleStatuses are the statuses the collections pass acts on.
func EligibleStatuses() []InvoiceStatus {
	return []InvoiceStatus{InvoiceStatusOpen, InvoiceStatusInPaymentPlan}
}

// Invoice represents a billable obligation owed by a debtor.
//
// AgingBucket and BucketEnteredAt are caches owned by the collections pass;
// the bucket is always re-derivable from (DueAt, now) and must be treated as
// stale between passes.
type Invoice struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID           snowflake.ID      `gorm:"not null;index" json:"organization_id"`
	DebtorID        snowflake.ID      `gorm:"not null;index" json:"debtor_id"`
	Number          string            `gorm:"type:text;not null" json:"number"`
	Amount          int64             `gorm:"not null;default:0" json:"amount"`
	Currency        string            `gorm:"type:text;not null" json:"currency"`
	Status          InvoiceStatus     `gorm:"type:text;not null;default:'OPEN';index" json:"status"`
	DueAt           time.Time         `gorm:"not null" json:"due_at"`
	AgingBucket     aging.Bucket      `gorm:"type:text;not null;default:'';index" json:"aging_bucket"`
	BucketEnteredAt *time.Time        `gorm:"" json:"bucket_entered_at,omitempty"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Eligible reports whether the collections pass should process the invoice.
func (i Invoice) Eligible() bool {
	switch i.Status {
	case InvoiceStatusOpen, InvoiceStatusInPaymentPlan:
		return true
	default:
		return false
	}
}

var ErrNotFound = errors.New("invoice_not_found")
