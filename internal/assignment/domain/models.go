// Package domain contains the live invoice→workflow assignment model.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/collectra/collectra/internal/aging"
	"gorm.io/gorm"
)

// Assignment binds one invoice to the workflow currently governing its
// outreach. Superseded rows are deactivated, never deleted, so the assignment
// history stays auditable.
type Assignment struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID         snowflake.ID `gorm:"not null;index" json:"organization_id"`
	InvoiceID     snowflake.ID `gorm:"not null;index" json:"invoice_id"`
	WorkflowID    snowflake.ID `gorm:"not null;index" json:"workflow_id"`
	Bucket        aging.Bucket `gorm:"type:text;not null" json:"bucket"`
	IsActive      bool         `gorm:"not null;default:true" json:"is_active"`
	AssignedAt    time.Time    `gorm:"not null" json:"assigned_at"`
	DeactivatedAt *time.Time   `gorm:"" json:"deactivated_at,omitempty"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Assignment) TableName() string { return "workflow_assignments" }

var (
	// ErrConcurrentReassign means another pass deactivated or replaced the
	// active assignment between read and write. Callers treat it as a benign
	// skip for the current invoice.
	ErrConcurrentReassign = errors.New("assignment_concurrently_modified")
)

type NewAssignment struct {
	OrgID      snowflake.ID
	InvoiceID  snowflake.ID
	WorkflowID snowflake.ID
	Bucket     aging.Bucket
}

// Store maintains the at-most-one-active-assignment-per-invoice invariant.
type Store interface {
	GetActive(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) (*Assignment, error)

	// Reassign deactivates the given current active row (CAS on its id) and
	// inserts the replacement, atomically for the invoice.
	Reassign(ctx context.Context, db *gorm.DB, current *Assignment, next NewAssignment, now time.Time) (*Assignment, error)

	// Deactivate retires the active assignment without a replacement, for the
	// case where an invoice's new bucket has no applicable workflow.
	Deactivate(ctx context.Context, db *gorm.DB, current *Assignment, now time.Time) error

	CountActive(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) (int64, error)
	ListByInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]*Assignment, error)
}
