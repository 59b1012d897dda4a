// Package domain contains the outreach draft model and the live-draft guard
// contract.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	workflowdomain "github.com/collectra/collectra/internal/workflow/domain"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusSent            Status = "sent"
	StatusDiscarded       Status = "discarded"
)

// LiveStatuses are the draft states that block creation of another draft for
// the same invoice. Only discarded drafts free the slot.
func LiveStatuses() []Status {
	return []Status{StatusPendingApproval, StatusApproved, StatusSent}
}

// Draft is a rendered outreach message awaiting human review. Rendering never
// sends anything; delivery happens elsewhere after approval.
type Draft struct {
	ID         snowflake.ID               `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID               `gorm:"not null;index" json:"organization_id"`
	InvoiceID  snowflake.ID               `gorm:"not null;index" json:"invoice_id"`
	WorkflowID snowflake.ID               `gorm:"not null" json:"workflow_id"`
	StepID     snowflake.ID               `gorm:"not null" json:"step_id"`
	Channel    workflowdomain.StepChannel `gorm:"type:text;not null" json:"channel"`
	Subject    string                     `gorm:"type:text" json:"subject"`
	Body       string                     `gorm:"type:text;not null" json:"body"`
	Status     Status                     `gorm:"type:text;not null;default:'pending_approval'" json:"status"`
	CreatedAt  time.Time                  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time                  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Draft) TableName() string { return "collection_drafts" }

var (
	// ErrLiveDraftExists means the invoice already has a pending, approved or
	// sent draft. The batch pass treats this as a benign skip.
	ErrLiveDraftExists = errors.New("live_draft_exists")
)

// Repository enforces at most one live draft per invoice. Insert relies on
// the partial unique index over live statuses so two overlapping passes
// cannot both create one.
type Repository interface {
	HasLive(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) (bool, error)
	Insert(ctx context.Context, db *gorm.DB, draft *Draft) error
	ListByInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]*Draft, error)
}
