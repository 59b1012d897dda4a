// Package domain contains collection workflow definitions and steps.
package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/collectra/collectra/internal/aging"
	"gorm.io/gorm"
)

// StepChannel is the outreach channel a step sends on.
type StepChannel string

const (
	ChannelEmail StepChannel = "email"
	ChannelSMS   StepChannel = "sms"
)

// PlaceholderBody is the sentinel the workflow editor seeds new steps with.
// A first step still carrying it must never reach a customer.
const PlaceholderBody = "Add your message here..."

// Definition is a named, ordered outreach cadence scoped to one aging bucket.
// OrgID is nil for platform defaults; org-owned definitions take precedence.
type Definition struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID     *snowflake.ID `gorm:"index" json:"organization_id,omitempty"`
	Key       string        `gorm:"type:text;not null" json:"key"`
	Name      string        `gorm:"type:text;not null" json:"name"`
	Bucket    aging.Bucket  `gorm:"type:text;not null;index" json:"bucket"`
	IsActive  bool          `gorm:"not null;default:true;index" json:"is_active"`
	Steps     []Step        `gorm:"foreignKey:WorkflowID" json:"steps,omitempty"`
	CreatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Definition) TableName() string { return "collection_workflows" }

// Step belongs to exactly one Definition. StepOrder is 1-based and unique
// within the workflow; DayOffset counts days since the invoice entered the
// workflow's bucket.
type Step struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	WorkflowID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_step_order,priority:1" json:"workflow_id"`
	StepOrder  int          `gorm:"not null;uniqueIndex:ux_step_order,priority:2" json:"step_order"`
	DayOffset  int          `gorm:"not null;default:0" json:"day_offset"`
	Channel    StepChannel  `gorm:"type:text;not null" json:"channel"`
	Subject    string       `gorm:"type:text;not null;default:''" json:"subject"`
	Body       string       `gorm:"type:text;not null;default:''" json:"body"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Step) TableName() string { return "workflow_steps" }

// Usable reports whether the definition can drive customer outreach: at least
// one step, and a first step whose body is neither empty nor the editor
// placeholder.
func (d *Definition) Usable() bool {
	if d == nil || len(d.Steps) == 0 {
		return false
	}
	first := d.Steps[0]
	body := strings.TrimSpace(first.Body)
	if body == "" || body == PlaceholderBody {
		return false
	}
	return true
}

var (
	ErrNotFound      = errors.New("workflow_not_found")
	ErrInvalidBucket = errors.New("invalid_workflow_bucket")
)

type Repository interface {
	GetByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Definition, error)
	List(ctx context.Context, db *gorm.DB, bucket aging.Bucket) ([]*Definition, error)

	// FindActiveForOrg returns the active org-owned definition for the bucket,
	// steps loaded in order, or nil when none exists.
	FindActiveForOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID, bucket aging.Bucket) (*Definition, error)

	// FindActiveDefault returns the active platform default (org_id IS NULL)
	// for the bucket, steps loaded in order, or nil.
	FindActiveDefault(ctx context.Context, db *gorm.DB, bucket aging.Bucket) (*Definition, error)
}

// Resolver finds the single workflow governing an (org, bucket) pair.
type Resolver interface {
	Resolve(ctx context.Context, orgID snowflake.ID, bucket aging.Bucket) (*Definition, error)
}
