// Package domain contains the debtor account read model used when rendering
// outreach content.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Debtor is the account that owes on one or more invoices. The collections
// pass reads it only for display fields.
type Debtor struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID      `gorm:"not null;index" json:"organization_id"`
	ContactName string            `gorm:"type:text;not null;default:''" json:"contact_name"`
	CompanyName string            `gorm:"type:text;not null;default:''" json:"company_name"`
	Email       string            `gorm:"type:text;not null;default:''" json:"email"`
	Phone       string            `gorm:"type:text;not null;default:''" json:"phone"`
	Currency    string            `gorm:"type:text;not null;default:'USD'" json:"currency"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Debtor) TableName() string { return "debtors" }

// DisplayName falls back from contact name to company name; callers supply
// the final generic fallback.
func (d Debtor) DisplayName() string {
	if d.ContactName != "" {
		return d.ContactName
	}
	return d.CompanyName
}

var ErrNotFound = errors.New("debtor_not_found")

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Debtor, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]*Debtor, error)
}
