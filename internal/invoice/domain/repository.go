package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/collectra/collectra/internal/aging"
	"github.com/collectra/collectra/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListInvoiceFilter struct {
	Status   InvoiceStatus
	DebtorID snowflake.ID
	Bucket   aging.Bucket
}

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, filter ListInvoiceFilter, page pagination.Pagination) ([]*Invoice, error)

	// ListEligibleAfter pages eligible invoices in id order, strictly after
	// afterID. The pass walks the whole set with this keyset cursor.
	ListEligibleAfter(ctx context.Context, db *gorm.DB, afterID snowflake.ID, limit int) ([]*Invoice, error)

	// UpdateBucket writes the recomputed bucket and the bucket-entry timestamp.
	// Callers must only invoke it when the bucket actually changed.
	UpdateBucket(ctx context.Context, db *gorm.DB, id snowflake.ID, bucket aging.Bucket, enteredAt time.Time) error
}
