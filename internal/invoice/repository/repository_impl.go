package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/collectra/collectra/internal/aging"
	"github.com/collectra/collectra/internal/invoice/domain"
	"github.com/collectra/collectra/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, debtor_id, number, amount, currency, status,
		        due_at, aging_bucket, bucket_entered_at, metadata, created_at, updated_at
		 FROM invoices WHERE id = ?`,
		id,
	).Scan(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListInvoiceFilter, page pagination.Pagination) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	stmt := db.WithContext(ctx).Model(&domain.Invoice{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.DebtorID != 0 {
		stmt = stmt.Where("debtor_id = ?", filter.DebtorID)
	}
	if filter.Bucket != "" {
		stmt = stmt.Where("aging_bucket = ?", filter.Bucket)
	}
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		if cursor.ID != "" {
			afterID, err := snowflake.ParseString(cursor.ID)
			if err != nil {
				return nil, err
			}
			stmt = stmt.Where("id > ?", afterID)
		}
	}
	size := page.PageSize
	if size <= 0 {
		size = 50
	}
	err := stmt.
		Order("id asc").
		Limit(size).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) ListEligibleAfter(ctx context.Context, db *gorm.DB, afterID snowflake.ID, limit int) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, debtor_id, number, amount, currency, status,
		        due_at, aging_bucket, bucket_entered_at, metadata, created_at, updated_at
		 FROM invoices
		 WHERE status IN (?, ?) AND id > ?
		 ORDER BY id ASC
		 LIMIT ?`,
		domain.InvoiceStatusOpen,
		domain.InvoiceStatusInPaymentPlan,
		afterID,
		limit,
	).Scan(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) UpdateBucket(ctx context.Context, db *gorm.DB, id snowflake.ID, bucket aging.Bucket, enteredAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET aging_bucket = ?, bucket_entered_at = ?, updated_at = ?
		 WHERE id = ?`,
		bucket,
		enteredAt,
		enteredAt,
		id,
	).Error
}
