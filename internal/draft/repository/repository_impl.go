package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/collectra/collectra/internal/draft/domain"
	pkgdb "github.com/collectra/collectra/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) HasLive(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM collection_drafts
		 WHERE invoice_id = ? AND status IN (?, ?, ?)`,
		invoiceID,
		domain.StatusPendingApproval,
		domain.StatusApproved,
		domain.StatusSent,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, draft *domain.Draft) error {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO collection_drafts (
			id, org_id, invoice_id, workflow_id, step_id, channel,
			subject, body, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		draft.ID,
		draft.OrgID,
		draft.InvoiceID,
		draft.WorkflowID,
		draft.StepID,
		draft.Channel,
		draft.Subject,
		draft.Body,
		draft.Status,
		draft.CreatedAt,
		draft.UpdatedAt,
	).Error
	if err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.ErrLiveDraftExists
		}
		return err
	}
	return nil
}

func (r *repo) ListByInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]*domain.Draft, error) {
	var drafts []*domain.Draft
	err := db.WithContext(ctx).
		Model(&domain.Draft{}).
		Where("invoice_id = ?", invoiceID).
		Order("created_at desc, id desc").
		Find(&drafts).Error
	if err != nil {
		return nil, err
	}
	return drafts, nil
}
