package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/collectra/collectra/internal/assignment/domain"
	pkgdb "github.com/collectra/collectra/pkg/db"
	"gorm.io/gorm"
)

type store struct {
	genID *snowflake.Node
}

func Provide(genID *snowflake.Node) domain.Store {
	return &store{genID: genID}
}

func (s *store) GetActive(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) (*domain.Assignment, error) {
	var assignment domain.Assignment
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, invoice_id, workflow_id, bucket, is_active,
		        assigned_at, deactivated_at, created_at, updated_at
		 FROM workflow_assignments
		 WHERE invoice_id = ? AND is_active`,
		invoiceID,
	).Scan(&assignment).Error
	if err != nil {
		return nil, err
	}
	if assignment.ID == 0 {
		return nil, nil
	}
	return &assignment, nil
}

// Reassign retires current (when present) and inserts the replacement in one
// transaction. The deactivation is a compare-and-swap on the current row's id
// so two overlapping passes cannot both leave an active row; the partial
// unique index on (invoice_id) WHERE is_active backs this up at the storage
// layer.
func (s *store) Reassign(ctx context.Context, db *gorm.DB, current *domain.Assignment, next domain.NewAssignment, now time.Time) (*domain.Assignment, error) {
	created := &domain.Assignment{
		ID:         s.genID.Generate(),
		OrgID:      next.OrgID,
		InvoiceID:  next.InvoiceID,
		WorkflowID: next.WorkflowID,
		Bucket:     next.Bucket,
		IsActive:   true,
		AssignedAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if current != nil {
			result := tx.Exec(
				`UPDATE workflow_assignments
				 SET is_active = ?, deactivated_at = ?, updated_at = ?
				 WHERE id = ? AND invoice_id = ? AND is_active`,
				false,
				now,
				now,
				current.ID,
				next.InvoiceID,
			)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return domain.ErrConcurrentReassign
			}
		}

		insert := tx.Exec(
			`INSERT INTO workflow_assignments (
				id, org_id, invoice_id, workflow_id, bucket, is_active,
				assigned_at, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			created.ID,
			created.OrgID,
			created.InvoiceID,
			created.WorkflowID,
			created.Bucket,
			true,
			now,
			now,
			now,
		)
		if insert.Error != nil {
			if pkgdb.IsDuplicateKeyErr(insert.Error) {
				return domain.ErrConcurrentReassign
			}
			return insert.Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *store) Deactivate(ctx context.Context, db *gorm.DB, current *domain.Assignment, now time.Time) error {
	if current == nil {
		return nil
	}
	result := db.WithContext(ctx).Exec(
		`UPDATE workflow_assignments
		 SET is_active = ?, deactivated_at = ?, updated_at = ?
		 WHERE id = ? AND is_active`,
		false,
		now,
		now,
		current.ID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConcurrentReassign
	}
	return nil
}

func (s *store) CountActive(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM workflow_assignments WHERE invoice_id = ? AND is_active`,
		invoiceID,
	).Scan(&count).Error
	return count, err
}

func (s *store) ListByInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]*domain.Assignment, error) {
	var assignments []*domain.Assignment
	err := db.WithContext(ctx).
		Model(&domain.Assignment{}).
		Where("invoice_id = ?", invoiceID).
		Order("assigned_at desc, id desc").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}
