package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/collectra/collectra/internal/debtor/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Debtor, error) {
	var debtor domain.Debtor
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, contact_name, company_name, email, phone, currency,
		        metadata, created_at, updated_at
		 FROM debtors WHERE id = ?`,
		id,
	).Scan(&debtor).Error
	if err != nil {
		return nil, err
	}
	if debtor.ID == 0 {
		return nil, nil
	}
	return &debtor, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]*domain.Debtor, error) {
	out := make(map[snowflake.ID]*domain.Debtor, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var debtors []*domain.Debtor
	err := db.WithContext(ctx).
		Model(&domain.Debtor{}).
		Where("id IN ?", ids).
		Find(&debtors).Error
	if err != nil {
		return nil, err
	}
	for _, d := range debtors {
		out[d.ID] = d
	}
	return out, nil
}
