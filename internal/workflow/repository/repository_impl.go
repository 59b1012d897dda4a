package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/collectra/collectra/internal/aging"
	"github.com/collectra/collectra/internal/workflow/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) GetByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Definition, error) {
	var def domain.Definition
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&def).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if err := r.loadSteps(ctx, db, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, bucket aging.Bucket) ([]*domain.Definition, error) {
	var defs []*domain.Definition
	stmt := db.WithContext(ctx).Model(&domain.Definition{})
	if bucket != "" {
		stmt = stmt.Where("bucket = ?", bucket)
	}
	err := stmt.
		Order("bucket asc, id asc").
		Find(&defs).Error
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		if err := r.loadSteps(ctx, db, def); err != nil {
			return nil, err
		}
	}
	return defs, nil
}

func (r *repo) FindActiveForOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID, bucket aging.Bucket) (*domain.Definition, error) {
	return r.findActive(ctx, db, `org_id = ? AND bucket = ? AND is_active`, orgID, bucket)
}

func (r *repo) FindActiveDefault(ctx context.Context, db *gorm.DB, bucket aging.Bucket) (*domain.Definition, error) {
	return r.findActive(ctx, db, `org_id IS NULL AND bucket = ? AND is_active`, bucket)
}

func (r *repo) findActive(ctx context.Context, db *gorm.DB, where string, args ...any) (*domain.Definition, error) {
	var def domain.Definition
	err := db.WithContext(ctx).
		Where(where, args...).
		Order("updated_at desc, id desc").
		First(&def).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if err := r.loadSteps(ctx, db, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

func (r *repo) loadSteps(ctx context.Context, db *gorm.DB, def *domain.Definition) error {
	return db.WithContext(ctx).
		Where("workflow_id = ?", def.ID).
		Order("step_order asc").
		Find(&def.Steps).Error
}
