package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/collectra/collectra/internal/aging"
	"github.com/collectra/collectra/internal/workflow/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Resolver struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func NewResolver(db *gorm.DB, log *zap.Logger, repo domain.Repository) *Resolver {
	return &Resolver{
		db:   db,
		log:  log.Named("workflow.resolver"),
		repo: repo,
	}
}

// Resolve finds the single workflow governing (orgID, bucket): the active
// org-owned definition wins, else the active platform default, else nil.
// Definitions that would produce a blank or placeholder first message are
// skipped so they can never reach a customer. A nil result is a normal
// outcome, not an error.
func (r *Resolver) Resolve(ctx context.Context, orgID snowflake.ID, bucket aging.Bucket) (*domain.Definition, error) {
	if !bucket.Valid() {
		return nil, domain.ErrInvalidBucket
	}

	def, err := r.repo.FindActiveForOrg(ctx, r.db, orgID, bucket)
	if err != nil {
		return nil, err
	}
	if def != nil && !def.Usable() {
		r.log.Debug("skipping unusable org workflow",
			zap.String("workflow_id", def.ID.String()),
			zap.String("bucket", string(bucket)),
		)
		def = nil
	}
	if def != nil {
		return def, nil
	}

	def, err = r.repo.FindActiveDefault(ctx, r.db, bucket)
	if err != nil {
		return nil, err
	}
	if def != nil && !def.Usable() {
		r.log.Debug("skipping unusable default workflow",
			zap.String("workflow_id", def.ID.String()),
			zap.String("bucket", string(bucket)),
		)
		return nil, nil
	}
	return def, nil
}
