package workflow

import (
	"github.com/collectra/collectra/internal/workflow/domain"
	"github.com/collectra/collectra/internal/workflow/repository"
	"github.com/collectra/collectra/internal/workflow/service"
	"go.uber.org/fx"
)

var Module = fx.Module("workflow",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewResolver),
	fx.Provide(func(r *service.Resolver) domain.Resolver { return r }),
)
