package draft

import (
	"github.com/collectra/collectra/internal/draft/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("draft",
	fx.Provide(repository.Provide),
)
