package debtor

import (
	"github.com/collectra/collectra/internal/debtor/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("debtor",
	fx.Provide(repository.Provide),
)
