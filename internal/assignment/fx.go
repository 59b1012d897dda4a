package assignment

import (
	"github.com/collectra/collectra/internal/assignment/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("assignment",
	fx.Provide(repository.Provide),
)
