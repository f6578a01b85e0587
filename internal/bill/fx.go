package bill

import (
	"go.uber.org/fx"

	"github.com/residify/residify/internal/bill/repository"
	"github.com/residify/residify/internal/bill/service"
)

var Module = fx.Module("bill.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
