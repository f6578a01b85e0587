package transaction

import (
	"go.uber.org/fx"

	"github.com/residify/residify/internal/transaction/repository"
	"github.com/residify/residify/internal/transaction/service"
)

var Module = fx.Module("transaction.ledger",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
