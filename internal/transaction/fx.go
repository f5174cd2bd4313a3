package transaction

import (
	"github.com/lokapasar/lokapasar/internal/transaction/repository"
	"github.com/lokapasar/lokapasar/internal/transaction/service"
	"go.uber.org/fx"
)

var Module = fx.Module("transaction.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
