package tenant

import (
	"github.com/lokapasar/lokapasar/internal/tenant/repository"
	"github.com/lokapasar/lokapasar/internal/tenant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tenant.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
