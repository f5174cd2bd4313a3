package enrollment

import (
	"github.com/lokapasar/lokapasar/internal/enrollment/repository"
	"github.com/lokapasar/lokapasar/internal/enrollment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("enrollment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
