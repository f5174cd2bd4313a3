package payment

import (
	"github.com/lokapasar/lokapasar/internal/payment/adapters"
	"github.com/lokapasar/lokapasar/internal/payment/adapters/midtrans"
	"github.com/lokapasar/lokapasar/internal/payment/domain"
	"github.com/lokapasar/lokapasar/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(midtrans.NewFactory())
	}),
	fx.Provide(service.NewService),
)

var _ domain.AdapterFactory = (*midtrans.Factory)(nil)
