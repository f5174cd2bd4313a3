package disbursement

import (
	"github.com/lokapasar/lokapasar/internal/disbursement/payout"
	"github.com/lokapasar/lokapasar/internal/disbursement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("disbursement.service",
	fx.Provide(payout.NewClient),
	fx.Provide(service.NewService),
)
