package payment_fx

import (
	"time"

	"go.uber.org/fx"
	"gorm.io/gorm"
	"pagamentos/internal/config"
	"pagamentos/internal/repositories"
	"pagamentos/internal/services"
)

var Module = fx.Provide(
	provideGateway, providePaymentService, provideTransactionRepo)

func provideTransactionRepo(db *gorm.DB) repositories.TransactionRepository {
	return repositories.NewTransactionRepository(db)
}

func provideGateway(cfg *config.Config) services.PaymentGateway {
	gatewayCfg := services.DefaultMockGatewayConfig()
	gatewayCfg.ApprovalRate = cfg.GatewayApprovalRate
	gatewayCfg.PixExpiration = time.Duration(cfg.PixExpirationMinutes) * time.Minute
	return services.NewMockPaymentGateway(gatewayCfg, nil, nil, nil, nil)
}

func providePaymentService(txRepo repositories.TransactionRepository, gateway services.PaymentGateway, cfg *config.Config) services.PaymentServiceInterface {
	return services.NewPaymentService(txRepo, gateway, cfg.InstallmentInterestMonthly, nil)
}
