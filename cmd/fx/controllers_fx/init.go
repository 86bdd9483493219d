package controllers_fx

import (
	"go.uber.org/fx"
	"pagamentos/internal/api/controllers"
)

var Module = fx.Options(
	fx.Provide(controllers.NewAccountController),
	fx.Provide(controllers.NewPaymentController),
	fx.Provide(controllers.NewCardController),
	fx.Provide(controllers.NewUserController))
