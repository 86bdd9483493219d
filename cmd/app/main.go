package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"pagamentos/cmd/fx/account_fx"
	"pagamentos/cmd/fx/card_fx"
	"pagamentos/cmd/fx/config_fx"
	"pagamentos/cmd/fx/controllers_fx"
	"pagamentos/cmd/fx/db_fx"
	"pagamentos/cmd/fx/payment_fx"
	"pagamentos/internal/api/controllers"
	"pagamentos/internal/config"
	"pagamentos/pkg/middleware"
)

func main() {
	app := fx.New(
		config_fx.Module,
		db_fx.Module,
		account_fx.Module,
		payment_fx.Module,
		card_fx.Module,
		controllers_fx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, engine *gin.Engine, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Printf("Starting HTTP server at :%s", cfg.Port)
				if err := engine.Run(":" + cfg.Port); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Println("Stopping HTTP server")
			return nil
		},
	})
}

func ProvideRouter(
	cfg *config.Config,
	accountController *controllers.AccountController,
	paymentController *controllers.PaymentController,
	cardController *controllers.CardController,
	userController *controllers.UserController) *gin.Engine {

	r := gin.Default()
	r.Use(middleware.TraceIDMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.FrontendURLs))
	r.Use(middleware.RateLimitMiddleware(cfg.RateLimitWindow, cfg.RateLimitMax))

	RegisterRoutes(r, accountController, paymentController, cardController, userController)

	return r
}

func RegisterRoutes(r *gin.Engine,
	accountController *controllers.AccountController,
	paymentController *controllers.PaymentController,
	cardController *controllers.CardController,
	userController *controllers.UserController) {

	authGroup := r.Group("/auth")
	authGroup.POST("/register", accountController.Register)
	authGroup.POST("/login", accountController.Login)
	authGroup.POST("/refresh", accountController.Refresh)

	paymentsGroup := r.Group("/payments")
	paymentsGroup.Use(middleware.JWTAuthMiddleware())
	paymentsGroup.POST("/initiate", paymentController.InitiatePayment)
	paymentsGroup.POST("/credit-card", paymentController.ProcessCreditCard)
	paymentsGroup.POST("/pix", paymentController.ProcessPix)
	paymentsGroup.GET("/pix/:transactionId/status", paymentController.CheckPixStatus)
	paymentsGroup.GET("/recent", paymentController.RecentTransactions)
	paymentsGroup.GET("/stats/overview", paymentController.PaymentStats)
	paymentsGroup.GET("/test/cards", paymentController.TestCards)
	paymentsGroup.GET("", paymentController.ListTransactions)
	paymentsGroup.GET("/:transactionId", paymentController.GetTransaction)
	paymentsGroup.PATCH("/:transactionId/cancel", paymentController.CancelTransaction)

	cardsGroup := r.Group("/cards")
	cardsGroup.Use(middleware.JWTAuthMiddleware())
	cardsGroup.GET("", cardController.ListCards)
	cardsGroup.POST("", cardController.SaveCard)
	cardsGroup.GET("/check/expiration", cardController.CheckExpiration)
	cardsGroup.GET("/stats/overview", cardController.CardStats)
	cardsGroup.DELETE("/expired/cleanup", cardController.DeleteExpiredCards)
	cardsGroup.GET("/:cardId", cardController.GetCard)
	cardsGroup.PUT("/:cardId", cardController.UpdateCard)
	cardsGroup.DELETE("/:cardId", cardController.DeleteCard)
	cardsGroup.PATCH("/:cardId/set-default", cardController.SetDefaultCard)

	usersGroup := r.Group("/users")
	usersGroup.Use(middleware.JWTAuthMiddleware())
	usersGroup.GET("", userController.ListUsers)
	usersGroup.GET("/lookup", userController.LookupByEmail)
}
