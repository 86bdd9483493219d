package db_fx

import (
	"log"

	"go.uber.org/fx"
	"gorm.io/gorm"
	"pagamentos/internal/config"
	"pagamentos/internal/infra"
	"pagamentos/internal/models/db_models"
)

var Module = fx.Options(
	fx.Provide(provideDB),
	fx.Invoke(migrate))

func provideDB(cfg *config.Config) *gorm.DB {
	return infra.InitPostgresql(cfg)
}

func migrate(db *gorm.DB) {
	if err := db.AutoMigrate(
		&db_models.Account{},
		&db_models.Transaction{},
		&db_models.SavedCard{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
}
