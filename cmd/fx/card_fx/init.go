package card_fx

import (
	"log"

	"go.uber.org/fx"
	"gorm.io/gorm"
	"pagamentos/internal/config"
	"pagamentos/internal/repositories"
	"pagamentos/internal/security"
	"pagamentos/internal/services"
)

var Module = fx.Provide(
	provideCardService, provideCardRepo, provideEncryptor, provideValidationClient)

func provideCardRepo(db *gorm.DB) repositories.CardRepository {
	return repositories.NewCardRepository(db)
}

func provideEncryptor(cfg *config.Config) *security.Encryptor {
	encryptor, err := security.NewEncryptor([]byte(cfg.EncryptionKey), nil)
	if err != nil {
		log.Fatalf("Failed to initialize card encryptor: %v", err)
	}
	return encryptor
}

func provideValidationClient(cfg *config.Config) services.CardValidationClient {
	return services.NewCardValidationClient(services.CardValidationConfig{
		URL:     cfg.ExternalCardValidation.URL,
		APIKey:  cfg.ExternalCardValidation.APIKey,
		Timeout: cfg.ExternalCardValidation.Timeout,
	})
}

func provideCardService(cardRepo repositories.CardRepository, encryptor *security.Encryptor, validator services.CardValidationClient) services.CardServiceInterface {
	return services.NewCardService(cardRepo, encryptor, validator, 0, nil)
}
