package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"pagamentos/internal/config"
	"pagamentos/internal/models/db_models"
	"pagamentos/internal/models/request_models"
	"pagamentos/internal/models/response_models"
	"pagamentos/internal/repositories"
	"pagamentos/pkg/utils"
)

type AccountServiceInterface interface {
	Register(ctx context.Context, req request_models.SignUpRequest) (*response_models.AuthResponse, error)
	Login(ctx context.Context, req request_models.LoginRequest) (*response_models.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*response_models.AuthResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*db_models.Account, error)
	ListAccounts(ctx context.Context, page, pageSize int) ([]db_models.Account, error)
	LookupByEmail(ctx context.Context, email string) (*db_models.Account, error)
}

type AccountService struct {
	accounts   repositories.AccountRepository
	accessTTL  time.Duration
	refreshTTL time.Duration
	features   config.FeatureFlags
}

func NewAccountService(accounts repositories.AccountRepository, cfg *config.Config) AccountServiceInterface {
	return &AccountService{
		accounts:   accounts,
		accessTTL:  cfg.JWT.AccessTTL,
		refreshTTL: cfg.JWT.RefreshTTL,
		features:   cfg.Features,
	}
}

func (s *AccountService) issueTokens(account *db_models.Account) (*response_models.TokenPair, error) {
	access, err := utils.CreateAccessToken(account.ID, account.Email, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := utils.CreateRefreshToken(account.ID, account.Email, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &response_models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AccountService) Register(ctx context.Context, req request_models.SignUpRequest) (*response_models.AuthResponse, error) {
	existing, err := s.accounts.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if existing != nil {
		return nil, utils.ErrEmailAlreadyExists
	}

	password := req.Password
	if password == "" {
		if !s.features.PasswordlessRegister {
			return nil, utils.ErrInvalidCredentials
		}
		// Unusable random credential until the account sets a real one.
		password, err = utils.GenerateSecureToken(32)
		if err != nil {
			return nil, err
		}
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	account := &db_models.Account{
		Name:         req.DisplayName,
		Email:        req.Email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.accounts.InsertTx(account, ctx); err != nil {
		log.Printf("failed to insert account: %v", err)
		return nil, utils.ErrDatabaseError
	}

	resp := &response_models.AuthResponse{Account: response_models.FromAccount(account)}
	if s.features.AutoLoginAfterRegister {
		tokens, err := s.issueTokens(account)
		if err != nil {
			return nil, err
		}
		resp.Tokens = tokens
	}
	return resp, nil
}

func (s *AccountService) Login(ctx context.Context, req request_models.LoginRequest) (*response_models.AuthResponse, error) {
	account, err := s.accounts.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if account == nil || !account.IsActive {
		return nil, utils.ErrInvalidCredentials
	}
	if err := utils.ComparePasswords(account.PasswordHash, req.Password); err != nil {
		return nil, utils.ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(account)
	if err != nil {
		return nil, err
	}
	return &response_models.AuthResponse{
		Account: response_models.FromAccount(account),
		Tokens:  tokens,
	}, nil
}

// Refresh rotates the token pair. The account is re-checked so a
// deactivated user cannot keep minting access tokens from an old
// refresh token.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*response_models.AuthResponse, error) {
	claims, err := utils.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, utils.ErrInvalidRefreshToken
	}
	accountID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, utils.ErrInvalidRefreshToken
	}

	account, err := s.accounts.FindById(ctx, accountID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if account == nil || !account.IsActive {
		return nil, utils.ErrInvalidRefreshToken
	}

	tokens, err := s.issueTokens(account)
	if err != nil {
		return nil, err
	}
	return &response_models.AuthResponse{
		Account: response_models.FromAccount(account),
		Tokens:  tokens,
	}, nil
}

func (s *AccountService) GetByID(ctx context.Context, id uuid.UUID) (*db_models.Account, error) {
	account, err := s.accounts.FindById(ctx, id)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if account == nil {
		return nil, utils.ErrAccountNotFound
	}
	return account, nil
}

func (s *AccountService) ListAccounts(ctx context.Context, page, pageSize int) ([]db_models.Account, error) {
	if page < 1 {
		return nil, utils.ErrInvalidPage
	}
	if pageSize < 1 || pageSize > 100 {
		return nil, utils.ErrInvalidPageSize
	}
	accounts, err := s.accounts.List(ctx, page, pageSize)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	return accounts, nil
}

func (s *AccountService) LookupByEmail(ctx context.Context, email string) (*db_models.Account, error) {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if account == nil {
		return nil, utils.ErrAccountNotFound
	}
	return account, nil
}
