package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"pagamentos/pkg/utils"
)

type ExternalValidationInput struct {
	CardNumber      string
	CardHolderName  string
	ExpirationMonth string
	ExpirationYear  string
	CVV             string
	UserID          uuid.UUID
	UserEmail       string
}

// ExternalValidationResult is a tagged three-valued outcome: Performed
// false means the check was bypassed (no endpoint configured) and the
// validator holds no opinion. Callers must not read Valid unless
// Performed is true.
type ExternalValidationResult struct {
	Performed  bool
	Valid      bool
	Brand      string
	FraudScore float64
	Reasons    []string
	Raw        json.RawMessage
}

type CardValidationConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

type CardValidationClient interface {
	Validate(ctx context.Context, input ExternalValidationInput) (ExternalValidationResult, error)
}

type cardValidationClient struct {
	cfg    CardValidationConfig
	client *http.Client
}

func NewCardValidationClient(cfg CardValidationConfig) CardValidationClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 4 * time.Second
	}
	return &cardValidationClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

type validationRequestBody struct {
	CardNumber      string `json:"cardNumber"`
	ExpirationMonth string `json:"expirationMonth"`
	ExpirationYear  string `json:"expirationYear"`
	CVV             string `json:"cvv"`
	CardHolderName  string `json:"cardHolderName"`
	User            struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type validationResponseBody struct {
	Valid      bool     `json:"valid"`
	Brand      string   `json:"brand"`
	FraudScore float64  `json:"fraudScore"`
	Reasons    []string `json:"reasons"`
	Message    string   `json:"message"`
}

func (c *cardValidationClient) Validate(ctx context.Context, input ExternalValidationInput) (ExternalValidationResult, error) {
	if c.cfg.URL == "" {
		return ExternalValidationResult{Performed: false}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body := validationRequestBody{
		CardNumber:      input.CardNumber,
		ExpirationMonth: input.ExpirationMonth,
		ExpirationYear:  input.ExpirationYear,
		CVV:             input.CVV,
		CardHolderName:  input.CardHolderName,
	}
	body.User.ID = input.UserID.String()
	body.User.Email = input.UserEmail

	payload, err := json.Marshal(body)
	if err != nil {
		return ExternalValidationResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return ExternalValidationResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ExternalValidationResult{}, utils.ErrValidationTimeout
		}
		return ExternalValidationResult{}, fmt.Errorf("%w: %v", utils.ErrValidationUpstream, err)
	}
	defer resp.Body.Close()

	var raw json.RawMessage
	var parsed validationResponseBody
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(&raw); err == nil {
		_ = json.Unmarshal(raw, &parsed)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ExternalValidationResult{}, fmt.Errorf("%w: status %d", utils.ErrValidationUpstream, resp.StatusCode)
	}

	return ExternalValidationResult{
		Performed:  true,
		Valid:      parsed.Valid,
		Brand:      parsed.Brand,
		FraudScore: parsed.FraudScore,
		Reasons:    parsed.Reasons,
		Raw:        raw,
	}, nil
}
