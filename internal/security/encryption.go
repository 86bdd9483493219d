// Package security protects card data at rest. Reversible details are
// AES-256-GCM encrypted for charge-time use only; card identity is a
// deterministic one-way token used for dedup and lookup.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"
)

const (
	keyLength   = 32
	nonceLength = 12
	tagLength   = 16
	tokenPrefix = "card_"
	maskRune    = "•"
)

var (
	ErrKeyLength = errors.New("encryption key must be exactly 32 bytes")
	ErrIntegrity = errors.New("payload integrity check failed")

	cardTokenRx = regexp.MustCompile(`^card_[a-f0-9]{32}$`)
)

type CardData struct {
	CardNumber      string `json:"cardNumber"`
	CardHolderName  string `json:"cardHolderName"`
	ExpirationMonth string `json:"expirationMonth"`
	ExpirationYear  string `json:"expirationYear"`
}

type TokenizedCard struct {
	Token          string
	LastFourDigits string
	EncryptedData  string
}

type Encryptor struct {
	key []byte
	now func() time.Time
}

func NewEncryptor(key []byte, now func() time.Time) (*Encryptor, error) {
	if len(key) != keyLength {
		return nil, ErrKeyLength
	}
	if now == nil {
		now = time.Now
	}
	k := make([]byte, keyLength)
	copy(k, key)
	return &Encryptor{key: k, now: now}, nil
}

func (e *Encryptor) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext with a fresh random nonce. The payload layout
// is nonce(12) ‖ tag(16) ‖ ciphertext, base64 encoded. Two calls with
// the same input produce different payloads.
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	gcm, err := e.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	ciphertext := sealed[:len(sealed)-tagLength]
	tag := sealed[len(sealed)-tagLength:]

	packed := make([]byte, 0, nonceLength+tagLength+len(ciphertext))
	packed = append(packed, nonce...)
	packed = append(packed, tag...)
	packed = append(packed, ciphertext...)

	return base64.StdEncoding.EncodeToString(packed), nil
}

// Decrypt is the inverse of Encrypt. Any tampering or key mismatch
// fails with ErrIntegrity; corrupted plaintext is never returned.
func (e *Encryptor) Decrypt(payload string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", ErrIntegrity
	}
	if len(raw) < nonceLength+tagLength {
		return "", ErrIntegrity
	}

	nonce := raw[:nonceLength]
	tag := raw[nonceLength : nonceLength+tagLength]
	ciphertext := raw[nonceLength+tagLength:]

	gcm, err := e.aead()
	if err != nil {
		return "", err
	}

	sealed := make([]byte, 0, len(ciphertext)+tagLength)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrIntegrity
	}

	return string(plaintext), nil
}

// Hash is a one-way sha256 hex digest, used as a building block for
// token derivation.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// DeriveCardToken derives a stable identifier from the card number and
// expiry. Same inputs always yield the same token; the expiry is
// included so a reissued card with the same PAN gets a distinct token.
func (e *Encryptor) DeriveCardToken(cardNumber, expirationMonth, expirationYear string) string {
	digest := Hash(cardNumber + ":" + expirationMonth + ":" + expirationYear)
	return tokenPrefix + digest[:32]
}

func IsValidCardToken(token string) bool {
	return cardTokenRx.MatchString(token)
}

func LastFourDigits(cardNumber string) string {
	if len(cardNumber) < 4 {
		return cardNumber
	}
	return cardNumber[len(cardNumber)-4:]
}

// MaskCardNumber is display-only. Never used for storage or comparison.
func MaskCardNumber(cardNumber string) string {
	if len(cardNumber) < 4 {
		return cardNumber
	}
	return strings.Repeat(maskRune, len(cardNumber)-4) + LastFourDigits(cardNumber)
}

type sensitivePayload struct {
	CardData
	TokenizedAt string `json:"tokenizedAt"`
}

// TokenizeCard derives the dedup token and encrypts the full card
// payload for charge-time use.
func (e *Encryptor) TokenizeCard(card CardData) (*TokenizedCard, error) {
	payload, err := json.Marshal(sensitivePayload{
		CardData:    card,
		TokenizedAt: e.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}

	encrypted, err := e.Encrypt(string(payload))
	if err != nil {
		return nil, err
	}

	return &TokenizedCard{
		Token:          e.DeriveCardToken(card.CardNumber, card.ExpirationMonth, card.ExpirationYear),
		LastFourDigits: LastFourDigits(card.CardNumber),
		EncryptedData:  encrypted,
	}, nil
}

// DetokenizeCard recovers the raw card fields. Callers must scope its
// use to the charge flow and must not log or persist the output.
func (e *Encryptor) DetokenizeCard(encryptedData string) (*CardData, error) {
	plaintext, err := e.Decrypt(encryptedData)
	if err != nil {
		return nil, err
	}

	var payload sensitivePayload
	if err := json.Unmarshal([]byte(plaintext), &payload); err != nil {
		return nil, ErrIntegrity
	}

	card := payload.CardData
	return &card, nil
}

// GenerateKey returns a random 32-character hex key for initial setup.
func GenerateKey() (string, error) {
	raw := make([]byte, keyLength/2)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}
