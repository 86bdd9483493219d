package security

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestEncryptor(t *testing.T) *Encryptor {
	t.Helper()
	enc, err := NewEncryptor(testKey, nil)
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}
	return enc
}

func TestNewEncryptorKeyLength(t *testing.T) {
	for _, size := range []int{0, 16, 31, 33, 64} {
		if _, err := NewEncryptor(make([]byte, size), nil); !errors.Is(err, ErrKeyLength) {
			t.Errorf("key of %d bytes: expected ErrKeyLength, got %v", size, err)
		}
	}
	if _, err := NewEncryptor(make([]byte, 32), nil); err != nil {
		t.Errorf("32 byte key: unexpected error %v", err)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc := newTestEncryptor(t)

	plaintext := `{"cardNumber":"4111111111111111"}`
	payload, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	got, err := enc.Decrypt(payload)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if got != plaintext {
		t.Errorf("round trip mismatch: got %q", got)
	}

	second, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if second == payload {
		t.Error("two encryptions of the same input produced identical payloads")
	}
}

func TestDecryptRejectsTampering(t *testing.T) {
	enc := newTestEncryptor(t)

	payload, err := enc.Encrypt("sensitive")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	t.Run("flipped byte", func(t *testing.T) {
		raw, _ := base64.StdEncoding.DecodeString(payload)
		raw[len(raw)-1] ^= 0x01
		tampered := base64.StdEncoding.EncodeToString(raw)
		if _, err := enc.Decrypt(tampered); !errors.Is(err, ErrIntegrity) {
			t.Errorf("expected ErrIntegrity, got %v", err)
		}
	})

	t.Run("not base64", func(t *testing.T) {
		if _, err := enc.Decrypt("%%%not-base64%%%"); !errors.Is(err, ErrIntegrity) {
			t.Errorf("expected ErrIntegrity, got %v", err)
		}
	})

	t.Run("truncated", func(t *testing.T) {
		short := base64.StdEncoding.EncodeToString([]byte("tiny"))
		if _, err := enc.Decrypt(short); !errors.Is(err, ErrIntegrity) {
			t.Errorf("expected ErrIntegrity, got %v", err)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := NewEncryptor([]byte("ffffffffffffffffffffffffffffffff"), nil)
		if err != nil {
			t.Fatalf("NewEncryptor: %v", err)
		}
		if _, err := other.Decrypt(payload); !errors.Is(err, ErrIntegrity) {
			t.Errorf("expected ErrIntegrity, got %v", err)
		}
	})
}

func TestDeriveCardToken(t *testing.T) {
	enc := newTestEncryptor(t)

	token := enc.DeriveCardToken("4111111111111111", "12", "2030")
	if !IsValidCardToken(token) {
		t.Fatalf("derived token %q does not match the expected format", token)
	}

	if again := enc.DeriveCardToken("4111111111111111", "12", "2030"); again != token {
		t.Errorf("token not deterministic: %q vs %q", token, again)
	}

	if other := enc.DeriveCardToken("4111111111111111", "11", "2030"); other == token {
		t.Error("different expiry produced the same token")
	}
	if other := enc.DeriveCardToken("5555555555554444", "12", "2030"); other == token {
		t.Error("different card produced the same token")
	}
}

func TestIsValidCardToken(t *testing.T) {
	cases := map[string]bool{
		"card_" + strings.Repeat("a", 32): true,
		"card_" + strings.Repeat("a", 31): false,
		"card_" + strings.Repeat("A", 32): false,
		"tok_" + strings.Repeat("a", 32):  false,
		"":                                false,
	}
	for token, want := range cases {
		if got := IsValidCardToken(token); got != want {
			t.Errorf("IsValidCardToken(%q) = %v, want %v", token, got, want)
		}
	}
}

func TestMaskCardNumber(t *testing.T) {
	if got := MaskCardNumber("4111111111111111"); got != strings.Repeat("•", 12)+"1111" {
		t.Errorf("unexpected mask %q", got)
	}
	if got := MaskCardNumber("123"); got != "123" {
		t.Errorf("short input should be returned as is, got %q", got)
	}
	if got := LastFourDigits("4111111111111111"); got != "1111" {
		t.Errorf("LastFourDigits = %q", got)
	}
}

func TestTokenizeDetokenizeCard(t *testing.T) {
	fixed := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	enc, err := NewEncryptor(testKey, func() time.Time { return fixed })
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}

	card := CardData{
		CardNumber:      "4111111111111111",
		CardHolderName:  "MARIA SILVA",
		ExpirationMonth: "12",
		ExpirationYear:  "2030",
	}

	tokenized, err := enc.TokenizeCard(card)
	if err != nil {
		t.Fatalf("TokenizeCard: %v", err)
	}
	if tokenized.LastFourDigits != "1111" {
		t.Errorf("LastFourDigits = %q", tokenized.LastFourDigits)
	}
	if tokenized.Token != enc.DeriveCardToken(card.CardNumber, card.ExpirationMonth, card.ExpirationYear) {
		t.Error("tokenized token does not match derived token")
	}
	if strings.Contains(tokenized.EncryptedData, card.CardNumber) {
		t.Error("encrypted payload leaks the card number")
	}

	recovered, err := enc.DetokenizeCard(tokenized.EncryptedData)
	if err != nil {
		t.Fatalf("DetokenizeCard: %v", err)
	}
	if *recovered != card {
		t.Errorf("detokenized card mismatch: %+v", recovered)
	}
}

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if len(key) != 32 {
		t.Fatalf("generated key has %d characters, want 32", len(key))
	}
	if _, err := NewEncryptor([]byte(key), nil); err != nil {
		t.Errorf("generated key rejected: %v", err)
	}
}
