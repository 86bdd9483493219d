package utils

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	nonDigits       = regexp.MustCompile(`\D`)
	holderNameRx    = regexp.MustCompile(`^[A-Za-z\s]+$`)
	expMonthRx      = regexp.MustCompile(`^(0[1-9]|1[0-2])$`)
	expYearRx       = regexp.MustCompile(`^\d{4}$`)
	cvvRx           = regexp.MustCompile(`^\d{3,4}$`)
	cardNumberRx    = regexp.MustCompile(`^\d{13,19}$`)
	mastercardRx    = regexp.MustCompile(`^(5[1-5]|2[2-7])`)
	amexRx          = regexp.MustCompile(`^3[47]`)
	eloRx           = regexp.MustCompile(`^(4011|4312|4389|4514|4573|6277|6362|6363|6504|6505|6516|6550)`)
)

// ValidateCreditCardNumber runs the Luhn mod-10 check. It validates
// structural correctness only, not issuer approval.
func ValidateCreditCardNumber(cardNumber string) bool {
	cleaned := nonDigits.ReplaceAllString(cardNumber, "")

	if len(cleaned) < 13 || len(cleaned) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(cleaned) - 1; i >= 0; i-- {
		digit := int(cleaned[i] - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}

	return sum%10 == 0
}

// GetCardBrand detects the brand from the number prefix. Elo prefixes
// are checked before visa's generic leading 4.
func GetCardBrand(cardNumber string) string {
	cleaned := nonDigits.ReplaceAllString(cardNumber, "")

	if eloRx.MatchString(cleaned) {
		return "elo"
	}
	if strings.HasPrefix(cleaned, "4") {
		return "visa"
	}
	if mastercardRx.MatchString(cleaned) {
		return "mastercard"
	}
	if amexRx.MatchString(cleaned) {
		return "amex"
	}

	return "unknown"
}

// ValidateCardExpiration reports whether the card is still valid at the
// given instant. A card expires at the end of its expiration month.
func ValidateCardExpiration(month, year string, now time.Time) bool {
	expMonth, err := strconv.Atoi(month)
	if err != nil {
		return false
	}
	expYear, err := strconv.Atoi(year)
	if err != nil {
		return false
	}

	if expYear > now.Year() {
		return true
	}
	if expYear == now.Year() {
		return expMonth >= int(now.Month())
	}
	return false
}

// ValidateExpirationYearWindow bounds the year to current..current+20.
func ValidateExpirationYearWindow(year string, now time.Time) bool {
	expYear, err := strconv.Atoi(year)
	if err != nil {
		return false
	}
	return expYear >= now.Year() && expYear <= now.Year()+20
}

func ValidateCardNumberShape(cardNumber string) bool {
	return cardNumberRx.MatchString(cardNumber)
}

func ValidateCardHolderName(name string) bool {
	trimmed := strings.TrimSpace(name)
	return len(trimmed) >= 2 && len(trimmed) <= 100 && holderNameRx.MatchString(trimmed)
}

func ValidateExpirationMonth(month string) bool {
	return expMonthRx.MatchString(month)
}

func ValidateExpirationYear(year string) bool {
	return expYearRx.MatchString(year)
}

func ValidateCVV(cvv string) bool {
	return cvvRx.MatchString(cvv)
}

// ValidateCardFields checks the shape of the non-number card fields.
// Month and year shape must pass before any calendar comparison, so a
// month of "13" never reaches ValidateCardExpiration.
func ValidateCardFields(holderName, month, year, cvv string) error {
	if !ValidateCardHolderName(holderName) {
		return ErrInvalidCardHolder
	}
	if !ValidateExpirationMonth(month) || !ValidateExpirationYear(year) {
		return ErrInvalidExpiration
	}
	if !ValidateCVV(cvv) {
		return ErrInvalidCVV
	}
	return nil
}
