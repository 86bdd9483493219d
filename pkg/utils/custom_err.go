package utils

import "errors"

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	ErrInvalidPage        = errors.New("invalid page parameter")
	ErrInvalidPageSize    = errors.New("invalid page size parameter")
	ErrDatabaseError      = errors.New("database error")

	// Transaction lifecycle
	ErrTransactionNotFound      = errors.New("transaction not found")
	ErrDuplicateOrder           = errors.New("order id already exists with active transaction")
	ErrUnauthorizedTransaction  = errors.New("unauthorized access to transaction")
	ErrInvalidTransactionStatus = errors.New("transaction cannot be processed in current status")
	ErrInvalidPaymentMethod     = errors.New("invalid payment method for this transaction")
	ErrRecipientConflict        = errors.New("only one recipient type allowed")
	ErrInvalidPixKey            = errors.New("invalid pix key format")
	ErrInvalidInstallments      = errors.New("installments quantity must be between 1 and 24")
	ErrInstallmentsNotAllowed   = errors.New("installments only supported for credit card")
	ErrPixNotInitiated          = errors.New("pix payment not yet initiated")
	ErrCannotCancel             = errors.New("transaction cannot be cancelled in current status")
	ErrPaymentProcessing        = errors.New("payment processing failed")
	ErrPixProcessing            = errors.New("pix payment processing failed")
	ErrPixStatusCheck           = errors.New("failed to check pix status")

	// Card vault
	ErrCardNotFound         = errors.New("card not found")
	ErrDuplicateCard        = errors.New("card already saved")
	ErrInvalidCardNumber    = errors.New("invalid credit card number")
	ErrInvalidCardHolder    = errors.New("invalid card holder name")
	ErrInvalidExpiration    = errors.New("invalid expiration date")
	ErrInvalidCVV           = errors.New("invalid cvv")
	ErrCardExpired          = errors.New("card has expired")
	ErrUnsupportedCardBrand = errors.New("unsupported card brand")
	ErrCardRejected         = errors.New("card rejected by external validation")

	// External card validator
	ErrValidationUpstream = errors.New("external card validation failed")
	ErrValidationTimeout  = errors.New("external card validation timeout")
)
