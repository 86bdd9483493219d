package utils

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIResponse struct {
	Status    string      `json:"status"`
	Code      int         `json:"code"`
	ErrorCode string      `json:"error_code,omitempty"`
	Message   string      `json:"message,omitempty"`
	TraceID   string      `json:"trace_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

func traceID(c *gin.Context) string {
	v, _ := c.Get("trace_id")
	s, _ := v.(string)
	return s
}

func RespondSuccess(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, APIResponse{
		Status:  "success",
		Code:    http.StatusOK,
		Message: message,
		TraceID: traceID(c),
		Data:    data,
	})
}

func RespondCreated(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusCreated, APIResponse{
		Status:  "success",
		Code:    http.StatusCreated,
		Message: message,
		TraceID: traceID(c),
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, message string) {
	c.JSON(code, APIResponse{
		Status:  "error",
		Code:    code,
		Message: message,
		TraceID: traceID(c),
	})
}

type errorMapping struct {
	httpStatus int
	errorCode  string
}

// Stable machine-readable codes for every service error. Raw technical
// detail never leaves the service layer.
var errorMappings = map[error]errorMapping{
	ErrAccountNotFound:          {http.StatusNotFound, "ACCOUNT_NOT_FOUND"},
	ErrInvalidCredentials:       {http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	ErrInvalidRefreshToken:      {http.StatusUnauthorized, "INVALID_REFRESH_TOKEN"},
	ErrEmailAlreadyExists:       {http.StatusConflict, "EMAIL_ALREADY_EXISTS"},
	ErrInvalidPage:              {http.StatusBadRequest, "INVALID_PAGE"},
	ErrInvalidPageSize:          {http.StatusBadRequest, "INVALID_PAGE_SIZE"},
	ErrTransactionNotFound:      {http.StatusNotFound, "TRANSACTION_NOT_FOUND"},
	ErrDuplicateOrder:           {http.StatusConflict, "DUPLICATE_ORDER_ID"},
	ErrUnauthorizedTransaction:  {http.StatusForbidden, "UNAUTHORIZED_TRANSACTION"},
	ErrInvalidTransactionStatus: {http.StatusBadRequest, "INVALID_TRANSACTION_STATUS"},
	ErrInvalidPaymentMethod:     {http.StatusBadRequest, "INVALID_PAYMENT_METHOD"},
	ErrRecipientConflict:        {http.StatusBadRequest, "RECIPIENT_CONFLICT"},
	ErrInvalidPixKey:            {http.StatusBadRequest, "INVALID_PIX_KEY"},
	ErrInvalidInstallments:      {http.StatusBadRequest, "INVALID_INSTALLMENTS"},
	ErrInstallmentsNotAllowed:   {http.StatusBadRequest, "INSTALLMENTS_NOT_ALLOWED"},
	ErrPixNotInitiated:          {http.StatusBadRequest, "PIX_NOT_INITIATED"},
	ErrCannotCancel:             {http.StatusBadRequest, "CANNOT_CANCEL_TRANSACTION"},
	ErrPaymentProcessing:        {http.StatusInternalServerError, "PAYMENT_PROCESSING_ERROR"},
	ErrPixProcessing:            {http.StatusInternalServerError, "PIX_PROCESSING_ERROR"},
	ErrPixStatusCheck:           {http.StatusInternalServerError, "PIX_STATUS_CHECK_ERROR"},
	ErrCardNotFound:             {http.StatusNotFound, "CARD_NOT_FOUND"},
	ErrDuplicateCard:            {http.StatusConflict, "DUPLICATE_CARD"},
	ErrInvalidCardNumber:        {http.StatusBadRequest, "INVALID_CARD_NUMBER"},
	ErrInvalidCardHolder:        {http.StatusBadRequest, "INVALID_CARD_HOLDER_NAME"},
	ErrInvalidExpiration:        {http.StatusBadRequest, "INVALID_EXPIRATION_DATE"},
	ErrInvalidCVV:               {http.StatusBadRequest, "INVALID_CVV"},
	ErrCardExpired:              {http.StatusBadRequest, "CARD_EXPIRED"},
	ErrUnsupportedCardBrand:     {http.StatusBadRequest, "UNSUPPORTED_CARD_BRAND"},
	ErrCardRejected:             {http.StatusUnprocessableEntity, "CARD_REJECTED"},
	ErrValidationUpstream:       {http.StatusBadGateway, "CARD_VALIDATION_UPSTREAM_ERROR"},
	ErrValidationTimeout:        {http.StatusGatewayTimeout, "CARD_VALIDATION_TIMEOUT"},
}

func HandleServiceError(c *gin.Context, err error) {
	for sentinel, m := range errorMappings {
		if errors.Is(err, sentinel) {
			c.JSON(m.httpStatus, APIResponse{
				Status:    "error",
				Code:      m.httpStatus,
				ErrorCode: m.errorCode,
				Message:   sentinel.Error(),
				TraceID:   traceID(c),
			})
			return
		}
	}

	if errors.Is(err, ErrDatabaseError) {
		log.Printf("Database error: %v", err)
	} else {
		log.Printf("Unknown error: %v", err)
	}
	c.JSON(http.StatusInternalServerError, APIResponse{
		Status:    "error",
		Code:      http.StatusInternalServerError,
		ErrorCode: "INTERNAL_ERROR",
		Message:   "Internal server error",
		TraceID:   traceID(c),
	})
}
