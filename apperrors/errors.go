package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error is an application error carrying the HTTP status it maps to.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Validation errors: detected before any mutation.
var (
	ErrInvalidInput    = New(http.StatusBadRequest, "Invalid input", nil)
	ErrEmptyCart       = New(http.StatusBadRequest, "Cart is empty", nil)
	ErrNoMatchingItems = New(http.StatusBadRequest, "No matching items", nil)
)

// Authorization errors.
var (
	ErrUnauthorized  = New(http.StatusUnauthorized, "Unauthorized", nil)
	ErrSelfPurchase  = New(http.StatusForbidden, "You cannot buy your own product", nil)
	ErrNotAuthorized = New(http.StatusForbidden, "Not authorized", nil)
)

// Not-found errors.
var (
	ErrProductNotFound = New(http.StatusNotFound, "Product not found", nil)
	ErrCartNotFound    = New(http.StatusNotFound, "Cart not found", nil)
	ErrItemNotInCart   = New(http.StatusNotFound, "Product not in cart", nil)
	ErrOrderNotFound   = New(http.StatusNotFound, "Order not found", nil)
)

var ErrInternal = New(http.StatusInternalServerError, "Internal server error", nil)

// InsufficientStock is a conflict detected at reservation (or advisory cart)
// time. The message varies per call, so it is a constructor, not a value.
func InsufficientStock(message string) *Error {
	return New(http.StatusBadRequest, message, nil)
}

// Internal wraps an unexpected store failure without leaking detail to the
// client; the cause is retained for logging via Unwrap.
func Internal(err error) *Error {
	return New(http.StatusInternalServerError, "Internal server error", err)
}

// Respond writes the error as a {message} body with the mapped status.
func Respond(c *gin.Context, err error) {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = Internal(err)
	}
	c.JSON(appErr.Code, gin.H{"message": appErr.Message})
}
