package apperr

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Code identifies a class of workflow failure.
type Code int

const (
	CodeValidation Code = iota + 1
	CodeNotFound
	CodeConflict
	CodeAlreadyCompleted
	CodePendingVerification
	CodeInsufficientBalance
	CodeBelowMinimum
	CodeUnauthorized
	CodeForbidden
	CodeInternal
)

// Error is a workflow error with a fixed HTTP status and a user-facing message.
type Error struct {
	Code    Code
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New derives an error of kind's class with a custom message.
func New(kind *Error, format string, args ...interface{}) *Error {
	return &Error{Code: kind.Code, Status: kind.Status, Message: fmt.Sprintf(format, args...)}
}

// Is matches errors by class, so errors.Is(err, apperr.NotFound) works for
// derived messages too.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	Validation          = &Error{Code: CodeValidation, Status: http.StatusBadRequest, Message: "invalid request"}
	NotFound            = &Error{Code: CodeNotFound, Status: http.StatusNotFound, Message: "not found"}
	Conflict            = &Error{Code: CodeConflict, Status: http.StatusConflict, Message: "conflict"}
	AlreadyCompleted    = &Error{Code: CodeAlreadyCompleted, Status: http.StatusBadRequest, Message: "task already completed"}
	PendingVerification = &Error{Code: CodePendingVerification, Status: http.StatusAccepted, Message: "complete the task via the provided link, then resubmit"}
	InsufficientBalance = &Error{Code: CodeInsufficientBalance, Status: http.StatusBadRequest, Message: "insufficient balance"}
	BelowMinimum        = &Error{Code: CodeBelowMinimum, Status: http.StatusBadRequest, Message: "amount is below the withdrawal minimum"}
	Unauthorized        = &Error{Code: CodeUnauthorized, Status: http.StatusUnauthorized, Message: "unauthorized"}
	Forbidden           = &Error{Code: CodeForbidden, Status: http.StatusForbidden, Message: "forbidden"}
	Internal            = &Error{Code: CodeInternal, Status: http.StatusInternalServerError, Message: "internal server error"}
)

// Respond writes err as a JSON response. Unrecognized errors are logged and
// surfaced as a generic 500 so persistence details never leak to clients.
func Respond(c *gin.Context, err error) {
	var appErr *Error
	if errors.As(err, &appErr) {
		c.JSON(appErr.Status, gin.H{"message": appErr.Message})
		return
	}

	log.Printf("internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(Internal.Status, gin.H{"message": Internal.Message})
}
