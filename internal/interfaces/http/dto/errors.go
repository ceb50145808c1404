package dto

import (
	"errors"
	"net/http"

	"github.com/sellerdash/backend/internal/domain/sales"
	"github.com/sellerdash/backend/internal/infrastructure/scheduler"
	"github.com/sellerdash/backend/internal/infrastructure/storage"
)

// Error codes, formatted ERR_<CATEGORY>_<DESCRIPTION>
const (
	ErrCodeInternal        = "ERR_INTERNAL"
	ErrCodeValidation      = "ERR_VALIDATION"
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidRange    = "ERR_INVALID_DATE_RANGE"
	ErrCodeInvalidMonth    = "ERR_INVALID_MONTH"
	ErrCodeUnauthorized    = "ERR_UNAUTHORIZED"
	ErrCodeForbidden       = "ERR_FORBIDDEN"
	ErrCodeTokenExpired    = "ERR_TOKEN_EXPIRED"
	ErrCodeNotFound        = "ERR_NOT_FOUND"
	ErrCodeSyncInProgress  = "ERR_SYNC_IN_PROGRESS"
	ErrCodeSyncFailed      = "ERR_SYNC_FAILED"
	ErrCodeQueueFull       = "ERR_QUEUE_FULL"
	ErrCodeUnavailable     = "ERR_SERVICE_UNAVAILABLE"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidRange:    http.StatusBadRequest,
	ErrCodeInvalidMonth:    http.StatusBadRequest,
	ErrCodeUnauthorized:    http.StatusUnauthorized,
	ErrCodeForbidden:       http.StatusForbidden,
	ErrCodeTokenExpired:    http.StatusUnauthorized,
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeSyncInProgress:  http.StatusConflict,
	ErrCodeSyncFailed:      http.StatusBadGateway,
	ErrCodeQueueFull:       http.StatusServiceUnavailable,
	ErrCodeUnavailable:     http.StatusServiceUnavailable,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// errorCodes maps sentinel errors to API error codes, checked in order
var errorCodes = []struct {
	err  error
	code string
}{
	{sales.ErrSyncInProgress, ErrCodeSyncInProgress},
	{sales.ErrInvalidDateRange, ErrCodeInvalidRange},
	{sales.ErrInvalidMonth, ErrCodeInvalidMonth},
	{sales.ErrShopNotFound, ErrCodeNotFound},
	{sales.ErrRateNotFound, ErrCodeNotFound},
	{storage.ErrReportNotFound, ErrCodeNotFound},
	{scheduler.ErrJobQueueFull, ErrCodeQueueFull},
	{scheduler.ErrSchedulerNotRunning, ErrCodeUnavailable},
	{scheduler.ErrSyncRunFailed, ErrCodeSyncFailed},
}

// ErrorCodeFor returns the API error code of err, ErrCodeInternal when err is
// not a known sentinel.
func ErrorCodeFor(err error) string {
	for _, m := range errorCodes {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	return ErrCodeInternal
}
