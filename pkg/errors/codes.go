package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeInvalidState       ErrorCode = "COMMON_015"
	ErrCodeImmutable          ErrorCode = "COMMON_016"
)

// Sentinel codes used by helper functions.
const (
	CodeOK      = ErrorCode("OK")
	CodeUnknown = ErrorCode("UNKNOWN")
)

// Alert Module Error Codes
const (
	ErrCodeAlertNotFound        ErrorCode = "ALR_001"
	ErrCodeAlertTerminal        ErrorCode = "ALR_002"
	ErrCodeAlertAlreadyAssigned ErrorCode = "ALR_003"
	ErrCodeAlertDeadlineFuture  ErrorCode = "ALR_004"
	ErrCodeAlertMissingActor    ErrorCode = "ALR_005"
)

// Rule Module Error Codes
const (
	ErrCodeRuleNotFound   ErrorCode = "RUL_001"
	ErrCodeRuleInactive   ErrorCode = "RUL_002"
	ErrCodeRuleManualOnly ErrorCode = "RUL_003"
)

// Notice Module Error Codes
const (
	ErrCodeNoticeNotFound      ErrorCode = "NOT_001"
	ErrCodeNoticePeriodPending ErrorCode = "NOT_002"
	ErrCodeNoticeEmpty         ErrorCode = "NOT_003"
	ErrCodeNoticeNotDraft      ErrorCode = "NOT_004"
	ErrCodeNoticeNotGenerated  ErrorCode = "NOT_005"
	ErrCodeNoticeNotSubmitted  ErrorCode = "NOT_006"
)

// Catalog / reference data Error Codes
const (
	ErrCodeCatalogUnavailable ErrorCode = "CAT_001"
	ErrCodeCatalogMissingRef  ErrorCode = "CAT_002"
)

// Regulatory rendering Error Codes
const (
	ErrCodeRenderFailed      ErrorCode = "RND_001"
	ErrCodeRenderMissingData ErrorCode = "RND_002"
)

// Document storage Error Codes
const (
	ErrCodeDocumentStoreError ErrorCode = "DOC_001"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusInternalServerError,
	ErrCodeInvalidState:       http.StatusConflict,
	ErrCodeImmutable:          http.StatusConflict,

	ErrCodeAlertNotFound:        http.StatusNotFound,
	ErrCodeAlertTerminal:        http.StatusConflict,
	ErrCodeAlertAlreadyAssigned: http.StatusConflict,
	ErrCodeAlertDeadlineFuture:  http.StatusConflict,
	ErrCodeAlertMissingActor:    http.StatusUnprocessableEntity,

	ErrCodeRuleNotFound:   http.StatusNotFound,
	ErrCodeRuleInactive:   http.StatusConflict,
	ErrCodeRuleManualOnly: http.StatusConflict,

	ErrCodeNoticeNotFound:      http.StatusNotFound,
	ErrCodeNoticePeriodPending: http.StatusConflict,
	ErrCodeNoticeEmpty:         http.StatusConflict,
	ErrCodeNoticeNotDraft:      http.StatusConflict,
	ErrCodeNoticeNotGenerated:  http.StatusConflict,
	ErrCodeNoticeNotSubmitted:  http.StatusConflict,

	ErrCodeCatalogUnavailable: http.StatusServiceUnavailable,
	ErrCodeCatalogMissingRef:  http.StatusUnprocessableEntity,

	ErrCodeRenderFailed:      http.StatusInternalServerError,
	ErrCodeRenderMissingData: http.StatusUnprocessableEntity,

	ErrCodeDocumentStoreError: http.StatusInternalServerError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeInvalidState:       "operation not allowed in current state",
	ErrCodeImmutable:          "value is immutable",

	ErrCodeAlertNotFound:        "alert not found",
	ErrCodeAlertTerminal:        "alert is in a terminal state",
	ErrCodeAlertAlreadyAssigned: "alert already assigned to a notice",
	ErrCodeAlertDeadlineFuture:  "submission deadline has not passed",
	ErrCodeAlertMissingActor:    "cancellation requires an actor",

	ErrCodeRuleNotFound:   "alert rule not found",
	ErrCodeRuleInactive:   "alert rule is inactive",
	ErrCodeRuleManualOnly: "rule accepts manual alerts only",

	ErrCodeNoticeNotFound:      "notice not found",
	ErrCodeNoticePeriodPending: "a pending notice already exists for this period",
	ErrCodeNoticeEmpty:         "notice has no assigned alerts",
	ErrCodeNoticeNotDraft:      "notice is no longer a draft",
	ErrCodeNoticeNotGenerated:  "notice file has not been generated",
	ErrCodeNoticeNotSubmitted:  "notice has not been submitted",

	ErrCodeCatalogUnavailable: "catalog service unavailable",
	ErrCodeCatalogMissingRef:  "required catalog reference missing",

	ErrCodeRenderFailed:      "regulatory document rendering failed",
	ErrCodeRenderMissingData: "missing data required for rendering",

	ErrCodeDocumentStoreError: "document store error",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
