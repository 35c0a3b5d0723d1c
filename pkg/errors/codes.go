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
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"
	ErrCodeMessagingError     ErrorCode = "COMMON_017"
	ErrCodeStorageError       ErrorCode = "COMMON_018"
)

// Aliases for backward compatibility
const (
	CodeUnknown        = ErrorCode("")
	CodeOK             = ErrorCode("OK")
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeUnauthorized   = ErrCodeUnauthorized
	CodeForbidden      = ErrCodeForbidden
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeRateLimit      = ErrCodeTooManyRequests
	CodeNotImplemented = ErrCodeNotImplemented
	CodeCacheError     = ErrCodeCacheError
	CodeStorageError   = ErrCodeStorageError
)

// Candidate Module Error Codes
const (
	ErrCodeCandidateInvalid       ErrorCode = "CAND_001"
	ErrCodeCandidateNameMissing   ErrorCode = "CAND_002"
	ErrCodeCandidatePropertyRange ErrorCode = "CAND_003"
	ErrCodeCandidateListEmpty     ErrorCode = "CAND_004"
	ErrCodeCandidateNotFound      ErrorCode = "CAND_005"
)

// Structure Module Error Codes
const (
	ErrCodeStructureParseFailed  ErrorCode = "STR_001"
	ErrCodeStructureRenderFailed ErrorCode = "STR_002"
	ErrCodeCapabilityUnavailable ErrorCode = "STR_003"
	ErrCodeStructureSuperseded   ErrorCode = "STR_004"
	ErrCodeStructureEmpty        ErrorCode = "STR_005"
)

// Prediction Backend Error Codes
const (
	ErrCodePredictionSequenceEmpty ErrorCode = "PRED_001"
	ErrCodePredictionBackend       ErrorCode = "PRED_002"
	ErrCodePredictionDecode        ErrorCode = "PRED_003"
	ErrCodePredictionRateLimited   ErrorCode = "PRED_004"
)

// Export Module Error Codes
const (
	ErrCodeExportChartFailed   ErrorCode = "EXP_001"
	ErrCodeExportParquetFailed ErrorCode = "EXP_002"
	ErrCodeExportUploadFailed  ErrorCode = "EXP_003"
	ErrCodeExportReportFailed  ErrorCode = "EXP_004"
)

// Configuration
var (
	ErrInvalidConfig = New(ErrCodeBadRequest, "invalid configuration")
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
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeNotImplemented:     http.StatusNotImplemented,
	ErrCodeMessagingError:     http.StatusInternalServerError,
	ErrCodeStorageError:       http.StatusInternalServerError,

	ErrCodeCandidateInvalid:       http.StatusBadRequest,
	ErrCodeCandidateNameMissing:   http.StatusBadRequest,
	ErrCodeCandidatePropertyRange: http.StatusUnprocessableEntity,
	ErrCodeCandidateListEmpty:     http.StatusBadRequest,
	ErrCodeCandidateNotFound:      http.StatusNotFound,

	ErrCodeStructureParseFailed:  http.StatusUnprocessableEntity,
	ErrCodeStructureRenderFailed: http.StatusUnprocessableEntity,
	ErrCodeCapabilityUnavailable: http.StatusServiceUnavailable,
	ErrCodeStructureSuperseded:   http.StatusConflict,
	ErrCodeStructureEmpty:        http.StatusBadRequest,

	ErrCodePredictionSequenceEmpty: http.StatusBadRequest,
	ErrCodePredictionBackend:       http.StatusBadGateway,
	ErrCodePredictionDecode:        http.StatusBadGateway,
	ErrCodePredictionRateLimited:   http.StatusTooManyRequests,

	ErrCodeExportChartFailed:   http.StatusInternalServerError,
	ErrCodeExportParquetFailed: http.StatusInternalServerError,
	ErrCodeExportUploadFailed:  http.StatusBadGateway,
	ErrCodeExportReportFailed:  http.StatusInternalServerError,
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
	ErrCodeSerialization:      "serialization error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeNotImplemented:     "not implemented",
	ErrCodeMessagingError:     "messaging error",
	ErrCodeStorageError:       "object storage error",

	ErrCodeCandidateInvalid:       "invalid drug candidate",
	ErrCodeCandidateNameMissing:   "drug candidate name is required",
	ErrCodeCandidatePropertyRange: "molecular property out of range",
	ErrCodeCandidateListEmpty:     "no drug candidates supplied",
	ErrCodeCandidateNotFound:      "drug candidate not found",

	ErrCodeStructureParseFailed:  "Invalid SMILES notation",
	ErrCodeStructureRenderFailed: "Failed to render molecule",
	ErrCodeCapabilityUnavailable: "Failed to load molecule renderer",
	ErrCodeStructureSuperseded:   "structure request superseded",
	ErrCodeStructureEmpty:        "SMILES notation is empty",

	ErrCodePredictionSequenceEmpty: "Please enter a protein sequence",
	ErrCodePredictionBackend:       "Failed to analyze protein sequence",
	ErrCodePredictionDecode:        "malformed prediction response",
	ErrCodePredictionRateLimited:   "prediction backend rate limited",

	ErrCodeExportChartFailed:   "failed to render comparison chart",
	ErrCodeExportParquetFailed: "failed to write parquet export",
	ErrCodeExportUploadFailed:  "failed to upload export",
	ErrCodeExportReportFailed:  "failed to render board report",
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

//Personal.AI order the ending
