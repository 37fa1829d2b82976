package errors

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
	ErrCodeStorageError       ErrorCode = "COMMON_017"
	ErrCodeMessageQueueError  ErrorCode = "COMMON_018"
)

// Stereo expansion error codes.
const (
	ErrCodeUnresolvableSpecies  ErrorCode = "STE_001"
	ErrCodeNoClassification     ErrorCode = "STE_002"
	ErrCodeVariantConversion    ErrorCode = "STE_003"
	ErrCodeInvalidIdentifier    ErrorCode = "STE_004"
	ErrCodeInvalidMechanism     ErrorCode = "STE_005"
	ErrCodeOracleProcessFailed  ErrorCode = "STE_006"
	ErrCodeMechanismFileInvalid ErrorCode = "STE_007"
)

// Aliases kept short for call sites.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:             "internal error",
	ErrCodeBadRequest:           "bad request",
	ErrCodeNotFound:             "resource not found",
	ErrCodeServiceUnavailable:   "service unavailable",
	ErrCodeTimeout:              "operation timeout",
	ErrCodeValidation:           "validation failed",
	ErrCodeSerialization:        "serialization failed",
	ErrCodeCacheError:           "cache error",
	ErrCodeExternalService:      "external service error",
	ErrCodeFeatureDisabled:      "feature disabled",
	ErrCodeStorageError:         "object storage error",
	ErrCodeMessageQueueError:    "message queue error",
	ErrCodeUnresolvableSpecies:  "species name not found in mechanism",
	ErrCodeNoClassification:     "stereo oracle could not classify reaction",
	ErrCodeVariantConversion:    "stereo variant could not be converted to identifiers",
	ErrCodeInvalidIdentifier:    "invalid structure identifier",
	ErrCodeInvalidMechanism:     "invalid mechanism",
	ErrCodeOracleProcessFailed:  "stereo oracle process failed",
	ErrCodeMechanismFileInvalid: "mechanism document could not be parsed",
}

// DefaultMessage returns the canned message for code, or "unknown error".
func DefaultMessage(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsTransient reports whether failures with code are worth retrying.
func IsTransient(code ErrorCode) bool {
	switch code {
	case ErrCodeVariantConversion, ErrCodeServiceUnavailable, ErrCodeTimeout,
		ErrCodeCacheError, ErrCodeMessageQueueError, ErrCodeStorageError:
		return true
	}
	return false
}
