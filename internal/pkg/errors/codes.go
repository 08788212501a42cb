package errors

// Error code constants.
// Errors carry code + message; the CLI maps Kind to exit presentation.

// CSV input error codes.
const (
	CodeCSVNotFound       = "CSV_NOT_FOUND"
	CodeCSVEmpty          = "CSV_EMPTY"
	CodeCSVMissingColumns = "CSV_MISSING_COLUMNS"
	CodeCSVRowInvalid     = "CSV_ROW_INVALID"
)

// Identifier error codes.
const (
	CodeDNParseFailed    = "DN_PARSE_FAILED"
	CodeGroupNameInvalid = "GROUP_NAME_INVALID"
)

// Remote API error codes.
const (
	CodeAPIRequestFailed = "API_REQUEST_FAILED"
	CodeAPITransient     = "API_TRANSIENT"
)

// Configuration error codes.
const (
	CodeAuthConfigInvalid = "AUTH_CONFIG_INVALID"
	CodeConfigInvalid     = "CONFIG_INVALID"
)

// Convenience constructors using predefined codes.

// ErrCSVNotFoundf creates a usage error for a missing CSV file.
func ErrCSVNotFoundf(path string) *AppError {
	return &AppError{
		Code:    CodeCSVNotFound,
		Message: "CSV file not found: " + path,
		Kind:    KindUsage,
	}
}

// ErrAuthConfigInvalid creates a usage error for unusable credentials.
func ErrAuthConfigInvalid(message string) *AppError {
	return &AppError{
		Code:    CodeAuthConfigInvalid,
		Message: message,
		Kind:    KindUsage,
	}
}
