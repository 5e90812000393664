package domain

import (
	"errors"
	"fmt"
)

// Category sentinels. Use with NewSubSystemError for subsystem-specific errors.
var (
	ErrNotFound         = fmt.Errorf("not found")
	ErrDuplicate        = fmt.Errorf("duplicate")
	ErrTimeout          = fmt.Errorf("operation timed out")
	ErrLimitReached     = fmt.Errorf("limit reached")
	ErrPermissionDenied = fmt.Errorf("permission denied")
	ErrDisabled         = fmt.Errorf("disabled")
	ErrInvalidInput     = fmt.Errorf("invalid input")
	ErrProviderError    = fmt.Errorf("provider error")
)

// Sentinel errors for the wizard and gateway layers.
var (
	ErrConfigLoad        = fmt.Errorf("failed to load configuration")
	ErrLoadFailed        = fmt.Errorf("failed to load wizard data")
	ErrComingSoon        = fmt.Errorf("provider not yet available")
	ErrUnknownFieldKind  = fmt.Errorf("unknown field kind")
	ErrSchemaInvalid     = fmt.Errorf("field schema is invalid")
	ErrConfigInvalid     = fmt.Errorf("configuration does not match schema")
	ErrGatewayAuthFailed = fmt.Errorf("gateway authentication failed")
	ErrGatewayRejected   = fmt.Errorf("gateway rejected request")
	ErrCircuitOpen       = fmt.Errorf("gateway circuit open")
	ErrRateLimit         = fmt.Errorf("rate limit exceeded")
	ErrEncryption        = fmt.Errorf("encryption operation failed")
	ErrDecryption        = fmt.Errorf("decryption failed")
	ErrStoreFailed       = fmt.Errorf("store operation failed")
	ErrSubmitInFlight    = fmt.Errorf("submission already in progress")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op        string // operation name (e.g., "Gateway.Schema")
	Err       error  // underlying sentinel or wrapped error
	Detail    string // human-readable detail
	SubSystem string // subsystem identifier (e.g., "credential", "vectorstore"); used for ErrorCode dispatch
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// NewSubSystemError creates a DomainError tagged with a subsystem for ErrorCode dispatch.
func NewSubSystemError(subsystem, op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail, SubSystem: subsystem}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryableError reports whether err is a transient error that may succeed on retry.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrCircuitOpen)
}

// ErrorCode is a machine-parseable error category for monitoring and alerting.
type ErrorCode string

const (
	CodeUnknown          ErrorCode = "UNKNOWN"
	CodeConfigLoad       ErrorCode = "CONFIG_LOAD"
	CodeLoadFailed       ErrorCode = "LOAD_FAILED"
	CodeComingSoon       ErrorCode = "COMING_SOON"
	CodeUnknownFieldKind ErrorCode = "UNKNOWN_FIELD_KIND"
	CodeSchemaInvalid    ErrorCode = "SCHEMA_INVALID"
	CodeConfigInvalid    ErrorCode = "CONFIG_INVALID"
	CodeGatewayAuth      ErrorCode = "GATEWAY_AUTH"
	CodeGatewayRejected  ErrorCode = "GATEWAY_REJECTED"
	CodeCircuitOpen      ErrorCode = "CIRCUIT_OPEN"
	CodeRateLimit        ErrorCode = "RATE_LIMIT"
	CodeEncryption       ErrorCode = "ENCRYPTION"
	CodeDecryption       ErrorCode = "DECRYPTION"
	CodeStoreFailed      ErrorCode = "STORE_FAILED"
	CodeSubmitInFlight   ErrorCode = "SUBMIT_IN_FLIGHT"

	// Subsystem-specific codes used by subSystemCodeMap.
	CodeProviderNotFound    ErrorCode = "PROVIDER_NOT_FOUND"
	CodeCredentialNotFound  ErrorCode = "CREDENTIAL_NOT_FOUND"
	CodeCredentialDuplicate ErrorCode = "CREDENTIAL_DUPLICATE"
	CodeVectorStoreDup      ErrorCode = "VECTOR_STORE_DUPLICATE"
	CodeSchemaNotFound      ErrorCode = "SCHEMA_NOT_FOUND"
	CodeProbeTimeout        ErrorCode = "PROBE_TIMEOUT"
	CodeProbeFailed         ErrorCode = "PROBE_FAILED"

	// Category error codes, used when no subsystem-specific code matches.
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeDuplicate        ErrorCode = "DUPLICATE"
	CodeTimeout          ErrorCode = "TIMEOUT"
	CodeLimitReached     ErrorCode = "LIMIT_REACHED"
	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	CodeDisabled         ErrorCode = "DISABLED"
	CodeInvalidInput     ErrorCode = "INVALID_INPUT"
	CodeProviderError    ErrorCode = "PROVIDER_ERROR"
)

type codeEntry struct {
	sentinel error
	code     ErrorCode
}

// errorCodes maps sentinel errors to their codes. Specific sentinels come
// before category sentinels so chain walking prefers the narrower match.
var errorCodes = []codeEntry{
	{ErrConfigLoad, CodeConfigLoad},
	{ErrLoadFailed, CodeLoadFailed},
	{ErrComingSoon, CodeComingSoon},
	{ErrUnknownFieldKind, CodeUnknownFieldKind},
	{ErrSchemaInvalid, CodeSchemaInvalid},
	{ErrConfigInvalid, CodeConfigInvalid},
	{ErrGatewayAuthFailed, CodeGatewayAuth},
	{ErrGatewayRejected, CodeGatewayRejected},
	{ErrCircuitOpen, CodeCircuitOpen},
	{ErrRateLimit, CodeRateLimit},
	{ErrEncryption, CodeEncryption},
	{ErrDecryption, CodeDecryption},
	{ErrStoreFailed, CodeStoreFailed},
	{ErrSubmitInFlight, CodeSubmitInFlight},

	{ErrNotFound, CodeNotFound},
	{ErrDuplicate, CodeDuplicate},
	{ErrTimeout, CodeTimeout},
	{ErrLimitReached, CodeLimitReached},
	{ErrPermissionDenied, CodePermissionDenied},
	{ErrDisabled, CodeDisabled},
	{ErrInvalidInput, CodeInvalidInput},
	{ErrProviderError, CodeProviderError},
}

// subSystemCodeMap maps (category sentinel, subsystem) pairs to specific ErrorCodes.
var subSystemCodeMap = map[error]map[string]ErrorCode{
	ErrNotFound: {
		"provider":   CodeProviderNotFound,
		"credential": CodeCredentialNotFound,
		"schema":     CodeSchemaNotFound,
	},
	ErrDuplicate: {
		"credential":  CodeCredentialDuplicate,
		"vectorstore": CodeVectorStoreDup,
	},
	ErrTimeout: {
		"probe": CodeProbeTimeout,
	},
	ErrProviderError: {
		"probe": CodeProbeFailed,
	},
}

func lookupCode(err error) (ErrorCode, bool) {
	for _, e := range errorCodes {
		if e.sentinel == err {
			return e.code, true
		}
	}
	return "", false
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// DomainErrors with a SubSystem are resolved through subSystemCodeMap first.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	if code, ok := lookupCode(err); ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code := de.Code(); code != CodeUnknown {
			return code
		}
	}

	for _, e := range errorCodes {
		if errors.Is(err, e.sentinel) {
			return e.code
		}
	}

	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	if e.SubSystem != "" {
		if subsysMap, ok := subSystemCodeMap[e.Err]; ok {
			if code, ok := subsysMap[e.SubSystem]; ok {
				return code
			}
		}
	}
	if code, ok := lookupCode(e.Err); ok {
		return code
	}
	return CodeUnknown
}
