package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes, grouped by installer stage
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"

	// Resolution errors (fatal, raised before any mutation)
	ErrAlreadyInstalled     ErrorCode = "ALREADY_INSTALLED"
	ErrAlreadyAttempted     ErrorCode = "ALREADY_ATTEMPTED"
	ErrUnlinkedDependency   ErrorCode = "UNLINKED_DEPENDENCY"
	ErrUnsatisfiedRequire   ErrorCode = "UNSATISFIED_REQUIREMENT"
	ErrFormulaConflict      ErrorCode = "FORMULA_CONFLICT"
	ErrFormulaNotFound      ErrorCode = "FORMULA_NOT_FOUND"
	ErrFormulaInvalid       ErrorCode = "FORMULA_INVALID"
	ErrTapUnavailable       ErrorCode = "TAP_UNAVAILABLE"
	ErrCyclicDependency     ErrorCode = "CYCLIC_DEPENDENCY"
	ErrOptionUnrecognized   ErrorCode = "OPTION_UNRECOGNIZED"
	ErrDependencyResolution ErrorCode = "DEPENDENCY_RESOLUTION"

	// Build errors (fatal, trigger rollback of the keg)
	ErrBuildFailed      ErrorCode = "BUILD_FAILED"
	ErrBuildInterrupted ErrorCode = "BUILD_INTERRUPTED"
	ErrBuildSuspicious  ErrorCode = "BUILD_SUSPICIOUS_EXIT"
	ErrEmptyInstall     ErrorCode = "EMPTY_INSTALLATION"

	// Pour errors (recoverable outside strict mode)
	ErrBottleStage        ErrorCode = "BOTTLE_STAGE"
	ErrBottleIncompatible ErrorCode = "BOTTLE_INCOMPATIBLE"
	ErrBottleManifest     ErrorCode = "BOTTLE_MANIFEST"

	// Post-mutation warnings (non-fatal, keg remains installed)
	ErrLinkConflict ErrorCode = "LINK_CONFLICT"
	ErrLinkFailed   ErrorCode = "LINK_FAILED"
	ErrOptLink      ErrorCode = "OPT_LINK"
	ErrPostInstall  ErrorCode = "POST_INSTALL"
	ErrCleanup      ErrorCode = "CLEANUP"

	// Locking and state errors
	ErrLockAcquire ErrorCode = "LOCK_ACQUIRE"
	ErrLockHeld    ErrorCode = "LOCK_HELD"
	ErrTabRead     ErrorCode = "TAB_READ"
	ErrTabWrite    ErrorCode = "TAB_WRITE"
	ErrKegRemove   ErrorCode = "KEG_REMOVE"
	ErrSwapRestore ErrorCode = "SWAP_RESTORE"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"

	// FileSystem errors
	ErrFileNotFound  ErrorCode = "FILE_NOT_FOUND"
	ErrFileAccess    ErrorCode = "FILE_ACCESS"
	ErrSymlinkCreate ErrorCode = "SYMLINK_CREATE"
	ErrDirCreate     ErrorCode = "DIR_CREATE"
)

// InstallError represents a structured error with code and details
type InstallError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *InstallError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *InstallError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *InstallError) Is(target error) bool {
	var targetErr *InstallError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new InstallError with the given code and message
func New(code ErrorCode, message string) *InstallError {
	return &InstallError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new InstallError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *InstallError {
	return &InstallError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with an InstallError
func Wrap(err error, code ErrorCode, message string) *InstallError {
	if err == nil {
		return nil
	}
	return &InstallError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *InstallError {
	if err == nil {
		return nil
	}
	return &InstallError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *InstallError) WithDetail(key string, value interface{}) *InstallError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *InstallError) WithDetails(details map[string]interface{}) *InstallError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var instErr *InstallError
	if errors.As(err, &instErr) {
		return instErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not an InstallError
func GetErrorCode(err error) ErrorCode {
	var instErr *InstallError
	if errors.As(err, &instErr) {
		return instErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not an InstallError
func GetErrorDetails(err error) map[string]interface{} {
	var instErr *InstallError
	if errors.As(err, &instErr) {
		return instErr.Details
	}
	return nil
}

// Fatal reports whether err must abort the orchestration. Post-mutation
// warning codes leave the keg installed and only set the session failed flag.
func Fatal(err error) bool {
	switch GetErrorCode(err) {
	case ErrLinkConflict, ErrLinkFailed, ErrOptLink, ErrPostInstall, ErrCleanup:
		return false
	}
	return true
}
