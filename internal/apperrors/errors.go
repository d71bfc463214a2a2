package apperrors

// ErrorCode identifies a failure category in API responses.
type ErrorCode string

const (
	ErrorCodeInternalError   ErrorCode = "INTERNAL_ERROR"
	ErrorCodeValidationError ErrorCode = "VALIDATION_ERROR"
	ErrorCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrorCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrorCodeForbidden       ErrorCode = "FORBIDDEN"
	ErrorCodeRateLimited     ErrorCode = "RATE_LIMITED"

	// Credential lifecycle
	ErrorCodeRefreshDenied       ErrorCode = "REFRESH_DENIED"
	ErrorCodeSessionTokenExpired ErrorCode = "SESSION_TOKEN_EXPIRED"
	ErrorCodeSessionTokenInvalid ErrorCode = "SESSION_TOKEN_INVALID"
	ErrorCodeSignedOut           ErrorCode = "SIGNED_OUT"

	// Upstream catalog
	ErrorCodeUpstreamUnauthorized ErrorCode = "UPSTREAM_UNAUTHORIZED"
	ErrorCodeUpstreamForbidden    ErrorCode = "UPSTREAM_FORBIDDEN"
	ErrorCodeUpstreamNotFound     ErrorCode = "UPSTREAM_NOT_FOUND"
	ErrorCodeUpstreamRateLimited  ErrorCode = "UPSTREAM_RATE_LIMITED"
	ErrorCodeUpstreamUnavailable  ErrorCode = "UPSTREAM_UNAVAILABLE"

	// Playback device
	ErrorCodeDeviceNotReady      ErrorCode = "DEVICE_NOT_READY"
	ErrorCodeDeviceNotConnected  ErrorCode = "DEVICE_NOT_CONNECTED"
	ErrorCodeDeviceConnectFailed ErrorCode = "DEVICE_CONNECT_FAILED"
	ErrorCodeDeviceAuthFailed    ErrorCode = "DEVICE_AUTH_FAILED"
	ErrorCodePlaybackFailed      ErrorCode = "PLAYBACK_FAILED"
	ErrorCodePremiumRequired     ErrorCode = "PREMIUM_REQUIRED"

	// OAuth flow
	ErrorCodeOAuthStateMismatch  ErrorCode = "OAUTH_STATE_MISMATCH"
	ErrorCodeOAuthExchangeFailed ErrorCode = "OAUTH_EXCHANGE_FAILED"
)

// ErrorType categorizes errors following Stripe API conventions.
type ErrorType string

const (
	// ErrorTypeInvalidRequest indicates invalid parameters, missing required fields, etc.
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
	// ErrorTypeAPIError indicates an internal API error.
	ErrorTypeAPIError ErrorType = "api_error"
	// ErrorTypeAuthError indicates authentication or authorization failure.
	ErrorTypeAuthError ErrorType = "authentication_error"
)

// ErrorBody is the serialized error payload.
// Format: {"type": "invalid_request_error", "code": "NOT_FOUND", "message": "..."}
type ErrorBody struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// AppError is the base error type for HTTP responses.
type AppError struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Details    map[string]any
}

func (err *AppError) Error() string {
	return err.Message
}

// ErrorBody returns the error in wire format.
func (err *AppError) ErrorBody() ErrorBody {
	errType := ErrorTypeAPIError
	switch {
	case err.StatusCode == 401 || err.StatusCode == 403:
		errType = ErrorTypeAuthError
	case err.StatusCode >= 400 && err.StatusCode < 500:
		errType = ErrorTypeInvalidRequest
	}

	return ErrorBody{
		Type:    errType,
		Code:    string(err.Code),
		Message: err.Message,
	}
}

func NewAppError(code ErrorCode, message string, statusCode int, details map[string]any) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
	}
}

func NewValidationError(message string, details map[string]any) *AppError {
	return NewAppError(ErrorCodeValidationError, message, 400, details)
}

func NewUnauthorizedError(message string, code ...ErrorCode) *AppError {
	errCode := ErrorCodeUnauthorized
	if len(code) > 0 {
		errCode = code[0]
	}
	return NewAppError(errCode, message, 401, nil)
}

func NewNotFoundError(message string) *AppError {
	return NewAppError(ErrorCodeNotFound, message, 404, nil)
}

func NewRateLimitError(message string) *AppError {
	return NewAppError(ErrorCodeRateLimited, message, 429, nil)
}

func NewInternalError(message string) *AppError {
	return NewAppError(ErrorCodeInternalError, message, 500, nil)
}

// NewUpstreamError maps a catalog failure category onto an HTTP status.
func NewUpstreamError(code ErrorCode, message string) *AppError {
	status := 502
	switch code {
	case ErrorCodeUpstreamUnauthorized:
		status = 401
	case ErrorCodeUpstreamForbidden:
		status = 403
	case ErrorCodeUpstreamNotFound:
		status = 404
	case ErrorCodeUpstreamRateLimited:
		status = 429
	}
	return NewAppError(code, message, status, nil)
}

// EnsureAppError converts an arbitrary error into an AppError.
func EnsureAppError(err error) *AppError {
	if err == nil {
		return NewInternalError("Unknown error")
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return NewInternalError("Internal server error")
}
