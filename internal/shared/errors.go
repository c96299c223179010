package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuthFailed    = fmt.Errorf("authentication failed")
	ErrNotAuthorized = fmt.Errorf("not authorized")
	ErrTimeout       = fmt.Errorf("operation timed out")

	// Generator errors
	ErrRateLimited        = fmt.Errorf("rate limited, please wait a moment and try again")
	ErrMalformedResponse  = fmt.Errorf("malformed generator response")
	ErrGeneratorService   = fmt.Errorf("generator service error")
	ErrGeneratorForbidden = fmt.Errorf("generator key not authorized")

	// Catalog and export errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrCatalogUnavailable = fmt.Errorf("catalog unavailable")
	ErrNoMatch            = fmt.Errorf("no catalog match")
	ErrExportFailed       = fmt.Errorf("failed to create playlist")

	// Session errors
	ErrSessionCorrupt    = fmt.Errorf("session snapshot corrupt")
	ErrNoSession         = fmt.Errorf("no active session")
	ErrInvalidTransition = fmt.Errorf("invalid song transition")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrIndexOutOfRange = fmt.Errorf("index out of range")
)
