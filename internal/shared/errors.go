package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API errors
	ErrAPIRequest    = fmt.Errorf("API request failed")
	ErrTrackNotFound = fmt.Errorf("track not found")

	// Pipeline errors
	ErrUnrecognizedInput = fmt.Errorf("unrecognized input")
	ErrSpotdlNotFound    = fmt.Errorf("spotdl binary not found")
	ErrFetcherFailed     = fmt.Errorf("download tool failed")
	ErrConvertFailed     = fmt.Errorf("conversion failed")

	// Input validation errors
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
