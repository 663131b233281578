package errors

import "net/http"

// Lookup error codes.
const (
	CodeClusterNotMapped  = "CLUSTER_NOT_MAPPED"
	CodeDatabaseNotMapped = "DATABASE_NOT_MAPPED"
	CodeNameInvalid       = "NAME_INVALID"
)

// Registry lifecycle error codes.
const (
	CodeRegistryEmpty    = "REGISTRY_EMPTY"
	CodeSourceLoadFailed = "SOURCE_LOAD_FAILED"
	CodeReloadFailed     = "RELOAD_FAILED"
	CodeReloadDisabled   = "RELOAD_DISABLED"
)

// Auth error codes.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeTokenExpired = "TOKEN_EXPIRED"
)

// Convenience constructors using predefined codes.

// ErrClusterNotMappedf creates a not-found error for an unknown cluster alias.
func ErrClusterNotMappedf(name string) *AppError {
	return (&AppError{
		Code:       CodeClusterNotMapped,
		Message:    "cluster name has no mapping in the home environment",
		HTTPStatus: http.StatusNotFound,
	}).WithParams(map[string]interface{}{"name": name})
}

// ErrDatabaseNotMappedf creates a not-found error for an unknown database alias.
func ErrDatabaseNotMappedf(name string) *AppError {
	return (&AppError{
		Code:       CodeDatabaseNotMapped,
		Message:    "database name has no mapping in the home environment",
		HTTPStatus: http.StatusNotFound,
	}).WithParams(map[string]interface{}{"name": name})
}

// ErrReloadFailedf wraps a failed registry rebuild.
func ErrReloadFailedf(err error) *AppError {
	return Wrap(err, CodeReloadFailed, "registry reload failed", http.StatusBadGateway)
}
