package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without wrapped error",
			err:  New("CLUSTER_NOT_MAPPED", "cluster not mapped", http.StatusNotFound),
			want: "CLUSTER_NOT_MAPPED: cluster not mapped",
		},
		{
			name: "with wrapped error",
			err:  Wrap(fmt.Errorf("read file"), "SOURCE_LOAD_FAILED", "load rows", http.StatusInternalServerError),
			want: "SOURCE_LOAD_FAILED: load rows: read file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap(inner, "CODE", "msg", 500)

	if !errors.Is(appErr, inner) {
		t.Error("errors.Is should match inner error")
	}
}

func TestIsAppError(t *testing.T) {
	appErr := NotFound("NOT_FOUND", "resource not found")
	wrapped := fmt.Errorf("wrapped: %w", appErr)

	got, ok := IsAppError(wrapped)
	if !ok {
		t.Fatal("IsAppError should return true for wrapped AppError")
	}
	if got.Code != "NOT_FOUND" {
		t.Errorf("Code = %q, want NOT_FOUND", got.Code)
	}

	if _, ok := IsAppError(fmt.Errorf("plain")); ok {
		t.Error("IsAppError should return false for plain errors")
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantStatus int
	}{
		{"NotFound", NotFound("X", "x"), http.StatusNotFound},
		{"BadRequest", BadRequest("X", "x"), http.StatusBadRequest},
		{"Unauthorized", Unauthorized("X", "x"), http.StatusUnauthorized},
		{"Forbidden", Forbidden("X", "x"), http.StatusForbidden},
		{"ServiceUnavailable", ServiceUnavailable("X", "x"), http.StatusServiceUnavailable},
		{"Internal", Internal("X", "x"), http.StatusInternalServerError},
		{"ClusterNotMapped", ErrClusterNotMappedf("c1"), http.StatusNotFound},
		{"DatabaseNotMapped", ErrDatabaseNotMappedf("d1"), http.StatusNotFound},
		{"ReloadFailed", ErrReloadFailedf(fmt.Errorf("boom")), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.HTTPStatus != tt.wantStatus {
				t.Errorf("HTTPStatus = %d, want %d", tt.err.HTTPStatus, tt.wantStatus)
			}
		})
	}
}

func TestNotMappedParams(t *testing.T) {
	err := ErrClusterNotMappedf("fake_cluster9")
	if err.Params["name"] != "fake_cluster9" {
		t.Errorf("Params[name] = %v, want fake_cluster9", err.Params["name"])
	}
	if err.Code != CodeClusterNotMapped {
		t.Errorf("Code = %q, want %q", err.Code, CodeClusterNotMapped)
	}
}

func TestWithParams_Empty(t *testing.T) {
	err := New("X", "x", 400).WithParams(nil)
	if err.Params != nil {
		t.Errorf("Params = %v, want nil", err.Params)
	}
}

func TestWithCause(t *testing.T) {
	cause := errors.New("signature is invalid")
	err := Unauthorized(CodeUnauthorized, "invalid token").WithCause(cause)
	if !errors.Is(err, cause) {
		t.Error("WithCause should make the cause reachable via errors.Is")
	}
}
