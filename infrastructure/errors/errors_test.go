package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestServiceError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ServiceError
		want string
	}{
		{
			name: "error without underlying error",
			err:  New(ErrCodeNotFound, "test message", http.StatusNotFound),
			want: "[SVC_5002] test message",
		},
		{
			name: "error with underlying error",
			err:  Wrap(ErrCodeInternal, "test message", http.StatusInternalServerError, errors.New("underlying")),
			want: "[SVC_5001] test message: underlying",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestServiceError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := Wrap(ErrCodeInternal, "test", http.StatusInternalServerError, underlying)

	if got := err.Unwrap(); got != underlying {
		t.Errorf("Unwrap() = %v, want %v", got, underlying)
	}
}

func TestServiceError_WithDetails(t *testing.T) {
	err := New(ErrCodeInvalidInput, "test", http.StatusBadRequest)
	err.WithDetails("field", "class_id").WithDetails("reason", "empty")

	if len(err.Details) != 2 {
		t.Errorf("Details length = %d, want 2", len(err.Details))
	}

	if err.Details["field"] != "class_id" {
		t.Errorf("Details[field] = %v, want class_id", err.Details["field"])
	}

	if err.Details["reason"] != "empty" {
		t.Errorf("Details[reason] = %v, want empty", err.Details["reason"])
	}
}

func TestBadKind(t *testing.T) {
	err := BadKind("image")

	if err.Code != ErrCodeBadKind {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeBadKind)
	}
	if err.HTTPStatus != http.StatusBadRequest {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusBadRequest)
	}
	if err.Details["kind"] != "image" {
		t.Errorf("Details[kind] = %v, want image", err.Details["kind"])
	}
}

func TestBadTag(t *testing.T) {
	err := BadTag("script", "link")

	if err.Code != ErrCodeBadTag {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeBadTag)
	}
	if err.Details["want"] != "script" || err.Details["got"] != "link" {
		t.Errorf("Details = %v, want script/link", err.Details)
	}
}

func TestNoCallback(t *testing.T) {
	err := NoCallback("table")

	if err.Code != ErrCodeNoCallback {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeNoCallback)
	}
	if err.Details["class_id"] != "table" {
		t.Errorf("Details[class_id] = %v, want table", err.Details["class_id"])
	}
}

func TestNoElements(t *testing.T) {
	err := NoElements("i1")

	if err.Code != ErrCodeNoElements {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeNoElements)
	}
	if err.Details["instance_id"] != "i1" {
		t.Errorf("Details[instance_id] = %v, want i1", err.Details["instance_id"])
	}
}

func TestNoDataFactory(t *testing.T) {
	err := NoDataFactory("table", "h1")

	if err.Code != ErrCodeNoDataFactory {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeNoDataFactory)
	}
	if err.Details["class_id"] != "table" || err.Details["data_hash"] != "h1" {
		t.Errorf("Details = %v, want table/h1", err.Details)
	}
}

func TestCallbackFailed(t *testing.T) {
	underlying := errors.New("boom")
	err := CallbackFailed("table", "i1", underlying)

	if err.Code != ErrCodeCallbackFailed {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeCallbackFailed)
	}
	if err.Err != underlying {
		t.Errorf("Err = %v, want %v", err.Err, underlying)
	}
	if err.HTTPStatus != http.StatusUnprocessableEntity {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusUnprocessableEntity)
	}
}

func TestScriptLoadFailed(t *testing.T) {
	underlying := errors.New("404")
	err := ScriptLoadFailed("x", "1", underlying)

	if err.Code != ErrCodeScriptLoadFailed {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeScriptLoadFailed)
	}
	if err.HTTPStatus != http.StatusFailedDependency {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusFailedDependency)
	}
}

func TestInvalidEnvelope(t *testing.T) {
	err := InvalidEnvelope("missing componentJsCalls")

	if err.Code != ErrCodeInvalidEnvelope {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidEnvelope)
	}
	if err.Details["reason"] != "missing componentJsCalls" {
		t.Errorf("Details[reason] = %v", err.Details["reason"])
	}
}

func TestInvalidBase64(t *testing.T) {
	underlying := errors.New("illegal base64 data")
	err := InvalidBase64("jsUrls__markAsLoaded[0]", underlying)

	if err.Code != ErrCodeInvalidBase64 {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidBase64)
	}
	if err.Details["field"] != "jsUrls__markAsLoaded[0]" {
		t.Errorf("Details[field] = %v", err.Details["field"])
	}
}

func TestInvalidInput(t *testing.T) {
	err := InvalidInput("class_id", "must not be empty")

	if err.Code != ErrCodeInvalidInput {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidInput)
	}

	if err.HTTPStatus != http.StatusBadRequest {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusBadRequest)
	}

	if err.Details["field"] != "class_id" {
		t.Errorf("Details[field] = %v, want class_id", err.Details["field"])
	}
}

func TestNotFound(t *testing.T) {
	err := NotFound("envelope", "123")

	if err.Code != ErrCodeNotFound {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeNotFound)
	}

	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusNotFound)
	}

	if err.Details["resource"] != "envelope" {
		t.Errorf("Details[resource] = %v, want envelope", err.Details["resource"])
	}

	if err.Details["id"] != "123" {
		t.Errorf("Details[id] = %v, want 123", err.Details["id"])
	}
}

func TestInternal(t *testing.T) {
	underlying := errors.New("connection failed")
	err := Internal("internal error", underlying)

	if err.Code != ErrCodeInternal {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInternal)
	}

	if err.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusInternalServerError)
	}

	if err.Err != underlying {
		t.Errorf("Err = %v, want %v", err.Err, underlying)
	}
}

func TestUnavailable(t *testing.T) {
	underlying := errors.New("timeout")
	err := Unavailable("host", underlying)

	if err.Code != ErrCodeUnavailable {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeUnavailable)
	}
	if err.Details["what"] != "host" {
		t.Errorf("Details[what] = %v, want host", err.Details["what"])
	}
}

func TestIsServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "service error",
			err:  New(ErrCodeInternal, "test", http.StatusInternalServerError),
			want: true,
		},
		{
			name: "standard error",
			err:  errors.New("standard error"),
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsServiceError(tt.err); got != tt.want {
				t.Errorf("IsServiceError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetServiceError(t *testing.T) {
	serviceErr := New(ErrCodeInternal, "test", http.StatusInternalServerError)
	standardErr := errors.New("standard error")

	tests := []struct {
		name string
		err  error
		want *ServiceError
	}{
		{
			name: "service error",
			err:  serviceErr,
			want: serviceErr,
		},
		{
			name: "standard error",
			err:  standardErr,
			want: nil,
		},
		{
			name: "nil error",
			err:  nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetServiceError(tt.err)
			if got != tt.want {
				t.Errorf("GetServiceError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "service error",
			err:  New(ErrCodeBadKind, "test", http.StatusBadRequest),
			want: http.StatusBadRequest,
		},
		{
			name: "standard error",
			err:  errors.New("standard error"),
			want: http.StatusInternalServerError,
		},
		{
			name: "nil error",
			err:  nil,
			want: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetHTTPStatus(tt.err); got != tt.want {
				t.Errorf("GetHTTPStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}
