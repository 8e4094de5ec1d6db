package validator

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStruct struct {
	Name  string   `json:"name" validate:"required,notblank"`
	Email string   `json:"email" validate:"required,email"`
	Kind  string   `json:"kind" validate:"omitempty,oneof=general question"`
	Tags  []string `json:"tags" validate:"max=2,dive,max=5"`
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	out := make(map[string]string)
	for _, f := range valErr.Fields() {
		out[f.Path] = f.Message
	}
	return out
}

func TestValidate_Success(t *testing.T) {
	s := testStruct{Name: "Alice", Email: "alice@example.com", Kind: "general", Tags: []string{"go"}}
	assert.NoError(t, Validate(s))
}

func TestValidate_ReportsJSONNames(t *testing.T) {
	err := Validate(testStruct{Email: "alice@example.com"})
	require.Error(t, err)

	fields := fieldsOf(t, err)
	assert.Equal(t, "is required", fields["name"])
	assert.NotContains(t, fields, "Name")
}

func TestValidate_BlankStringRejected(t *testing.T) {
	err := Validate(testStruct{Name: "   ", Email: "alice@example.com"})
	require.Error(t, err)
	assert.Equal(t, "is required", fieldsOf(t, err)["name"])
}

func TestValidate_InvalidEmail(t *testing.T) {
	err := Validate(testStruct{Name: "Alice", Email: "not-an-email"})
	require.Error(t, err)
	assert.Equal(t, "must be a valid email address", fieldsOf(t, err)["email"])
}

func TestValidate_OneOf(t *testing.T) {
	err := Validate(testStruct{Name: "Alice", Email: "alice@example.com", Kind: "rant"})
	require.Error(t, err)
	assert.Equal(t, "must be one of: general question", fieldsOf(t, err)["kind"])
}

func TestValidate_SliceLimits(t *testing.T) {
	err := Validate(testStruct{Name: "Alice", Email: "alice@example.com", Tags: []string{"a", "b", "c"}})
	require.Error(t, err)
	assert.Equal(t, "must contain at most 2 items", fieldsOf(t, err)["tags"])

	err = Validate(testStruct{Name: "Alice", Email: "alice@example.com", Tags: []string{"toolong"}})
	require.Error(t, err)
	assert.Equal(t, "must be at most 5 characters", fieldsOf(t, err)["tags[0]"])
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(testStruct{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'name'")
	assert.Contains(t, err.Error(), "is required")
}

// --- DecodeAndValidate ---

func TestDecodeAndValidate_Success(t *testing.T) {
	body := `{"name":"Alice","email":"alice@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()

	var dst testStruct
	require.NoError(t, DecodeAndValidate(rec, req, &dst))
	assert.Equal(t, "Alice", dst.Name)
}

func TestDecodeAndValidate_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	rec := httptest.NewRecorder()

	var dst testStruct
	err := DecodeAndValidate(rec, req, &dst)
	assert.True(t, errors.Is(err, ErrEmptyBody))
}

func TestDecodeAndValidate_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	rec := httptest.NewRecorder()

	var dst testStruct
	err := DecodeAndValidate(rec, req, &dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_ValidationFailure(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Alice"}`))
	rec := httptest.NewRecorder()

	var dst testStruct
	err := DecodeAndValidate(rec, req, &dst)
	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}
