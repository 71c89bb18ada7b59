package shared

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtasks-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Priority string `json:"priority" validate:"omitempty,oneof=low medium high"`
}

func TestDecodeJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Ana","email":"ana@example.com"}`))

	var body signupRequest
	require.NoError(t, DecodeJSON(req, &body))
	assert.Equal(t, "Ana", body.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	assert.Error(t, DecodeJSON(req, &body))
}

func TestValidateRequest_FieldErrors(t *testing.T) {
	err := ValidateRequest(&signupRequest{Email: "nope", Password: "123", Priority: "urgent"})
	require.Error(t, err)

	fields := FieldErrors(err)
	require.Len(t, fields, 4)

	byField := map[string]string{}
	for _, f := range fields {
		byField[f.Field] = f.Message
	}
	assert.Equal(t, "name is required", byField["name"])
	assert.Equal(t, "Please include a valid email", byField["email"])
	assert.Equal(t, "password must be at least 6 characters", byField["password"])
	assert.Equal(t, "priority must be one of low, medium, high", byField["priority"])
}

func TestFieldErrors_DomainValidation(t *testing.T) {
	fields := FieldErrors(domain.NewValidationError("dueDate", "is required", domain.ErrMissingDueDate))
	assert.Equal(t, []FieldError{{Field: "dueDate", Message: "dueDate is required"}}, fields)

	assert.Nil(t, FieldErrors(domain.NewValidationError("", "Please provide a search term", nil)))
	assert.Nil(t, FieldErrors(domain.ErrInvalidID))
}

func TestActorContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, ok := ActorFromContext(req.Context())
	assert.False(t, ok)

	actor := domain.Actor{ID: uuid.New(), Role: domain.RoleManager}
	got, ok := ActorFromContext(WithActor(req.Context(), actor))
	assert.True(t, ok)
	assert.Equal(t, actor, got)

	_, ok = ActorFromContext(WithActor(req.Context(), domain.Actor{}))
	assert.False(t, ok)
}

func TestTraceID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, GetTraceID(req.Context()))

	ctx := SetTraceID(req.Context())
	assert.Regexp(t, `^[0-9a-f]{32}$`, GetTraceID(ctx))
}
