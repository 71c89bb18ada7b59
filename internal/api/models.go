package api

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtasks-api/internal/domain"
)

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// UpdateDetailsRequest defines the payload for changing name and email.
type UpdateDetailsRequest struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
}

// UpdatePasswordRequest defines the payload for changing the password.
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required,min=6,max=72"`
}

// AuthUser is the user summary returned alongside tokens.
type AuthUser struct {
	ID    uuid.UUID   `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	Success bool `json:"success"`

	// Token is the JWT used for API authorization
	Token string `json:"token"`

	// RefreshToken is the JWT used to obtain new access tokens
	RefreshToken string `json:"refreshToken"`

	User AuthUser `json:"user"`
}

// CreateTaskRequest defines the payload for creating a task.
type CreateTaskRequest struct {
	Title       string  `json:"title"       validate:"required"`
	Description string  `json:"description" validate:"required"`
	DueDate     string  `json:"dueDate"     validate:"required"`
	Priority    string  `json:"priority"    validate:"omitempty,oneof=low medium high urgent"`
	Status      string  `json:"status"      validate:"omitempty,oneof=todo in-progress review completed"`
	AssignedTo  *string `json:"assignedTo"  validate:"omitempty,uuid"`
}

// OptionalID is a JSON field that distinguishes an absent value from an explicit null.
type OptionalID struct {
	Set bool
	ID  *uuid.UUID
}

// UnmarshalJSON implements json.Unmarshaler. It is only called when the field is present.
func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.ID = nil
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		o.ID = nil
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return domain.NewValidationError("assignedTo", "must be a valid user ID", domain.ErrInvalidID)
	}
	o.ID = &id
	return nil
}

// UpdateTaskRequest defines a partial task update. Absent fields are left untouched;
// an explicit null or empty assignedTo unassigns the task.
type UpdateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	DueDate     *string    `json:"dueDate"`
	Priority    *string    `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Status      *string    `json:"status"   validate:"omitempty,oneof=todo in-progress review completed"`
	AssignedTo  OptionalID `json:"assignedTo"`
}

// Patch converts the request into a typed domain.TaskPatch.
func (req UpdateTaskRequest) Patch() (domain.TaskPatch, error) {
	patch := domain.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.DueDate != nil {
		due, err := domain.ParseDueDate(*req.DueDate)
		if err != nil {
			return domain.TaskPatch{}, err
		}
		patch.DueDate = &due
	}
	if req.Priority != nil {
		p := domain.Priority(*req.Priority)
		patch.Priority = &p
	}
	if req.Status != nil {
		s := domain.TaskStatus(*req.Status)
		patch.Status = &s
	}
	if req.AssignedTo.Set {
		if req.AssignedTo.ID != nil {
			patch.AssignedTo = req.AssignedTo.ID
		} else {
			patch.Unassign = true
		}
	}
	return patch, nil
}

// AssignTaskRequest defines the payload for assigning a task.
type AssignTaskRequest struct {
	AssignedTo string `json:"assignedTo" validate:"required,uuid"`
}

// CommentRequest defines the payload for adding a comment.
type CommentRequest struct {
	Text string `json:"text" validate:"required"`
}
