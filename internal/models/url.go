package models

import "github.com/urlessen/identity-api/internal/validation"

// CreateURLRequest describes a shortened URL to create.
type CreateURLRequest struct {
	Title       string  `json:"title" validate:"title"`
	Description *string `json:"description" validate:"omitempty,description"`
	LongURL     string  `json:"longUrl" validate:"longurl"`
}

func (r CreateURLRequest) Validate() bool {
	return validation.Struct(r)
}

// PatchURLRequest updates the title or description of a shortened URL.
type PatchURLRequest struct {
	Title       *string `json:"title" validate:"omitempty,title"`
	Description *string `json:"description" validate:"omitempty,description"`
}

func (r PatchURLRequest) Validate() bool {
	return validation.Struct(r)
}

var (
	_ validation.Validatable = CreateURLRequest{}
	_ validation.Validatable = PatchURLRequest{}
)
