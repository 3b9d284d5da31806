package addresses

import (
	"time"

	"github.com/google/uuid"

	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
)

// CreateInput holds a new address book entry.
type CreateInput struct {
	Label      *string `json:"label" validate:"omitempty,max=60"`
	FullName   string  `json:"fullName" validate:"required,max=120"`
	Phone      string  `json:"phone" validate:"required,max=32"`
	Street     string  `json:"street" validate:"required,max=255"`
	City       string  `json:"city" validate:"required,max=120"`
	State      *string `json:"state" validate:"omitempty,max=120"`
	PostalCode string  `json:"postalCode" validate:"required,max=20"`
	Country    string  `json:"country" validate:"required,max=120"`
	IsDefault  bool    `json:"isDefault"`
}

// UpdateInput holds optional changes to an entry.
type UpdateInput struct {
	Label      *string `json:"label" validate:"omitempty,max=60"`
	FullName   *string `json:"fullName" validate:"omitempty,min=1,max=120"`
	Phone      *string `json:"phone" validate:"omitempty,min=1,max=32"`
	Street     *string `json:"street" validate:"omitempty,min=1,max=255"`
	City       *string `json:"city" validate:"omitempty,min=1,max=120"`
	State      *string `json:"state" validate:"omitempty,max=120"`
	PostalCode *string `json:"postalCode" validate:"omitempty,min=1,max=20"`
	Country    *string `json:"country" validate:"omitempty,min=1,max=120"`
	IsDefault  *bool   `json:"isDefault"`
}

// AddressDTO is the API shape of an address book entry.
type AddressDTO struct {
	ID         uuid.UUID `json:"id"`
	Label      *string   `json:"label,omitempty"`
	FullName   string    `json:"fullName"`
	Phone      string    `json:"phone"`
	Street     string    `json:"street"`
	City       string    `json:"city"`
	State      *string   `json:"state,omitempty"`
	PostalCode string    `json:"postalCode"`
	Country    string    `json:"country"`
	IsDefault  bool      `json:"isDefault"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func fromModel(a models.Address) AddressDTO {
	return AddressDTO{
		ID:         a.ID,
		Label:      a.Label,
		FullName:   a.FullName,
		Phone:      a.Phone,
		Street:     a.Street,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		IsDefault:  a.IsDefault,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func fromModels(rows []models.Address) []AddressDTO {
	out := make([]AddressDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromModel(row))
	}
	return out
}
