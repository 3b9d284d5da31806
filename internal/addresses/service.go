package addresses

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
	pkgerrors "github.com/nhannt26/e-commerce-website-v3/pkg/errors"
	"github.com/nhannt26/e-commerce-website-v3/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages a user's address book. A user with any address always
// has exactly one default.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]AddressDTO, error)
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*AddressDTO, error)
	Update(ctx context.Context, userID, id uuid.UUID, input UpdateInput) (*AddressDTO, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	SetDefault(ctx context.Context, userID, id uuid.UUID) (*AddressDTO, error)
	// Resolve returns the saved entry as a shipping address for checkout.
	Resolve(ctx context.Context, userID, id uuid.UUID) (types.ShippingAddress, error)
}

type service struct {
	repo *Repository
	tx   txRunner
}

func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]AddressDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	rows, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return fromModels(rows), nil
}

// Create stores a new entry. The first address of a user becomes the default.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*AddressDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	address := models.Address{
		UserID:     userID,
		Label:      trimmedPtr(input.Label),
		FullName:   strings.TrimSpace(input.FullName),
		Phone:      strings.TrimSpace(input.Phone),
		Street:     strings.TrimSpace(input.Street),
		City:       strings.TrimSpace(input.City),
		State:      trimmedPtr(input.State),
		PostalCode: strings.TrimSpace(input.PostalCode),
		Country:    strings.TrimSpace(input.Country),
		IsDefault:  input.IsDefault,
	}
	if err := validateAddress(address); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		count, err := txRepo.Count(ctx, userID)
		if err != nil {
			return err
		}
		if count == 0 {
			address.IsDefault = true
		}
		if address.IsDefault {
			if err := txRepo.ClearDefault(ctx, userID); err != nil {
				return err
			}
		}
		return txRepo.Create(ctx, &address)
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(address)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, userID, id uuid.UUID, input UpdateInput) (*AddressDTO, error) {
	var updated models.Address
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		address, err := txRepo.Find(ctx, userID, id)
		if err != nil {
			return err
		}
		applyUpdate(address, input)
		if err := validateAddress(*address); err != nil {
			return err
		}
		if input.IsDefault != nil {
			switch {
			case *input.IsDefault && !address.IsDefault:
				if err := txRepo.ClearDefault(ctx, userID); err != nil {
					return err
				}
				address.IsDefault = true
			case !*input.IsDefault && address.IsDefault:
				return pkgerrors.New(pkgerrors.CodeValidation, "set another address as default instead")
			}
		}
		if err := txRepo.Save(ctx, address); err != nil {
			return err
		}
		updated = *address
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(updated)
	return &dto, nil
}

// Delete removes an entry. The only address cannot be removed, and removing
// the default promotes the oldest remaining one.
func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		address, err := txRepo.Find(ctx, userID, id)
		if err != nil {
			return err
		}
		count, err := txRepo.Count(ctx, userID)
		if err != nil {
			return err
		}
		if count <= 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cannot delete the only address")
		}
		if err := txRepo.Delete(ctx, userID, id); err != nil {
			return err
		}
		if !address.IsDefault {
			return nil
		}
		next, err := txRepo.Oldest(ctx, userID)
		if err != nil || next == nil {
			return err
		}
		next.IsDefault = true
		return txRepo.Save(ctx, next)
	})
}

func (s *service) SetDefault(ctx context.Context, userID, id uuid.UUID) (*AddressDTO, error) {
	isDefault := true
	return s.Update(ctx, userID, id, UpdateInput{IsDefault: &isDefault})
}

func (s *service) Resolve(ctx context.Context, userID, id uuid.UUID) (types.ShippingAddress, error) {
	address, err := s.repo.Find(ctx, userID, id)
	if err != nil {
		return types.ShippingAddress{}, err
	}
	return address.Shipping(), nil
}

func applyUpdate(address *models.Address, input UpdateInput) {
	if input.Label != nil {
		address.Label = trimmedPtr(input.Label)
	}
	if input.FullName != nil {
		address.FullName = strings.TrimSpace(*input.FullName)
	}
	if input.Phone != nil {
		address.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.Street != nil {
		address.Street = strings.TrimSpace(*input.Street)
	}
	if input.City != nil {
		address.City = strings.TrimSpace(*input.City)
	}
	if input.State != nil {
		address.State = trimmedPtr(input.State)
	}
	if input.PostalCode != nil {
		address.PostalCode = strings.TrimSpace(*input.PostalCode)
	}
	if input.Country != nil {
		address.Country = strings.TrimSpace(*input.Country)
	}
}

func validateAddress(address models.Address) error {
	shipping := address.Shipping()
	missing := shipping.MissingFields()
	if strings.TrimSpace(address.Country) == "" {
		missing = append(missing, "country")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing required address fields").
			WithDetails(map[string]any{"fields": missing})
	}
	return nil
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
