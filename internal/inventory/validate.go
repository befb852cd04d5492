// ABOUTME: Pure validation functions consulted before any storage write
// ABOUTME: Structural checks only; never touch the store

package inventory

import (
	"errors"
	"strings"

	"github.com/chemlab/labstock/internal/store"
)

// Validation errors. These are reported verbatim to the caller and never
// reach the activity log.
var (
	ErrEmptyName           = errors.New("name is required")
	ErrNegativeQuantity    = errors.New("quantity cannot be negative")
	ErrInvalidChemicalRef  = errors.New("invalid chemical id")
	ErrInvalidZoneRef      = errors.New("invalid zone id")
	ErrNonPositiveQuantity = errors.New("quantity must be positive")
)

// ValidateChemical checks a chemical record for structural validity.
func ValidateChemical(c *store.Chemical) error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.Quantity < 0 {
		return ErrNegativeQuantity
	}
	return nil
}

// ValidateZone checks a zone record for structural validity.
func ValidateZone(z *store.StorageZone) error {
	if strings.TrimSpace(z.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// ValidateTransfer checks the references and quantity of a transfer request.
func ValidateTransfer(chemicalID, zoneID int64, quantity float64) error {
	if chemicalID <= 0 {
		return ErrInvalidChemicalRef
	}
	if zoneID <= 0 {
		return ErrInvalidZoneRef
	}
	if quantity <= 0 {
		return ErrNonPositiveQuantity
	}
	return nil
}
