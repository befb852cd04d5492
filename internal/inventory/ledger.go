// ABOUTME: Ledger operations for chemicals and zones
// ABOUTME: Register, modify and delete stock and zone definitions with audit entries

package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chemlab/labstock/internal/store"
)

// AddChemical validates and registers a new chemical, returning its id.
// Purity defaults to 100 and the arrival date to today when unset.
func (s *Service) AddChemical(ctx context.Context, c *store.Chemical) (int64, error) {
	if err := ValidateChemical(c); err != nil {
		return 0, err
	}

	if c.Purity == 0 {
		c.Purity = 100
	}
	if c.ArrivalDate.IsZero() {
		c.ArrivalDate = time.Now().UTC()
	}
	if c.Unit == "" {
		c.Unit = "g"
	}
	if c.HazardClass == 0 {
		c.HazardClass = 3
	}

	id, err := s.store.CreateChemical(ctx, c)
	if err != nil {
		return 0, err
	}

	s.audit(ctx, "Chemical added", c.Name)
	s.dataChanged()
	return id, nil
}

// UpdateChemical validates and overwrites all mutable fields of a chemical.
// Related batches are untouched.
func (s *Service) UpdateChemical(ctx context.Context, c *store.Chemical) error {
	if err := ValidateChemical(c); err != nil {
		return err
	}

	if err := s.store.UpdateChemical(ctx, c); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrChemicalNotFound
		}
		return err
	}

	s.audit(ctx, "Chemical updated", fmt.Sprintf("id %d: %s", c.ID, c.Name))
	s.dataChanged()
	return nil
}

// DeleteChemical removes a chemical and every batch referencing it in one
// transaction. Quantity placed in zones is destroyed together with the
// chemical (total disposal); nothing is returned to stock.
func (s *Service) DeleteChemical(ctx context.Context, id int64) error {
	if err := s.store.DeleteChemical(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrChemicalNotFound
		}
		return err
	}

	s.audit(ctx, "Chemical deleted", fmt.Sprintf("id %d", id))
	s.dataChanged()
	return nil
}

// AddZone validates and registers a new storage zone; its load starts at 0.
func (s *Service) AddZone(ctx context.Context, z *store.StorageZone) (int64, error) {
	if err := ValidateZone(z); err != nil {
		return 0, err
	}

	if z.MaxCapacity == 0 {
		z.MaxCapacity = 1000
	}
	if z.SecurityLevel == 0 {
		z.SecurityLevel = 1
	}

	id, err := s.store.CreateZone(ctx, z)
	if err != nil {
		return 0, err
	}

	s.audit(ctx, "Zone added", z.Name)
	s.dataChanged()
	return id, nil
}

// UpdateZone validates and overwrites a zone's definition. current_load is
// never written by updates.
func (s *Service) UpdateZone(ctx context.Context, z *store.StorageZone) error {
	if err := ValidateZone(z); err != nil {
		return err
	}

	if err := s.store.UpdateZone(ctx, z); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrZoneNotFound
		}
		return err
	}

	s.audit(ctx, "Zone updated", fmt.Sprintf("id %d: %s", z.ID, z.Name))
	s.dataChanged()
	return nil
}

// DeleteZone removes a zone. It fails with ErrZoneInUse while any batch
// references the zone; placements are never silently cascaded away.
func (s *Service) DeleteZone(ctx context.Context, id int64) error {
	inUse, err := s.store.CountBatchesByZone(ctx, id)
	if err != nil {
		return err
	}
	if inUse > 0 {
		return ErrZoneInUse
	}

	if err := s.store.DeleteZone(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrZoneNotFound
		}
		return err
	}

	s.audit(ctx, "Zone deleted", fmt.Sprintf("id %d", id))
	s.dataChanged()
	return nil
}

// Chemicals returns all chemicals ordered by name.
func (s *Service) Chemicals(ctx context.Context) ([]*store.Chemical, error) {
	return s.store.ListChemicals(ctx)
}

// SearchChemicals filters by substring and hazard class; see the store for
// matching semantics.
func (s *Service) SearchChemicals(ctx context.Context, text string, hazardClass int) ([]*store.Chemical, error) {
	return s.store.SearchChemicals(ctx, text, hazardClass)
}

// ChemicalByID retrieves one chemical.
func (s *Service) ChemicalByID(ctx context.Context, id int64) (*store.Chemical, error) {
	c, err := s.store.GetChemical(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrChemicalNotFound
	}
	return c, err
}

// ChemicalsByZone returns the chemicals with at least one batch in a zone.
func (s *Service) ChemicalsByZone(ctx context.Context, zoneID int64) ([]*store.Chemical, error) {
	return s.store.ListChemicalsByZone(ctx, zoneID)
}

// Zones returns all zones with derived batch counts and load percentages.
func (s *Service) Zones(ctx context.Context) ([]*store.ZoneSummary, error) {
	return s.store.ListZones(ctx)
}

// ZoneByID retrieves one zone.
func (s *Service) ZoneByID(ctx context.Context, id int64) (*store.StorageZone, error) {
	z, err := s.store.GetZone(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrZoneNotFound
	}
	return z, err
}

func pruneDetail(days int, removed int64) string {
	return fmt.Sprintf("removed %d entries older than %d days", removed, days)
}

func reconcileDetail(drifts []store.ZoneLoadDrift) string {
	return fmt.Sprintf("repaired %d drifted zones", len(drifts))
}
