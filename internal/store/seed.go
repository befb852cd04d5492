// ABOUTME: Illustrative seed data for an empty database
// ABOUTME: Skippable convenience; zones and chemicals useful for first runs

package store

import (
	"context"
	"fmt"
)

// Empty reports whether the database holds no chemicals and no zones.
func (s *SQLiteStore) Empty(ctx context.Context) (bool, error) {
	chemicals, err := s.CountChemicals(ctx)
	if err != nil {
		return false, err
	}
	zones, err := s.CountZones(ctx)
	if err != nil {
		return false, err
	}
	return chemicals == 0 && zones == 0, nil
}

// Seed inserts a small illustrative set of zones and chemicals. Intended for
// an empty database; callers decide whether to run it.
func (s *SQLiteStore) Seed(ctx context.Context) error {
	zones := []StorageZone{
		{Name: "Cold room +4°C", MaxCapacity: 1000, SecurityLevel: 1, Active: true},
		{Name: "Freezer -20°C", MaxCapacity: 1500, SecurityLevel: 1, Active: true},
		{Name: "Flammables cabinet", MaxCapacity: 2000, SecurityLevel: 3, Active: true},
		{Name: "Acids cabinet", MaxCapacity: 2500, SecurityLevel: 3, Active: true},
		{Name: "Bases cabinet", MaxCapacity: 3000, SecurityLevel: 3, Active: true},
	}

	for i := range zones {
		zones[i].Description = fmt.Sprintf("Sample zone %d", i+1)
		if _, err := s.CreateZone(ctx, &zones[i]); err != nil {
			return fmt.Errorf("seeding zone %q: %w", zones[i].Name, err)
		}
	}

	chemicals := []struct {
		name    string
		formula string
	}{
		{"Distilled water", "H2O"},
		{"Ethanol", "C2H5OH"},
		{"Hydrochloric acid", "HCl"},
		{"Sodium hydroxide", "NaOH"},
		{"Acetone", "CH3COCH3"},
		{"Methanol", "CH3OH"},
		{"Benzene", "C6H6"},
		{"Toluene", "C7H8"},
	}

	for i, c := range chemicals {
		unit := "kg"
		if i%2 == 0 {
			unit = "l"
		}
		chem := Chemical{
			Name:        c.name,
			Formula:     c.formula,
			Quantity:    100 + float64(i)*50,
			Unit:        unit,
			HazardClass: i%5 + 1,
			Purity:      95 + float64(i%5),
		}
		if _, err := s.CreateChemical(ctx, &chem); err != nil {
			return fmt.Errorf("seeding chemical %q: %w", c.name, err)
		}
	}

	if err := s.LogActivity(ctx, "Initialization", "Seeded sample data", ""); err != nil {
		s.logger.Warn("seed activity log write failed", "error", err)
	}

	s.logger.Info("seeded sample data", "zones", len(zones), "chemicals", len(chemicals))
	return nil
}
