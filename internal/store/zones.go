// ABOUTME: Storage zone CRUD and capacity queries against the storage_zones table
// ABOUTME: current_load is never written here except at creation (starts at 0)

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const zoneColumns = `id, name, description, temperature_min, temperature_max, humidity_min,
	humidity_max, lighting_conditions, security_level, max_capacity, current_load, is_active, created_at`

// CreateZone inserts a storage zone and returns its assigned id.
// current_load always starts at 0 regardless of the passed value.
func (s *SQLiteStore) CreateZone(ctx context.Context, z *StorageZone) (int64, error) {
	query := `
		INSERT INTO storage_zones (name, description, temperature_min, temperature_max,
			humidity_min, humidity_max, lighting_conditions, security_level,
			max_capacity, current_load, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`

	if z.CreatedAt.IsZero() {
		z.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, query,
		z.Name,
		nullString(z.Description),
		z.TemperatureMin,
		z.TemperatureMax,
		z.HumidityMin,
		z.HumidityMax,
		nullString(z.LightingConditions),
		z.SecurityLevel,
		z.MaxCapacity,
		boolToInt(z.Active),
		formatTime(z.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting zone: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading zone id: %w", err)
	}

	s.logger.Debug("created zone", "id", id, "name", z.Name)
	return id, nil
}

// GetZone retrieves a zone by id. Returns ErrNotFound if absent.
func (s *SQLiteStore) GetZone(ctx context.Context, id int64) (*StorageZone, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+zoneColumns+` FROM storage_zones WHERE id = ?`, id)

	z, err := scanZone(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying zone: %w", err)
	}
	return z, nil
}

// UpdateZone overwrites the mutable fields of a zone by id. current_load is
// deliberately left untouched; only the transfer operations move it.
func (s *SQLiteStore) UpdateZone(ctx context.Context, z *StorageZone) error {
	query := `
		UPDATE storage_zones
		SET name = ?, description = ?, temperature_min = ?, temperature_max = ?,
			humidity_min = ?, humidity_max = ?, lighting_conditions = ?,
			security_level = ?, max_capacity = ?, is_active = ?
		WHERE id = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		z.Name,
		nullString(z.Description),
		z.TemperatureMin,
		z.TemperatureMax,
		z.HumidityMin,
		z.HumidityMax,
		nullString(z.LightingConditions),
		z.SecurityLevel,
		z.MaxCapacity,
		boolToInt(z.Active),
		z.ID,
	)
	if err != nil {
		return fmt.Errorf("updating zone: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("updated zone", "id", z.ID)
	return nil
}

// DeleteZone removes a zone row. Callers must check the zone is empty first;
// this is a plain row delete, never a cascade.
func (s *SQLiteStore) DeleteZone(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM storage_zones WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting zone: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted zone", "id", id)
	return nil
}

// ListZones returns all zones ordered by name, with batch counts and load
// percentage derived per row.
func (s *SQLiteStore) ListZones(ctx context.Context) ([]*ZoneSummary, error) {
	query := `
		SELECT ` + zoneColumns + `,
			(SELECT COUNT(*) FROM batches WHERE zone_id = storage_zones.id) AS batch_count,
			CASE WHEN max_capacity > 0 THEN current_load / max_capacity * 100 ELSE 0 END AS load_percentage
		FROM storage_zones
		ORDER BY name
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying zones: %w", err)
	}
	defer rows.Close()

	var zones []*ZoneSummary
	for rows.Next() {
		var zs ZoneSummary
		var desc, lighting *string
		var tMin, tMax, hMin, hMax sql.NullFloat64
		var active int
		var createdAt string

		if err := rows.Scan(
			&zs.ID, &zs.Name, &desc, &tMin, &tMax, &hMin, &hMax, &lighting,
			&zs.SecurityLevel, &zs.MaxCapacity, &zs.CurrentLoad, &active, &createdAt,
			&zs.BatchCount, &zs.LoadPercentage,
		); err != nil {
			return nil, fmt.Errorf("scanning zone row: %w", err)
		}

		zs.Description = deref(desc)
		zs.LightingConditions = deref(lighting)
		zs.TemperatureMin = tMin.Float64
		zs.TemperatureMax = tMax.Float64
		zs.HumidityMin = hMin.Float64
		zs.HumidityMax = hMax.Float64
		zs.Active = active != 0
		zs.CreatedAt = parseTime(createdAt)
		zones = append(zones, &zs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating zone rows: %w", err)
	}
	return zones, nil
}

// ZoneAvailableCapacity returns max_capacity - current_load for an active
// zone. Inactive or missing zones yield 0.
func (s *SQLiteStore) ZoneAvailableCapacity(ctx context.Context, zoneID int64) (float64, error) {
	var avail float64
	err := s.db.QueryRowContext(ctx,
		`SELECT max_capacity - current_load FROM storage_zones WHERE id = ? AND is_active = 1`,
		zoneID).Scan(&avail)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("querying zone capacity: %w", err)
	}
	return avail, nil
}

// CountZones returns the number of zone rows.
func (s *SQLiteStore) CountZones(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM storage_zones`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting zones: %w", err)
	}
	return n, nil
}

// RecomputeZoneLoads compares each zone's stored current_load with the sum of
// its batch quantities and returns the zones that drifted. With repair set,
// drifted rows are rewritten to the computed value in one transaction.
func (s *SQLiteStore) RecomputeZoneLoads(ctx context.Context, repair bool) ([]ZoneLoadDrift, error) {
	query := `
		SELECT z.id, z.name, z.current_load, COALESCE(SUM(b.quantity), 0) AS computed
		FROM storage_zones z
		LEFT JOIN batches b ON b.zone_id = z.id
		GROUP BY z.id
		HAVING z.current_load != computed
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("recomputing zone loads: %w", err)
	}
	defer rows.Close()

	var drifts []ZoneLoadDrift
	for rows.Next() {
		var d ZoneLoadDrift
		if err := rows.Scan(&d.ZoneID, &d.ZoneName, &d.Stored, &d.Computed); err != nil {
			return nil, fmt.Errorf("scanning drift row: %w", err)
		}
		drifts = append(drifts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating drift rows: %w", err)
	}

	if !repair || len(drifts) == 0 {
		return drifts, nil
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		for _, d := range drifts {
			if _, err := tx.ExecContext(ctx,
				`UPDATE storage_zones SET current_load = ? WHERE id = ?`,
				d.Computed, d.ZoneID); err != nil {
				return fmt.Errorf("repairing zone %d load: %w", d.ZoneID, err)
			}
		}
		return nil
	})
	if err != nil {
		return drifts, err
	}

	s.logger.Info("repaired zone load drift", "zones", len(drifts))
	return drifts, nil
}

func scanZone(scanner interface{ Scan(dest ...any) error }) (*StorageZone, error) {
	var z StorageZone
	var desc, lighting *string
	var tMin, tMax, hMin, hMax sql.NullFloat64
	var active int
	var createdAt string

	err := scanner.Scan(
		&z.ID, &z.Name, &desc, &tMin, &tMax, &hMin, &hMax, &lighting,
		&z.SecurityLevel, &z.MaxCapacity, &z.CurrentLoad, &active, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	z.Description = deref(desc)
	z.LightingConditions = deref(lighting)
	z.TemperatureMin = tMin.Float64
	z.TemperatureMax = tMax.Float64
	z.HumidityMin = hMin.Float64
	z.HumidityMax = hMax.Float64
	z.Active = active != 0
	z.CreatedAt = parseTime(createdAt)
	return &z, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
