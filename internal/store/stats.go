// ABOUTME: Aggregate statistics over the chemical register

package store

import (
	"context"
	"database/sql"
	"fmt"
)

// GetStatistics returns counts and aggregates over chemicals and zones.
func (s *SQLiteStore) GetStatistics(ctx context.Context) (*Statistics, error) {
	var stats Statistics
	var err error

	stats.ChemicalCount, err = s.CountChemicals(ctx)
	if err != nil {
		return nil, err
	}
	stats.ZoneCount, err = s.CountZones(ctx)
	if err != nil {
		return nil, err
	}

	var total, avg sql.NullFloat64
	if err := s.db.QueryRowContext(ctx,
		`SELECT SUM(quantity), AVG(hazard_class) FROM chemicals`).Scan(&total, &avg); err != nil {
		return nil, fmt.Errorf("querying chemical aggregates: %w", err)
	}
	stats.TotalQuantity = total.Float64
	stats.AverageHazard = avg.Float64

	return &stats, nil
}
