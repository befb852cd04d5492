// ABOUTME: Batch placement records and the transactional place/return primitives
// ABOUTME: Each transfer moves quantity between chemical stock, zone load and batches atomically

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PlaceBatch runs the placement transaction: decrement the chemical's
// unplaced quantity, increment the zone's load and insert the batch row.
// All three writes commit together or not at all. Business checks
// (sufficient stock, sufficient capacity) belong to the caller.
func (s *SQLiteStore) PlaceBatch(ctx context.Context, chemicalID, zoneID int64, quantity float64, notes string) (int64, error) {
	var batchID int64

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE chemicals SET quantity = quantity - ? WHERE id = ?`,
			quantity, chemicalID)
		if err != nil {
			return fmt.Errorf("decrementing chemical stock: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("getting rows affected: %w", err)
		} else if n == 0 {
			return ErrNotFound
		}

		res, err = tx.ExecContext(ctx,
			`UPDATE storage_zones SET current_load = current_load + ? WHERE id = ?`,
			quantity, zoneID)
		if err != nil {
			return fmt.Errorf("incrementing zone load: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("getting rows affected: %w", err)
		} else if n == 0 {
			return ErrNotFound
		}

		res, err = tx.ExecContext(ctx,
			`INSERT INTO batches (chemical_id, zone_id, quantity, notes, placed_date)
			 VALUES (?, ?, ?, ?, ?)`,
			chemicalID, zoneID, quantity, nullString(notes),
			time.Now().UTC().Format(time.DateOnly))
		if err != nil {
			return fmt.Errorf("inserting batch: %w", err)
		}

		batchID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading batch id: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Debug("placed batch",
		"batch_id", batchID,
		"chemical_id", chemicalID,
		"zone_id", zoneID,
		"quantity", quantity,
	)
	return batchID, nil
}

// ReturnBatch runs the reverse transaction: remove quantity from the batch
// (deleting the row when fully returned), return it to the chemical's
// unplaced stock and decrement the zone's load. The batch is re-read inside
// the transaction so the three writes always agree.
func (s *SQLiteStore) ReturnBatch(ctx context.Context, batchID int64, quantity float64) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var chemicalID, zoneID int64
		var inZone float64
		err := tx.QueryRowContext(ctx,
			`SELECT chemical_id, zone_id, quantity FROM batches WHERE id = ?`,
			batchID).Scan(&chemicalID, &zoneID, &inZone)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying batch: %w", err)
		}
		if quantity > inZone {
			return fmt.Errorf("return quantity %v exceeds batch quantity %v", quantity, inZone)
		}

		if quantity == inZone {
			if _, err := tx.ExecContext(ctx, `DELETE FROM batches WHERE id = ?`, batchID); err != nil {
				return fmt.Errorf("deleting batch: %w", err)
			}
		} else {
			if _, err := tx.ExecContext(ctx,
				`UPDATE batches SET quantity = quantity - ? WHERE id = ?`,
				quantity, batchID); err != nil {
				return fmt.Errorf("decrementing batch: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE chemicals SET quantity = quantity + ? WHERE id = ?`,
			quantity, chemicalID); err != nil {
			return fmt.Errorf("restoring chemical stock: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE storage_zones SET current_load = current_load - ? WHERE id = ?`,
			quantity, zoneID); err != nil {
			return fmt.Errorf("decrementing zone load: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("returned from batch", "batch_id", batchID, "quantity", quantity)
	return nil
}

const batchQuery = `
	SELECT b.id, b.chemical_id, b.zone_id, b.quantity, b.notes, b.placed_date,
		c.name, c.unit, z.name
	FROM batches b
	JOIN chemicals c ON b.chemical_id = c.id
	JOIN storage_zones z ON b.zone_id = z.id
`

// GetBatch retrieves one batch joined with its chemical and zone names.
// Returns ErrNotFound if absent.
func (s *SQLiteStore) GetBatch(ctx context.Context, id int64) (*BatchDetail, error) {
	row := s.db.QueryRowContext(ctx, batchQuery+` WHERE b.id = ?`, id)

	b, err := scanBatchDetail(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying batch: %w", err)
	}
	return b, nil
}

// ListBatches returns all batches joined for display, newest placements first.
func (s *SQLiteStore) ListBatches(ctx context.Context) ([]*BatchDetail, error) {
	rows, err := s.db.QueryContext(ctx, batchQuery+` ORDER BY b.placed_date DESC, b.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying batches: %w", err)
	}
	defer rows.Close()

	var batches []*BatchDetail
	for rows.Next() {
		b, err := scanBatchDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning batch row: %w", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating batch rows: %w", err)
	}
	return batches, nil
}

// CountBatchesByZone returns the number of batches placed in a zone.
func (s *SQLiteStore) CountBatchesByZone(ctx context.Context, zoneID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM batches WHERE zone_id = ?`, zoneID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting batches by zone: %w", err)
	}
	return n, nil
}

// SumBatchQuantities returns the total placed quantity for one chemical.
func (s *SQLiteStore) SumBatchQuantities(ctx context.Context, chemicalID int64) (float64, error) {
	var sum float64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM batches WHERE chemical_id = ?`,
		chemicalID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("summing batch quantities: %w", err)
	}
	return sum, nil
}

func scanBatchDetail(scanner interface{ Scan(dest ...any) error }) (*BatchDetail, error) {
	var b BatchDetail
	var notes *string
	var placed string

	err := scanner.Scan(
		&b.ID, &b.ChemicalID, &b.ZoneID, &b.Quantity, &notes, &placed,
		&b.ChemicalName, &b.Unit, &b.ZoneName,
	)
	if err != nil {
		return nil, err
	}

	b.Notes = deref(notes)
	b.PlacedDate = parseDate(&placed)
	return &b, nil
}
