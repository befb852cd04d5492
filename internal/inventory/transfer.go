// ABOUTME: Transfer engine moving quantity between unplaced stock and zones
// ABOUTME: Stock, zone load and batch rows mutate inside one transaction in both directions

package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/chemlab/labstock/internal/store"
)

// PlaceInZone moves quantity of a chemical from unplaced stock into a zone,
// creating a batch record. The decrement of stock, increment of zone load
// and batch insert commit atomically. Boundaries are inclusive: placing
// exactly the available stock or exactly the remaining capacity succeeds.
func (s *Service) PlaceInZone(ctx context.Context, chemicalID, zoneID int64, quantity float64, notes string) (int64, error) {
	if err := ValidateTransfer(chemicalID, zoneID, quantity); err != nil {
		return 0, err
	}

	chem, err := s.store.GetChemical(ctx, chemicalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrChemicalNotFound
		}
		return 0, err
	}

	if quantity > chem.Quantity {
		return 0, &InsufficientStockError{Available: chem.Quantity, Requested: quantity}
	}

	available, err := s.store.ZoneAvailableCapacity(ctx, zoneID)
	if err != nil {
		return 0, err
	}
	if quantity > available {
		return 0, &InsufficientCapacityError{Available: available, Requested: quantity}
	}

	batchID, err := s.store.PlaceBatch(ctx, chemicalID, zoneID, quantity, notes)
	if err != nil {
		return 0, err
	}

	s.logger.Info("placed in zone",
		"batch_id", batchID,
		"chemical_id", chemicalID,
		"zone_id", zoneID,
		"quantity", quantity,
	)
	s.audit(ctx, "Placed in zone",
		fmt.Sprintf("chemical %d -> zone %d, quantity %v", chemicalID, zoneID, quantity))
	s.dataChanged()
	return batchID, nil
}

// ReturnFromZone moves quantity out of a batch back to the chemical's
// unplaced stock. Returning the batch's full quantity deletes the batch row;
// a partial return decrements it. All three writes commit atomically.
func (s *Service) ReturnFromZone(ctx context.Context, batchID int64, quantity float64) error {
	if quantity <= 0 {
		return ErrNonPositiveQuantity
	}

	batch, err := s.store.GetBatch(ctx, batchID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrBatchNotFound
		}
		return err
	}

	if quantity > batch.Quantity {
		return &ExcessReturnError{InZone: batch.Quantity, Requested: quantity}
	}

	if err := s.store.ReturnBatch(ctx, batchID, quantity); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrBatchNotFound
		}
		return err
	}

	s.logger.Info("returned from zone", "batch_id", batchID, "quantity", quantity)
	s.audit(ctx, "Returned from zone",
		fmt.Sprintf("batch %d, quantity %v", batchID, quantity))
	s.dataChanged()
	return nil
}

// Batches returns all placements joined for display, newest first.
func (s *Service) Batches(ctx context.Context) ([]*store.BatchDetail, error) {
	return s.store.ListBatches(ctx)
}

// BatchByID retrieves one placement.
func (s *Service) BatchByID(ctx context.Context, id int64) (*store.BatchDetail, error) {
	b, err := s.store.GetBatch(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBatchNotFound
	}
	return b, err
}
