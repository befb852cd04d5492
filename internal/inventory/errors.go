// ABOUTME: Business-rule errors carrying the offending numbers
// ABOUTME: Detected after loading current state, before any write

package inventory

import (
	"errors"
	"fmt"
)

var (
	// ErrChemicalNotFound is returned when a referenced chemical does not exist.
	ErrChemicalNotFound = errors.New("chemical not found")
	// ErrBatchNotFound is returned when a referenced batch does not exist.
	ErrBatchNotFound = errors.New("batch not found")
	// ErrZoneNotFound is returned when a referenced zone does not exist.
	ErrZoneNotFound = errors.New("zone not found")
	// ErrZoneInUse is returned when deleting a zone that still holds batches.
	ErrZoneInUse = errors.New("zone has batches placed in it")
)

// InsufficientStockError reports a placement exceeding the chemical's
// unplaced stock.
type InsufficientStockError struct {
	Available float64
	Requested float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: available %v, requested %v", e.Available, e.Requested)
}

// InsufficientCapacityError reports a placement exceeding the zone's
// available capacity.
type InsufficientCapacityError struct {
	Available float64
	Requested float64
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("insufficient zone capacity: available %v, requested %v", e.Available, e.Requested)
}

// ExcessReturnError reports a return exceeding the batch's quantity.
type ExcessReturnError struct {
	InZone    float64
	Requested float64
}

func (e *ExcessReturnError) Error() string {
	return fmt.Sprintf("cannot return more than placed: in zone %v, requested %v", e.InZone, e.Requested)
}
