// ABOUTME: Tests for the inventory service layer
// ABOUTME: Covers validation, transfers with conservation checks, guards and auditing

package inventory

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemlab/labstock/internal/notify"
	"github.com/chemlab/labstock/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.SQLiteStore) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	svc := NewService(st, notify.NewBroadcaster(logger), logger, "tester")
	return svc, st
}

func seedChemical(t *testing.T, svc *Service, name string, quantity float64) int64 {
	t.Helper()
	id, err := svc.AddChemical(context.Background(), &store.Chemical{
		Name: name, Quantity: quantity, Unit: "l", Purity: 99, HazardClass: 2,
	})
	require.NoError(t, err)
	return id
}

func seedZone(t *testing.T, svc *Service, name string, capacity float64) int64 {
	t.Helper()
	id, err := svc.AddZone(context.Background(), &store.StorageZone{
		Name: name, MaxCapacity: capacity, SecurityLevel: 1, Active: true,
	})
	require.NoError(t, err)
	return id
}

func TestAddChemical_Defaults(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.AddChemical(ctx, &store.Chemical{Name: "Hexane", Quantity: 5})
	require.NoError(t, err)

	got, err := svc.ChemicalByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, float64(100), got.Purity)
	assert.Equal(t, "g", got.Unit)
	assert.Equal(t, 3, got.HazardClass)
	assert.False(t, got.ArrivalDate.IsZero())
}

func TestAddChemical_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddChemical(ctx, &store.Chemical{Name: "   "})
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = svc.AddChemical(ctx, &store.Chemical{Name: "X", Quantity: -1})
	assert.ErrorIs(t, err, ErrNegativeQuantity)
}

func TestChemicalByID_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ChemicalByID(context.Background(), 404)
	assert.ErrorIs(t, err, ErrChemicalNotFound)
}

func TestDeleteChemical_RestoresZoneLoad(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	chemID := seedChemical(t, svc, "Phenol", 100)
	zoneID := seedZone(t, svc, "Cabinet", 500)

	_, err := svc.PlaceInZone(ctx, chemID, zoneID, 60, "")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteChemical(ctx, chemID))

	// Batches are gone but the zone keeps the disposed load removed by reconcile
	batches, err := svc.Batches(ctx)
	require.NoError(t, err)
	assert.Empty(t, batches)

	drifts, err := svc.ReconcileZoneLoads(ctx, true)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, float64(60), drifts[0].Stored)
	assert.Equal(t, float64(0), drifts[0].Computed)
}

func TestDeleteZone_Guard(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	chemID := seedChemical(t, svc, "Ammonia", 50)
	zoneID := seedZone(t, svc, "Bases", 200)

	_, err := svc.PlaceInZone(ctx, chemID, zoneID, 10, "")
	require.NoError(t, err)

	err = svc.DeleteZone(ctx, zoneID)
	assert.ErrorIs(t, err, ErrZoneInUse)

	// Zone still present
	_, err = svc.ZoneByID(ctx, zoneID)
	assert.NoError(t, err)

	// After returning the batch the zone can go
	batches, err := svc.Batches(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	require.NoError(t, svc.ReturnFromZone(ctx, batches[0].ID, 10))
	assert.NoError(t, svc.DeleteZone(ctx, zoneID))
}

func TestPlaceInZone_Scenario(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	chemID := seedChemical(t, svc, "Nitric acid", 100)
	zoneID := seedZone(t, svc, "Acids", 50)

	// Over capacity: rejected, nothing changes
	_, err := svc.PlaceInZone(ctx, chemID, zoneID, 60, "")
	var capErr *InsufficientCapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, float64(50), capErr.Available)
	assert.Equal(t, float64(60), capErr.Requested)

	chem, err := svc.ChemicalByID(ctx, chemID)
	require.NoError(t, err)
	assert.Equal(t, float64(100), chem.Quantity)
	zone, err := svc.ZoneByID(ctx, zoneID)
	require.NoError(t, err)
	assert.Equal(t, float64(0), zone.CurrentLoad)

	// Exactly at capacity: accepted
	batchID, err := svc.PlaceInZone(ctx, chemID, zoneID, 50, "")
	require.NoError(t, err)

	chem, _ = svc.ChemicalByID(ctx, chemID)
	zone, _ = svc.ZoneByID(ctx, zoneID)
	assert.Equal(t, float64(50), chem.Quantity)
	assert.Equal(t, float64(50), zone.CurrentLoad)

	// Partial return
	require.NoError(t, svc.ReturnFromZone(ctx, batchID, 20))

	chem, _ = svc.ChemicalByID(ctx, chemID)
	zone, _ = svc.ZoneByID(ctx, zoneID)
	batch, err := svc.BatchByID(ctx, batchID)
	require.NoError(t, err)
	assert.Equal(t, float64(70), chem.Quantity)
	assert.Equal(t, float64(30), zone.CurrentLoad)
	assert.Equal(t, float64(30), batch.Quantity)
}

func TestPlaceInZone_InsufficientStock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	chemID := seedChemical(t, svc, "Iodine", 10)
	zoneID := seedZone(t, svc, "Shelf", 1000)

	_, err := svc.PlaceInZone(ctx, chemID, zoneID, 15, "")
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, float64(10), stockErr.Available)
	assert.Equal(t, float64(15), stockErr.Requested)

	// Placing the full stock is allowed
	_, err = svc.PlaceInZone(ctx, chemID, zoneID, 10, "")
	require.NoError(t, err)

	chem, _ := svc.ChemicalByID(ctx, chemID)
	assert.Equal(t, float64(0), chem.Quantity)
}

func TestPlaceInZone_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.PlaceInZone(ctx, 0, 1, 5, "")
	assert.ErrorIs(t, err, ErrInvalidChemicalRef)

	_, err = svc.PlaceInZone(ctx, 1, 0, 5, "")
	assert.ErrorIs(t, err, ErrInvalidZoneRef)

	_, err = svc.PlaceInZone(ctx, 1, 1, 0, "")
	assert.ErrorIs(t, err, ErrNonPositiveQuantity)

	_, err = svc.PlaceInZone(ctx, 1, 1, -3, "")
	assert.ErrorIs(t, err, ErrNonPositiveQuantity)
}

func TestPlaceInZone_UnknownRefs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.PlaceInZone(ctx, 888, 1, 5, "")
	assert.ErrorIs(t, err, ErrChemicalNotFound)

	chemID := seedChemical(t, svc, "Copper sulfate", 100)
	_, err = svc.PlaceInZone(ctx, chemID, 888, 5, "")
	var capErr *InsufficientCapacityError
	assert.ErrorAs(t, err, &capErr)
}

func TestReturnFromZone_Excess(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	chemID := seedChemical(t, svc, "Silver nitrate", 100)
	zoneID := seedZone(t, svc, "Dark cabinet", 500)

	batchID, err := svc.PlaceInZone(ctx, chemID, zoneID, 30, "")
	require.NoError(t, err)

	err = svc.ReturnFromZone(ctx, batchID, 31)
	var excess *ExcessReturnError
	require.ErrorAs(t, err, &excess)
	assert.Equal(t, float64(30), excess.InZone)
	assert.Equal(t, float64(31), excess.Requested)

	// State unchanged after the rejection
	batch, err := svc.BatchByID(ctx, batchID)
	require.NoError(t, err)
	assert.Equal(t, float64(30), batch.Quantity)

	err = svc.ReturnFromZone(ctx, batchID, 0)
	assert.ErrorIs(t, err, ErrNonPositiveQuantity)

	err = svc.ReturnFromZone(ctx, 777, 5)
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestTransfer_Conservation(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	const initial = 200.0
	chemID := seedChemical(t, svc, "Sulfuric acid", initial)
	zoneA := seedZone(t, svc, "Acids A", 500)
	zoneB := seedZone(t, svc, "Acids B", 500)

	b1, err := svc.PlaceInZone(ctx, chemID, zoneA, 80, "")
	require.NoError(t, err)
	b2, err := svc.PlaceInZone(ctx, chemID, zoneB, 50, "")
	require.NoError(t, err)
	require.NoError(t, svc.ReturnFromZone(ctx, b1, 30))
	require.NoError(t, svc.ReturnFromZone(ctx, b2, 50))

	chem, err := svc.ChemicalByID(ctx, chemID)
	require.NoError(t, err)

	batches, err := svc.Batches(ctx)
	require.NoError(t, err)

	var placed float64
	for _, b := range batches {
		placed += b.Quantity
	}
	assert.Equal(t, initial, chem.Quantity+placed)

	sum, err := st.SumBatchQuantities(ctx, chemID)
	require.NoError(t, err)
	assert.Equal(t, placed, sum)

	// No drift between zone loads and batch sums
	drifts, err := svc.ReconcileZoneLoads(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestRoundTrip_RestoresOriginalState(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	chemID := seedChemical(t, svc, "Acetic acid", 120)
	zoneID := seedZone(t, svc, "Acids", 300)

	batchID, err := svc.PlaceInZone(ctx, chemID, zoneID, 45, "")
	require.NoError(t, err)
	require.NoError(t, svc.ReturnFromZone(ctx, batchID, 45))

	chem, _ := svc.ChemicalByID(ctx, chemID)
	zone, _ := svc.ZoneByID(ctx, zoneID)
	assert.Equal(t, float64(120), chem.Quantity)
	assert.Equal(t, float64(0), zone.CurrentLoad)

	_, err = svc.BatchByID(ctx, batchID)
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestEvents_PublishedOnMutation(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	events := notify.NewBroadcaster(logger)
	svc := NewService(st, events, logger, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, _ := events.Subscribe(ctx)

	_, err = svc.AddChemical(ctx, &store.Chemical{Name: "Zinc oxide", Quantity: 1})
	require.NoError(t, err)

	select {
	case ev := <-ch:
		assert.Equal(t, notify.EventDataChanged, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("expected a data-changed event")
	}
}

func TestAuditTrail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	chemID := seedChemical(t, svc, "Potassium", 40)
	zoneID := seedZone(t, svc, "Inert gas", 100)
	batchID, err := svc.PlaceInZone(ctx, chemID, zoneID, 10, "")
	require.NoError(t, err)
	require.NoError(t, svc.ReturnFromZone(ctx, batchID, 10))

	entries, err := svc.RecentActivity(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
		assert.Equal(t, "tester", e.User)
	}
	assert.Contains(t, actions, "Chemical added")
	assert.Contains(t, actions, "Zone added")
	assert.Contains(t, actions, "Placed in zone")
	assert.Contains(t, actions, "Returned from zone")
}

func TestPruneActivity_Audited(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	seedChemical(t, svc, "Lithium", 10)

	removed, err := svc.PruneActivityOlderThan(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)

	entries, err := st.RecentActivity(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "Activity log pruned", entries[0].Action)
}

func TestWriteChemicalsCSV(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddChemical(ctx, &store.Chemical{
		Name: "Ethanol", Formula: "C2H5OH", CASNumber: "64-17-5",
		Manufacturer: "Acme", Quantity: 12.5, Unit: "l", HazardClass: 3,
		ExpirationDate: time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.WriteChemicalsCSV(ctx, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ID;Name;Formula;CAS;Manufacturer;Quantity;Unit;HazardClass;ExpirationDate", lines[0])
	assert.Contains(t, lines[1], "Ethanol;C2H5OH;64-17-5;Acme;12.5;l;3;2027-01-15")
}

func TestUpdateChemicalAndZone(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	chemID := seedChemical(t, svc, "Glucose", 20)
	zoneID := seedZone(t, svc, "Dry shelf", 100)

	chem, err := svc.ChemicalByID(ctx, chemID)
	require.NoError(t, err)
	chem.Notes = "food grade"
	chem.Quantity = 25
	require.NoError(t, svc.UpdateChemical(ctx, chem))

	chem, err = svc.ChemicalByID(ctx, chemID)
	require.NoError(t, err)
	assert.Equal(t, "food grade", chem.Notes)
	assert.Equal(t, float64(25), chem.Quantity)

	zone, err := svc.ZoneByID(ctx, zoneID)
	require.NoError(t, err)
	zone.MaxCapacity = 250
	require.NoError(t, svc.UpdateZone(ctx, zone))

	zone, err = svc.ZoneByID(ctx, zoneID)
	require.NoError(t, err)
	assert.Equal(t, float64(250), zone.MaxCapacity)

	// Unknown ids map to the typed sentinels
	missing := *chem
	missing.ID = 9999
	assert.ErrorIs(t, svc.UpdateChemical(ctx, &missing), ErrChemicalNotFound)
}

func TestChemicalsByZone(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	chemA := seedChemical(t, svc, "Aniline", 50)
	chemB := seedChemical(t, svc, "Butanol", 50)
	zone1 := seedZone(t, svc, "Zone 1", 200)
	zone2 := seedZone(t, svc, "Zone 2", 200)

	_, err := svc.PlaceInZone(ctx, chemA, zone1, 10, "")
	require.NoError(t, err)
	_, err = svc.PlaceInZone(ctx, chemA, zone1, 5, "")
	require.NoError(t, err)
	_, err = svc.PlaceInZone(ctx, chemB, zone2, 10, "")
	require.NoError(t, err)

	inZone1, err := svc.ChemicalsByZone(ctx, zone1)
	require.NoError(t, err)
	require.Len(t, inZone1, 1)
	assert.Equal(t, "Aniline", inZone1[0].Name)

	inZone2, err := svc.ChemicalsByZone(ctx, zone2)
	require.NoError(t, err)
	require.Len(t, inZone2, 1)
	assert.Equal(t, "Butanol", inZone2[0].Name)
}

func TestValidateTransfer(t *testing.T) {
	assert.NoError(t, ValidateTransfer(1, 1, 0.5))
	assert.True(t, errors.Is(ValidateTransfer(-1, 1, 1), ErrInvalidChemicalRef))
	assert.True(t, errors.Is(ValidateTransfer(1, -1, 1), ErrInvalidZoneRef))
	assert.True(t, errors.Is(ValidateTransfer(1, 1, 0), ErrNonPositiveQuantity))
}
