// ABOUTME: Data types and sentinel errors for labstock persistence
// ABOUTME: Defines Chemical, StorageZone, Batch, BackupRecord and ActivityEntry records

package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Chemical is one registered substance. Quantity is the unplaced stock on
// hand; quantity held in zones lives in Batch rows.
type Chemical struct {
	ID                int64
	Name              string
	Formula           string
	CASNumber         string
	Manufacturer      string
	Supplier          string
	Purity            float64
	Quantity          float64
	Unit              string
	HazardClass       int
	StorageConditions string
	ExpirationDate    time.Time // zero means not set
	ArrivalDate       time.Time
	Notes             string
	CreatedAt         time.Time
}

// StorageZone is a physical storage location with a capacity limit.
// CurrentLoad is derived state: the sum of batch quantities placed in the
// zone, maintained incrementally by the transfer operations.
type StorageZone struct {
	ID                 int64
	Name               string
	Description        string
	TemperatureMin     float64
	TemperatureMax     float64
	HumidityMin        float64
	HumidityMax        float64
	LightingConditions string
	SecurityLevel      int
	MaxCapacity        float64
	CurrentLoad        float64
	Active             bool
	CreatedAt          time.Time
}

// ZoneSummary is a zone with display-derived fields for listing.
type ZoneSummary struct {
	StorageZone
	BatchCount     int
	LoadPercentage float64
}

// Batch records one placement of a quantity of a chemical into a zone.
type Batch struct {
	ID         int64
	ChemicalID int64
	ZoneID     int64
	Quantity   float64
	Notes      string
	PlacedDate time.Time
}

// BatchDetail is a batch joined with its chemical and zone names for display.
type BatchDetail struct {
	Batch
	ChemicalName string
	Unit         string
	ZoneName     string
}

// BackupRecord is the bookkeeping row for one backup file. The file itself
// lives in the backup directory and can outlive or predecease the record.
type BackupRecord struct {
	ID        int64
	Filename  string
	SizeBytes int64
	Comment   string
	Restored  bool
	CreatedAt time.Time
}

// ActivityEntry is one append-only audit row.
type ActivityEntry struct {
	ID        int64
	Action    string
	Detail    string
	User      string
	Timestamp time.Time
}

// ZoneLoadDrift reports a zone whose stored current_load disagrees with the
// sum of its batch quantities.
type ZoneLoadDrift struct {
	ZoneID   int64
	ZoneName string
	Stored   float64
	Computed float64
}

// Statistics is the aggregate view over the chemical register.
type Statistics struct {
	ChemicalCount int
	ZoneCount     int
	TotalQuantity float64
	AverageHazard float64
}
