package importer

import (
	"context"

	"github.com/vbc-logbook/backend/internal/models"
	"github.com/vbc-logbook/backend/internal/storage"
)

// Batch is the write surface of one import transaction. Nothing written
// through it is visible before Commit.
type Batch interface {
	BatteryIDs(ctx context.Context) (map[string]int64, error)
	ModelIDs(ctx context.Context) (map[string]int64, error)
	InsertBattery(ctx context.Context, name string) (int64, error)
	InsertModel(ctx context.Context, name string) (int64, error)

	CycleExists(ctx context.Context, batteryID int64, date string) (bool, error)
	InsertCycle(ctx context.Context, r *models.ChargeCycleRecord) (int64, error)
	InsertEventLines(ctx context.Context, logID int64, lines []models.EventLogLine) error
	InsertTelemetryLines(ctx context.Context, logID int64, lines []models.TelemetryLogLine) error
	InsertGpsLines(ctx context.Context, logID int64, lines []models.GpsLogLine) error
	SetModelTypeIfUnset(ctx context.Context, modelID int64, deviceType models.DeviceType) (bool, error)

	Commit() error
	Rollback() error
}

// Backend opens import transactions.
type Backend interface {
	Begin(ctx context.Context) (Batch, error)
}

type storeBackend struct {
	store *storage.Store
}

// FromStore adapts a storage.Store to Backend.
func FromStore(store *storage.Store) Backend {
	return storeBackend{store: store}
}

func (b storeBackend) Begin(ctx context.Context) (Batch, error) {
	tx, err := b.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return tx, nil
}
