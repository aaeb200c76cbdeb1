package importer

import (
	"context"
	"fmt"

	"github.com/vbc-logbook/backend/internal/models"
)

// resolveBatteries creates every battery named by a battery directory that
// the store does not know yet, reloads the full map after any creation and
// stamps the ids on the records.
func resolveBatteries(ctx context.Context, batch Batch, names []string, records []models.ChargeCycleRecord) (int, error) {
	ids, err := batch.BatteryIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading batteries: %w", err)
	}

	created := 0
	for _, name := range missing(names, ids) {
		if _, err := batch.InsertBattery(ctx, name); err != nil {
			return created, err
		}
		created++
	}
	if created > 0 {
		if ids, err = batch.BatteryIDs(ctx); err != nil {
			return created, fmt.Errorf("reloading batteries: %w", err)
		}
	}

	for i := range records {
		records[i].BatteryID = ids[records[i].BatteryName]
	}
	return created, nil
}

// resolveModels does the same for the model names referenced by records.
func resolveModels(ctx context.Context, batch Batch, records []models.ChargeCycleRecord) (int, error) {
	ids, err := batch.ModelIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading models: %w", err)
	}

	names := make([]string, 0, len(records))
	for _, r := range records {
		if r.ModelName != "" {
			names = append(names, r.ModelName)
		}
	}

	created := 0
	for _, name := range missing(names, ids) {
		if _, err := batch.InsertModel(ctx, name); err != nil {
			return created, err
		}
		created++
	}
	if created > 0 {
		if ids, err = batch.ModelIDs(ctx); err != nil {
			return created, fmt.Errorf("reloading models: %w", err)
		}
	}

	for i := range records {
		records[i].ModelID = ids[records[i].ModelName]
	}
	return created, nil
}

// missing returns the distinct names absent from ids in first-seen order.
func missing(names []string, ids map[string]int64) []string {
	seen := make(map[string]struct{}, len(names))
	var out []string
	for _, name := range names {
		if _, ok := ids[name]; ok {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
