// report_test.go - Tests for cycle summaries, week buckets and the query service
package report

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbc-logbook/backend/internal/models"
	"github.com/vbc-logbook/backend/internal/storage"
)

func cycleAt(t time.Time, model, battery string, used, duration int) models.Cycle {
	return models.Cycle{Date: t, Model: model, Battery: battery, Used: used, Capacity: 2200, Duration: duration}
}

func TestSummarize(t *testing.T) {
	day := time.Date(2021, 6, 5, 10, 0, 0, 0, time.UTC)
	cycles := []models.Cycle{
		cycleAt(day, "Logo 600", "Akku 1", 1500, 300),
		cycleAt(day.Add(40*time.Minute), "Logo 600", "Akku 2", 1600, 320),
		cycleAt(day.Add(3*time.Hour+40*time.Minute), "Logo 600", "Akku 1", 1400, 290),
		cycleAt(day.Add(7*time.Hour), "Quad", "Akku 3", 1234, 3700),
	}

	report := Summarize(cycles)
	require.Len(t, report.Data, 4)
	assert.Equal(t, []int{1, 1, 1, 2}, sessions(report.Data))
	assert.Equal(t, models.CycleTotals{
		Cycles:   4,
		Used:     "5.73",
		Duration: "01:16:50",
		Sessions: 2,
	}, report.Totals)

	empty := Summarize(nil)
	assert.Equal(t, "0.00", empty.Totals.Used)
	assert.Equal(t, "00:00:00", empty.Totals.Duration)
	assert.Zero(t, empty.Totals.Sessions)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:05:00", FormatDuration(300))
	assert.Equal(t, "101:00:01", FormatDuration(101*3600+1))
}

func TestWeeks(t *testing.T) {
	cycles := []models.Cycle{
		cycleAt(time.Date(2020, 12, 31, 10, 0, 0, 0, time.UTC), "Logo 600", "Akku 1", 1500, 300),
		cycleAt(time.Date(2020, 12, 31, 11, 0, 0, 0, time.UTC), "Quad", "Akku 1", 1500, 300),
		cycleAt(time.Date(2021, 1, 4, 10, 0, 0, 0, time.UTC), "Logo 600", "Akku 2", 1500, 300),
	}

	t.Run("by model", func(t *testing.T) {
		weeks := Weeks(cycles, GroupByModel)
		// 2020 has 53 ISO weeks, 2021 has 52
		require.Len(t, weeks, 105)
		assert.Equal(t, "2020 - 01", weeks[0].Week)
		assert.Empty(t, weeks[0].Groups)
		assert.Equal(t, "2020 - 53", weeks[52].Week)
		assert.Equal(t, map[string]int{"Logo 600": 1, "Quad": 1}, weeks[52].Groups)
		assert.Equal(t, "2021 - 01", weeks[53].Week)
		assert.Equal(t, map[string]int{"Logo 600": 1}, weeks[53].Groups)
	})

	t.Run("by battery", func(t *testing.T) {
		weeks := Weeks(cycles, GroupByBattery)
		assert.Equal(t, map[string]int{"Akku 1": 2}, weeks[52].Groups)
	})

	t.Run("no cycles", func(t *testing.T) {
		assert.Empty(t, Weeks(nil, GroupByModel))
	})
}

func TestDefaultThumb(t *testing.T) {
	assert.Equal(t, "airplane.png", DefaultThumb(models.DeviceAirplane))
	assert.Equal(t, "airplane.png", DefaultThumb(models.DeviceVBasic))
	assert.Equal(t, "multirotor.png", DefaultThumb(models.DeviceMultirotor))
	assert.Equal(t, "helicopter.png", DefaultThumb(models.DeviceHelicopter))
	assert.Equal(t, "helicopter.png", DefaultThumb(""))
}

func TestService(t *testing.T) {
	ctx := context.Background()
	store, err := storage.Open(ctx, storage.Config{Driver: storage.DriverSQLite, Path: filepath.Join(t.TempDir(), "report.db")}, nil)
	require.NoError(t, err)
	defer store.Close()

	batteryID, err := store.InsertBattery(ctx, "Akku 1")
	require.NoError(t, err)
	modelID, err := store.InsertModel(ctx, "Logo 600")
	require.NoError(t, err)

	start := time.Date(2021, 6, 5, 10, 0, 0, 0, time.UTC)
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	var logID int64
	for i, used := range []int{1500, 200, 1600} {
		id, err := tx.InsertCycle(ctx, &models.ChargeCycleRecord{
			Timestamp: start.Add(time.Duration(i) * 30 * time.Minute),
			BatteryID: batteryID, ModelID: modelID, Capacity: 2200, Used: used, Duration: 300,
		})
		require.NoError(t, err)
		if i == 0 {
			logID = id
		}
	}
	require.NoError(t, tx.InsertTelemetryLines(ctx, logID, []models.TelemetryLogLine{
		{Timestamp: start, Headspeed: 0},
		{Timestamp: start.Add(time.Second), Headspeed: 1500},
		{Timestamp: start.Add(3 * time.Second), Headspeed: 1500},
	}))
	_, err = tx.SetModelTypeIfUnset(ctx, modelID, models.DeviceMultirotor)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	svc := NewService(store)

	gear, err := svc.Gear(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, gear.Models, 1)
	assert.Equal(t, "multirotor.png", gear.Models[0].ThumbID)
	assert.Equal(t, 2, gear.Models[0].Cycles, "cycles using a quarter of capacity or less are not flights")
	require.Len(t, gear.Batteries, 1)

	all, err := svc.Cycles(ctx, models.CycleFilter{AllCycles: true})
	require.NoError(t, err)
	assert.Equal(t, 3, all.Totals.Cycles)
	assert.Equal(t, 1, all.Totals.Sessions)

	info, err := svc.ModelInfo(ctx, modelID)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Cycles)
	assert.Equal(t, "00:10:00", info.FlightTime)
	require.NotNil(t, info.FirstCycle)
	assert.Equal(t, start, *info.FirstCycle)
	assert.Equal(t, start.Add(time.Hour), *info.LastCycle)
	assert.NotEmpty(t, info.LastFlown)

	view, err := svc.Telemetry(ctx, logID)
	require.NoError(t, err)
	require.Len(t, view.Data, 2)
	assert.Equal(t, start.Add(time.Second), view.Start)
	assert.Equal(t, 1.0, view.Data[1].Sec)

	weeks, err := svc.Weeks(ctx, models.CycleFilter{AllCycles: true}, GroupByModel)
	require.NoError(t, err)
	assert.Len(t, weeks, 52)
}

func sessions(cycles []models.Cycle) []int {
	out := make([]int, len(cycles))
	for i, c := range cycles {
		out[i] = c.Session
	}
	return out
}
