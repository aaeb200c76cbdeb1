// manager_test.go - Tests for the import job manager
package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbc-logbook/backend/internal/importer"
	"github.com/vbc-logbook/backend/internal/models"
)

type fakeImporter struct {
	release  chan struct{}
	err      error
	panics   bool
	capacity int
}

func (f *fakeImporter) RunFrom(ctx context.Context, _ importer.RootProvider, progress chan<- models.ImportStatus) (*models.ImportSummary, error) {
	f.capacity = cap(progress)
	progress <- models.ImportStatus{Status: importer.StatusReadingDirs}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.panics {
		panic("boom")
	}
	if f.err != nil {
		return nil, f.err
	}
	return &models.ImportSummary{Imported: 2}, nil
}

func waitDone(t *testing.T, m *Manager, id string) Job {
	t.Helper()
	var job Job
	require.Eventually(t, func() bool {
		var err error
		job, err = m.Get(id)
		return err == nil && job.Done()
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestManager_Complete(t *testing.T) {
	m := NewManager(&fakeImporter{}, importer.StaticRoot("/"), nil)

	job, err := m.Start(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)

	done := waitDone(t, m, job.ID)
	assert.Equal(t, models.ImportComplete, done.State)
	assert.True(t, done.Status.Completed)
	assert.Equal(t, importer.StatusDone, done.Status.Status)
	assert.Equal(t, 2, done.Summary.Imported)
	assert.NotNil(t, done.CompletedAt)
	assert.Equal(t, importer.StatusReadingDirs, done.History[0].Status)
	assert.False(t, m.Running())

	latest, ok := m.Latest()
	assert.True(t, ok)
	assert.Equal(t, job.ID, latest.ID)
}

func TestManager_ProgressBuffer(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want int
	}{
		{"default", nil, DefaultProgressBuffer},
		{"configured", []Option{WithProgressBuffer(256)}, 256},
		{"non-positive keeps default", []Option{WithProgressBuffer(0)}, DefaultProgressBuffer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeImporter{}
			m := NewManager(fake, importer.StaticRoot("/"), nil, tt.opts...)

			job, err := m.Start(context.Background())
			require.NoError(t, err)
			waitDone(t, m, job.ID)
			assert.Equal(t, tt.want, fake.capacity)
		})
	}
}

func TestManager_OneAtATime(t *testing.T) {
	fake := &fakeImporter{release: make(chan struct{})}
	m := NewManager(fake, importer.StaticRoot("/"), nil)

	first, err := m.Start(context.Background())
	require.NoError(t, err)

	running, err := m.Start(context.Background())
	assert.True(t, errors.Is(err, ErrImportRunning))
	assert.Equal(t, first.ID, running.ID)

	close(fake.release)
	waitDone(t, m, first.ID)

	second, err := m.Start(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	waitDone(t, m, second.ID)
}

func TestManager_Aborted(t *testing.T) {
	t.Run("error", func(t *testing.T) {
		m := NewManager(&fakeImporter{err: errors.New("disk full")}, nil, nil)
		job, err := m.Start(context.Background())
		require.NoError(t, err)

		done := waitDone(t, m, job.ID)
		assert.Equal(t, models.ImportAborted, done.State)
		assert.Equal(t, importer.StatusAborted, done.Status.Status)
		assert.Equal(t, "disk full", done.Error)
	})

	t.Run("panic", func(t *testing.T) {
		m := NewManager(&fakeImporter{panics: true}, nil, nil)
		job, err := m.Start(context.Background())
		require.NoError(t, err)

		done := waitDone(t, m, job.ID)
		assert.Equal(t, models.ImportAborted, done.State)
		assert.Contains(t, done.Error, "boom")
		assert.False(t, m.Running())
	})

	t.Run("cancel", func(t *testing.T) {
		m := NewManager(&fakeImporter{release: make(chan struct{})}, nil, nil)
		job, err := m.Start(context.Background())
		require.NoError(t, err)
		require.NoError(t, m.Cancel(job.ID))

		done := waitDone(t, m, job.ID)
		assert.Equal(t, models.ImportAborted, done.State)
		assert.Equal(t, context.Canceled.Error(), done.Error)
	})

	t.Run("request context does not cancel the job", func(t *testing.T) {
		fake := &fakeImporter{release: make(chan struct{})}
		m := NewManager(fake, nil, nil)
		ctx, cancel := context.WithCancel(context.Background())
		job, err := m.Start(ctx)
		require.NoError(t, err)
		cancel()
		close(fake.release)

		done := waitDone(t, m, job.ID)
		assert.Equal(t, models.ImportComplete, done.State)
	})
}

func TestManager_Get(t *testing.T) {
	m := NewManager(&fakeImporter{}, nil, nil)
	_, err := m.Get("nope")
	assert.True(t, errors.Is(err, ErrJobNotFound))
	assert.True(t, errors.Is(m.Cancel("nope"), ErrJobNotFound))

	_, ok := m.Latest()
	assert.False(t, ok)
}
