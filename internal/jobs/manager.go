// Package jobs runs imports in the background, one at a time.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/vbc-logbook/backend/internal/importer"
	"github.com/vbc-logbook/backend/internal/models"
)

// ErrImportRunning is returned by Start while another import is running.
var ErrImportRunning = errors.New("an import is already running")

// ErrJobNotFound is returned for unknown job ids.
var ErrJobNotFound = errors.New("import job not found")

const (
	eventStart    = "start"
	eventComplete = "complete"
	eventAbort    = "abort"
)

// Importer is the part of importer.Importer the manager needs.
type Importer interface {
	RunFrom(ctx context.Context, provider importer.RootProvider, progress chan<- models.ImportStatus) (*models.ImportSummary, error)
}

// Job is a snapshot of one import run.
type Job struct {
	ID          string                `json:"id"`
	State       models.ImportState    `json:"state"`
	Status      models.ImportStatus   `json:"status"`
	History     []models.ImportStatus `json:"history,omitempty"`
	Summary     *models.ImportSummary `json:"summary,omitempty"`
	Error       string                `json:"error,omitempty"`
	CreatedAt   time.Time             `json:"createdAt"`
	CompletedAt *time.Time            `json:"completedAt,omitempty"`
}

// Done reports whether the job reached a final state.
func (j Job) Done() bool {
	return j.State == models.ImportComplete || j.State == models.ImportAborted
}

type entry struct {
	job     Job
	machine *fsm.FSM
	cancel  context.CancelFunc
}

func (e *entry) snapshot() Job {
	j := e.job
	j.History = append([]models.ImportStatus(nil), e.job.History...)
	return j
}

// Manager tracks import jobs.
type Manager struct {
	mu       sync.RWMutex
	jobs     map[string]*entry
	order    []string
	running  string
	importer Importer
	roots    importer.RootProvider
	logger   *zap.Logger
	buffer   int
}

// DefaultProgressBuffer is the progress channel capacity of each job.
const DefaultProgressBuffer = 64

// Option configures a Manager.
type Option func(*Manager)

// WithProgressBuffer sets the progress channel capacity of each job.
func WithProgressBuffer(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.buffer = n
		}
	}
}

// NewManager creates a manager that imports from whatever root roots finds.
func NewManager(imp Importer, roots importer.RootProvider, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		jobs:     make(map[string]*entry),
		importer: imp,
		roots:    roots,
		logger:   logger.Named("jobs"),
		buffer:   DefaultProgressBuffer,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start launches an import in the background. The job outlives ctx's
// cancellation; use Cancel to stop it.
func (m *Manager) Start(ctx context.Context) (Job, error) {
	m.mu.Lock()
	if m.running != "" {
		running := m.jobs[m.running].snapshot()
		m.mu.Unlock()
		return running, ErrImportRunning
	}

	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e := m.newEntry(uuid.New().String(), cancel)
	m.jobs[e.job.ID] = e
	m.order = append(m.order, e.job.ID)
	m.running = e.job.ID
	job := e.snapshot()
	m.mu.Unlock()

	m.logger.Info("import job started", zap.String("job", shortID(job.ID)))
	go m.run(jobCtx, e)
	return job, nil
}

func (m *Manager) newEntry(id string, cancel context.CancelFunc) *entry {
	e := &entry{
		job: Job{
			ID:        id,
			State:     models.ImportPending,
			CreatedAt: time.Now().UTC(),
		},
		cancel: cancel,
	}
	e.machine = fsm.NewFSM(
		string(models.ImportPending),
		fsm.Events{
			{Name: eventStart, Src: []string{string(models.ImportPending)}, Dst: string(models.ImportRunning)},
			{Name: eventComplete, Src: []string{string(models.ImportRunning)}, Dst: string(models.ImportComplete)},
			{Name: eventAbort, Src: []string{string(models.ImportPending), string(models.ImportRunning)}, Dst: string(models.ImportAborted)},
		},
		fsm.Callbacks{
			"after_event": func(_ context.Context, ev *fsm.Event) {
				e.job.State = models.ImportState(ev.Dst)
				m.logger.Debug("import job state", zap.String("job", shortID(id)), zap.String("from", ev.Src), zap.String("to", ev.Dst))
			},
		},
	)
	return e
}

// transition fires ev on the job's state machine. Callers hold m.mu.
func (m *Manager) transition(e *entry, ev string) {
	if err := e.machine.Event(context.Background(), ev); err != nil {
		m.logger.Warn("invalid import job transition", zap.String("job", shortID(e.job.ID)), zap.String("event", ev), zap.Error(err))
	}
}

func (m *Manager) run(ctx context.Context, e *entry) {
	m.mu.Lock()
	m.transition(e, eventStart)
	m.mu.Unlock()

	summary, err := m.execute(ctx, e)
	m.finish(e, summary, err)
}

func (m *Manager) execute(ctx context.Context, e *entry) (summary *models.ImportSummary, err error) {
	progress := make(chan models.ImportStatus, m.buffer)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for st := range progress {
			m.record(e, st)
		}
	}()

	defer func() {
		close(progress)
		<-drained
		if r := recover(); r != nil {
			m.logger.Error("import job panicked", zap.String("job", shortID(e.job.ID)), zap.Any("panic", r))
			summary, err = nil, fmt.Errorf("import panicked: %v", r)
		}
	}()

	return m.importer.RunFrom(ctx, m.roots, progress)
}

func (m *Manager) record(e *entry, st models.ImportStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.job.Status = st
	e.job.History = append(e.job.History, st)
}

func (m *Manager) finish(e *entry, summary *models.ImportSummary, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	e.job.Summary = summary
	e.job.CompletedAt = &now
	if !e.job.Status.Completed {
		final := models.ImportStatus{Completed: true, Status: importer.StatusDone, Percent: 100, Timestamp: now}
		if err != nil {
			final.Status, final.Percent = importer.StatusAborted, e.job.Status.Percent
		}
		e.job.Status = final
		e.job.History = append(e.job.History, final)
	}

	if err != nil {
		e.job.Error = err.Error()
		m.transition(e, eventAbort)
		m.logger.Warn("import job aborted", zap.String("job", shortID(e.job.ID)), zap.Error(err))
	} else {
		m.transition(e, eventComplete)
		m.logger.Info("import job complete", zap.String("job", shortID(e.job.ID)), zap.Int("imported", summary.Imported))
	}

	e.cancel()
	if m.running == e.job.ID {
		m.running = ""
	}
}

// Get returns a snapshot of a job.
func (m *Manager) Get(id string) (Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return e.snapshot(), nil
}

// Latest returns the most recently started job.
func (m *Manager) Latest() (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.order) == 0 {
		return Job{}, false
	}
	return m.jobs[m.order[len(m.order)-1]].snapshot(), true
}

// Running reports whether an import is in progress.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running != ""
}

// Cancel stops a running job. The import rolls back.
func (m *Manager) Cancel(id string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	e.cancel()
	return nil
}

// Shutdown cancels every job.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.jobs {
		e.cancel()
	}
}

func shortID(id string) string {
	if len(id) < 8 {
		return id
	}
	return id[:8]
}
