package importer

import (
	"sync"
	"time"

	"github.com/vbc-logbook/backend/internal/models"
)

// phase is a slice of the 0-100 progress range.
type phase struct {
	from, to float64
}

var (
	phaseDiscovery = phase{0, 5}
	phaseModels    = phase{5, 40}
	phaseBatteries = phase{40, 50}
	phaseImport    = phase{50, 100}
)

// at maps step done of total into the phase range.
func (p phase) at(done, total int) float64 {
	if total <= 0 {
		return p.to
	}
	if done > total {
		done = total
	}
	return p.from + (p.to-p.from)*float64(done)/float64(total)
}

// progress publishes ImportStatus values. Sends never block and the
// published percent never goes down.
type progress struct {
	mu      sync.Mutex
	ch      chan<- models.ImportStatus
	percent float64
	last    models.ImportStatus
}

func newProgress(ch chan<- models.ImportStatus) *progress {
	return &progress{ch: ch}
}

func (p *progress) report(status string, percent float64) {
	p.send(status, percent, false)
}

func (p *progress) complete(status string) {
	p.send(status, 100, true)
}

// abort ends the run at the current percent.
func (p *progress) abort(status string) {
	p.send(status, 0, true)
}

func (p *progress) send(status string, percent float64, completed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if percent < p.percent {
		percent = p.percent
	}
	if percent > 100 {
		percent = 100
	}
	p.percent = percent
	p.last = models.ImportStatus{
		Completed: completed,
		Status:    status,
		Percent:   percent,
		Timestamp: time.Now().UTC(),
	}
	if p.ch == nil {
		return
	}
	select {
	case p.ch <- p.last:
	default:
	}
}

// Last returns the most recent status.
func (p *progress) Last() models.ImportStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
