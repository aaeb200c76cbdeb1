// Package importer runs the discovery, parsing, matching and transactional
// write pipeline for one controller root.
package importer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vbc-logbook/backend/internal/discovery"
	"github.com/vbc-logbook/backend/internal/matcher"
	"github.com/vbc-logbook/backend/internal/models"
	"github.com/vbc-logbook/backend/internal/parser"
)

var (
	// ErrLogDirUnreadable is returned before any write when <root>/log cannot
	// be listed.
	ErrLogDirUnreadable = errors.New("log directory unreadable")
	// ErrNotConnected is returned by RunFrom when no root is available.
	ErrNotConnected = errors.New("controller not connected")
)

// Status strings published on the progress channel.
const (
	StatusReadingDirs    = "Reading directory structure..."
	StatusReadingModel   = "Reading logs for model: %s"
	StatusReadingBattery = "Reading logs for battery: %s"
	StatusImporting      = "Importing for battery: %s"
	StatusAborted        = "Import aborted!"
	StatusDone           = "Imported all done..."
	StatusNotConnected   = "VControl not connected"
)

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(im *Importer) {
		if logger != nil {
			im.logger = logger
		}
	}
}

// WithParseWorkers bounds how many model file sets are parsed at once.
func WithParseWorkers(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.workers = n
		}
	}
}

// WithRegistry replaces the default file format registry.
func WithRegistry(registry *parser.Registry) Option {
	return func(im *Importer) {
		im.registry = registry
	}
}

// Importer imports one controller root into a Backend.
type Importer struct {
	backend  Backend
	registry *parser.Registry
	scanner  *discovery.Scanner
	logger   *zap.Logger
	workers  int

	vbar      *parser.VBarParser
	telemetry *parser.TelemetryParser
	gps       *parser.GPSParser
	cycles    *parser.ChargeCycleParser
}

// New creates an importer writing to backend.
func New(backend Backend, opts ...Option) *Importer {
	im := &Importer{
		backend:   backend,
		logger:    zap.NewNop(),
		workers:   runtime.NumCPU(),
		vbar:      parser.NewVBarParser(),
		telemetry: parser.NewTelemetryParser(),
		gps:       parser.NewGPSParser(),
		cycles:    parser.NewChargeCycleParser(),
	}
	for _, opt := range opts {
		opt(im)
	}
	if im.registry == nil {
		im.registry = parser.NewRegistry()
	}
	im.logger = im.logger.Named("importer")
	im.scanner = discovery.NewScanner(im.registry, im.logger)
	return im
}

// RunFrom resolves the root with provider and runs the import. Without a
// root it publishes a completed "not connected" status.
func (im *Importer) RunFrom(ctx context.Context, provider RootProvider, progress chan<- models.ImportStatus) (*models.ImportSummary, error) {
	root, ok := "", false
	if provider != nil {
		root, ok = provider()
	}
	if !ok {
		newProgress(progress).abort(StatusNotConnected)
		return nil, ErrNotConnected
	}
	return im.Run(ctx, root, progress)
}

// Run imports everything under root in a single transaction. Any storage
// failure or cancellation rolls back the whole run.
func (im *Importer) Run(ctx context.Context, root string, progress chan<- models.ImportStatus) (*models.ImportSummary, error) {
	started := time.Now()
	p := newProgress(progress)
	p.report(StatusReadingDirs, phaseDiscovery.from)

	found := im.scanner.Scan(root)
	if found.LogDirErr != nil {
		p.abort(StatusAborted)
		return nil, fmt.Errorf("%w: %w", ErrLogDirUnreadable, found.LogDirErr)
	}
	if found.BatteryDirErr != nil {
		im.logger.Warn("battery directory unreadable, no charge cycles to import", zap.Error(found.BatteryDirErr))
	}
	p.report(StatusReadingDirs, phaseDiscovery.to)

	summary := &models.ImportSummary{
		ModelFileSets:   len(found.ModelFileSets),
		BatteryFileSets: len(found.BatteryFileSets),
	}

	sessions, err := im.parseSessions(ctx, found.ModelFileSets, p)
	if err != nil {
		return nil, im.fail(p, err)
	}
	summary.Sessions = len(sessions)

	records, err := im.parseBatteries(ctx, found.BatteryFileSets, p)
	if err != nil {
		return nil, im.fail(p, err)
	}
	summary.Records = len(records)

	if err := im.write(ctx, found.BatteryFileSets, records, sessions, summary, p); err != nil {
		return nil, im.fail(p, err)
	}

	summary.DurationMs = time.Since(started).Milliseconds()
	p.complete(StatusDone)
	im.logger.Info("import finished",
		zap.String("root", root),
		zap.Int("sessions", summary.Sessions),
		zap.Int("records", summary.Records),
		zap.Int("matched", summary.Matched),
		zap.Int("imported", summary.Imported),
		zap.Int("skipped", summary.Skipped),
		zap.Int64("durationMs", summary.DurationMs),
	)
	return summary, nil
}

func (im *Importer) fail(p *progress, err error) error {
	p.abort(StatusAborted)
	im.logger.Error("import aborted", zap.Error(err))
	return err
}

// parseSessions parses model file sets in parallel. The result keeps
// discovery order and drops file sets without a session.
func (im *Importer) parseSessions(ctx context.Context, sets []models.ModelLogFileSet, p *progress) ([]*models.FlightSession, error) {
	results := make([]*models.FlightSession, len(sets))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.workers)
	for i, set := range sets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = im.parseSession(set)
			n := done.Add(1)
			p.report(fmt.Sprintf(StatusReadingModel, set.Model), phaseModels.at(int(n), len(sets)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sessions := make([]*models.FlightSession, 0, len(results))
	for _, s := range results {
		if s != nil {
			sessions = append(sessions, s)
		}
	}
	return sessions, nil
}

func (im *Importer) parseSession(set models.ModelLogFileSet) *models.FlightSession {
	eventPath := filepath.Join(set.Directory, set.EventLog)
	event, perrs, err := im.vbar.Parse(eventPath)
	if err != nil {
		im.logger.Warn("skipping event log", zap.String("file", eventPath), zap.Error(err))
		return nil
	}
	im.logParseErrors(im.vbar.Name(), eventPath, perrs)
	if event == nil {
		im.logger.Debug("no session in event log", zap.String("file", eventPath))
		return nil
	}

	session := &models.FlightSession{FileSet: set, Event: event}

	if set.TelemetryLog != "" {
		path := filepath.Join(set.Directory, set.TelemetryLog)
		lines, perrs, err := im.telemetry.Parse(path, event.Start)
		if err != nil {
			im.logger.Warn("skipping telemetry log", zap.String("file", path), zap.Error(err))
		} else {
			im.logParseErrors(im.telemetry.Name(), path, perrs)
			for i := range lines {
				lines[i].Model = event.Model
			}
			session.Telemetry = lines
		}
	}

	if set.GpsLog != "" {
		path := filepath.Join(set.Directory, set.GpsLog)
		lines, perrs, err := im.gps.Parse(path, event.Start)
		if err != nil {
			im.logger.Warn("skipping gps log", zap.String("file", path), zap.Error(err))
		} else {
			im.logParseErrors(im.gps.Name(), path, perrs)
			for i := range lines {
				lines[i].Model = event.Model
			}
			session.Gps = lines
		}
	}
	return session
}

func (im *Importer) parseBatteries(ctx context.Context, sets []models.BatteryLogFileSet, p *progress) ([]models.ChargeCycleRecord, error) {
	var records []models.ChargeCycleRecord
	for i, set := range sets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.report(fmt.Sprintf(StatusReadingBattery, set.Name), phaseBatteries.at(i, len(sets)))

		recs, perrs, err := im.cycles.Parse(set.LogPath)
		if err != nil {
			im.logger.Warn("skipping battery log", zap.String("file", set.LogPath), zap.Error(err))
			continue
		}
		im.logParseErrors(im.cycles.Name(), set.LogPath, perrs)
		for j := range recs {
			recs[j].BatteryName = set.Name
		}
		records = append(records, recs...)
	}
	return records, nil
}

func (im *Importer) logParseErrors(parserName, file string, perrs []*models.ParseError) {
	for _, pe := range perrs {
		im.logger.Debug("skipped line",
			zap.String("parser", parserName),
			zap.String("file", file),
			zap.Int("line", pe.Line),
			zap.String("reason", pe.Reason),
		)
	}
}

func (im *Importer) write(ctx context.Context, batteries []models.BatteryLogFileSet, records []models.ChargeCycleRecord,
	sessions []*models.FlightSession, summary *models.ImportSummary, p *progress) (err error) {
	batch, err := im.backend.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting import: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := batch.Rollback(); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("rolling back: %w", rbErr))
			}
		}
	}()

	names := make([]string, 0, len(batteries))
	for _, b := range batteries {
		names = append(names, b.Name)
	}
	if summary.CreatedBatteries, err = resolveBatteries(ctx, batch, names, records); err != nil {
		return err
	}
	if summary.CreatedModels, err = resolveModels(ctx, batch, records); err != nil {
		return err
	}

	m := matcher.New(sessions)
	summary.Matched = m.MatchAll(records)
	for i := range records {
		if records[i].Session == nil {
			im.logger.Debug("charge cycle without flight session",
				zap.String("battery", records[i].BatteryName),
				zap.String("model", records[i].ModelName),
				zap.Time("date", records[i].Timestamp),
				zap.Int("modelSessions", m.Sessions(records[i].ModelName)),
			)
		}
	}

	for i := range records {
		if err = ctx.Err(); err != nil {
			return err
		}
		rec := &records[i]
		p.report(fmt.Sprintf(StatusImporting, rec.BatteryName), phaseImport.at(i, len(records)))
		if err = importRecord(ctx, batch, rec, summary); err != nil {
			return err
		}
	}

	if err = batch.Commit(); err != nil {
		return fmt.Errorf("committing import: %w", err)
	}
	return nil
}

func importRecord(ctx context.Context, batch Batch, rec *models.ChargeCycleRecord, summary *models.ImportSummary) error {
	date := parser.FormatTimestamp(rec.Timestamp)
	exists, err := batch.CycleExists(ctx, rec.BatteryID, date)
	if err != nil {
		return err
	}
	if exists {
		summary.Skipped++
		return nil
	}

	logID, err := batch.InsertCycle(ctx, rec)
	if err != nil {
		return err
	}
	summary.Imported++

	s := rec.Session
	if s == nil {
		return nil
	}
	if err := batch.InsertEventLines(ctx, logID, s.Event.Lines); err != nil {
		return err
	}
	summary.EventLines += len(s.Event.Lines)
	if err := batch.InsertTelemetryLines(ctx, logID, s.Telemetry); err != nil {
		return err
	}
	summary.TelemetryLines += len(s.Telemetry)
	if err := batch.InsertGpsLines(ctx, logID, s.Gps); err != nil {
		return err
	}
	summary.GpsLines += len(s.Gps)

	if deviceType, ok := matcher.DeviceType(s); ok && rec.ModelID != 0 {
		if _, err := batch.SetModelTypeIfUnset(ctx, rec.ModelID, deviceType); err != nil {
			return err
		}
	}
	return nil
}
