// Package discovery enumerates the log file sets on a mounted controller.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/vbc-logbook/backend/internal/models"
	"github.com/vbc-logbook/backend/internal/parser"
)

const (
	logDirName      = "log"
	batteryDirName  = "battery"
	batteryLogName  = "log.csv"
	batteryNameFile = "name"
)

// Result holds everything found under one controller root. Either side may
// be empty with its error set while the other side is still populated.
type Result struct {
	ModelFileSets   []models.ModelLogFileSet
	BatteryFileSets []models.BatteryLogFileSet
	LogDirErr       error
	BatteryDirErr   error
}

// Scanner walks a controller root. It never writes to the tree.
type Scanner struct {
	registry *parser.Registry
	logger   *zap.Logger
}

// NewScanner creates a scanner. Nil arguments fall back to the default
// registry and a no-op logger.
func NewScanner(registry *parser.Registry, logger *zap.Logger) *Scanner {
	if registry == nil {
		registry = parser.NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{registry: registry, logger: logger.Named("discovery")}
}

// Scan is a convenience wrapper around a default Scanner.
func Scan(root string) *Result {
	return NewScanner(nil, nil).Scan(root)
}

// Scan enumerates <root>/log/<model>/ and <root>/battery/<dir>/. Output is
// sorted by directory entry name.
func (s *Scanner) Scan(root string) *Result {
	res := &Result{}
	res.ModelFileSets, res.LogDirErr = s.scanModels(filepath.Join(root, logDirName))
	res.BatteryFileSets, res.BatteryDirErr = s.scanBatteries(filepath.Join(root, batteryDirName))
	return res
}

func (s *Scanner) scanModels(logPath string) ([]models.ModelLogFileSet, error) {
	entries, err := os.ReadDir(logPath)
	if err != nil {
		return nil, fmt.Errorf("reading log dir %s: %w", logPath, err)
	}

	eventSuffixes := s.registry.Suffixes(parser.KindEventLog)
	telemetrySuffixes := s.registry.Suffixes(parser.KindTelemetry)
	gpsSuffixes := s.registry.Suffixes(parser.KindGPS)

	sets := make([]models.ModelLogFileSet, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(logPath, entry.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			s.logger.Warn("skipping unreadable model directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		modelName := strings.Replace(entry.Name(), "_", " ", 1)

		for _, file := range files {
			name := file.Name()
			suffix, ok := matchSuffix(name, eventSuffixes)
			if !ok {
				continue
			}
			deviceType, _ := s.registry.DeviceTypeFor(name)
			set := models.ModelLogFileSet{
				Model:      modelName,
				Directory:  dir,
				Number:     sequenceNumber(name, suffix),
				EventLog:   name,
				DeviceType: deviceType,
			}
			for _, ts := range telemetrySuffixes {
				// every candidate is checked, the last existing one wins
				if candidate := set.Number + ts; isRegularFile(filepath.Join(dir, candidate)) {
					set.TelemetryLog = candidate
				}
			}
			for _, gs := range gpsSuffixes {
				if candidate := set.Number + gs; isRegularFile(filepath.Join(dir, candidate)) {
					set.GpsLog = candidate
				}
			}
			sets = append(sets, set)
		}
	}

	s.logger.Debug("model log file sets found", zap.String("dir", logPath), zap.Int("count", len(sets)))
	return sets, nil
}

func (s *Scanner) scanBatteries(batteryPath string) ([]models.BatteryLogFileSet, error) {
	entries, err := os.ReadDir(batteryPath)
	if err != nil {
		return nil, fmt.Errorf("reading battery dir %s: %w", batteryPath, err)
	}

	sets := make([]models.BatteryLogFileSet, 0, len(entries))
	for _, entry := range entries {
		dir := filepath.Join(batteryPath, entry.Name())
		logPath := filepath.Join(dir, batteryLogName)
		if !isRegularFile(logPath) {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, batteryNameFile))
		if err != nil {
			s.logger.Warn("skipping battery without name file", zap.String("dir", dir), zap.Error(err))
			continue
		}
		name, err := parser.DecodeName(raw)
		if err != nil {
			s.logger.Warn("skipping battery with undecodable name", zap.String("dir", dir), zap.Error(err))
			continue
		}
		sets = append(sets, models.BatteryLogFileSet{
			Name:      name,
			Directory: dir,
			LogPath:   logPath,
		})
	}

	s.logger.Debug("battery log file sets found", zap.String("dir", batteryPath), zap.Int("count", len(sets)))
	return sets, nil
}

func matchSuffix(name string, suffixes []string) (string, bool) {
	for _, suffix := range suffixes {
		if strings.HasSuffix(name, suffix) {
			return suffix, true
		}
	}
	return "", false
}

// sequenceNumber is the filename up to its first underscore.
func sequenceNumber(name, suffix string) string {
	if i := strings.Index(name, "_"); i >= 0 {
		return name[:i]
	}
	return strings.TrimSuffix(name, suffix)
}

func isRegularFile(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode().IsRegular()
}
