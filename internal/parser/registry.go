package parser

import (
	"strings"

	"github.com/vbc-logbook/backend/internal/models"
)

// FileKind classifies a file inside a controller log tree.
type FileKind string

const (
	KindEventLog  FileKind = "event"
	KindTelemetry FileKind = "telemetry"
	KindGPS       FileKind = "gps"
)

// Format describes one recognised filename suffix.
type Format struct {
	Suffix     string
	Kind       FileKind
	DeviceType models.DeviceType // only set for event logs
}

// Registry holds the known log file formats in lookup order.
type Registry struct {
	formats []Format
}

// NewRegistry returns a registry with the controller and vendor formats.
// Telemetry suffixes are listed in the order discovery probes them.
func NewRegistry() *Registry {
	return &Registry{
		formats: []Format{
			{Suffix: "_vbar.log", Kind: KindEventLog, DeviceType: models.DeviceHelicopter},
			{Suffix: "_vcp.log", Kind: KindEventLog, DeviceType: models.DeviceMultirotor},
			{Suffix: "_vplane.log", Kind: KindEventLog, DeviceType: models.DeviceAirplane},
			{Suffix: "_vbasic.log", Kind: KindEventLog, DeviceType: models.DeviceVBasic},
			{Suffix: "_ui.csv", Kind: KindTelemetry},
			{Suffix: "_kon.csv", Kind: KindTelemetry},
			{Suffix: "_sco.csv", Kind: KindTelemetry},
			{Suffix: "_yge.csv", Kind: KindTelemetry},
			{Suffix: "_gps.csv", Kind: KindGPS},
		},
	}
}

// Register adds a new format to the registry.
func (r *Registry) Register(f Format) {
	r.formats = append(r.formats, f)
}

// FindFormat returns the format whose suffix ends filename.
func (r *Registry) FindFormat(filename string) (Format, bool) {
	for _, f := range r.formats {
		if strings.HasSuffix(filename, f.Suffix) {
			return f, true
		}
	}
	return Format{}, false
}

// Suffixes returns the suffixes of one kind in registration order.
func (r *Registry) Suffixes(kind FileKind) []string {
	out := make([]string, 0, len(r.formats))
	for _, f := range r.formats {
		if f.Kind == kind {
			out = append(out, f.Suffix)
		}
	}
	return out
}

// DeviceTypeFor derives the device type from an event log filename.
func (r *Registry) DeviceTypeFor(filename string) (models.DeviceType, bool) {
	f, ok := r.FindFormat(filename)
	if !ok || f.Kind != KindEventLog {
		return "", false
	}
	return f.DeviceType, true
}
