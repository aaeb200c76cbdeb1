// controller_tree.go - Fixture controller directory trees for tests
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TelemetryHeader is the default telemetry header written by the controller.
const TelemetryHeader = "Date;I(A);U(V);(Q)mAh;Headspeed(rpm);PWM(%)"

// GPSHeader is the GPS header as written by the controller. Its column names
// do not match the data order.
const GPSHeader = "Time;Speed;Height;Lat;Lon"

// ControllerTree is a temporary <root>/log + <root>/battery layout.
type ControllerTree struct {
	t    testing.TB
	Root string
}

// NewControllerTree creates an empty controller tree under t.TempDir().
func NewControllerTree(t testing.TB) *ControllerTree {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{"log", "battery"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			t.Fatalf("Failed to create %s dir: %v", dir, err)
		}
	}
	return &ControllerTree{t: t, Root: root}
}

// WriteFile writes content at a path relative to the tree root.
func (c *ControllerTree) WriteFile(rel string, content string) string {
	c.t.Helper()
	path := filepath.Join(c.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		c.t.Fatalf("Failed to create dir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		c.t.Fatalf("Failed to write %s: %v", rel, err)
	}
	return path
}

// AddModelFile writes log/<modelDir>/<filename>.
func (c *ControllerTree) AddModelFile(modelDir, filename, content string) string {
	c.t.Helper()
	return c.WriteFile(filepath.Join("log", modelDir, filename), content)
}

// AddBattery writes battery/<dir>/name (NUL padded like the controller does)
// and battery/<dir>/log.csv with the given rows.
func (c *ControllerTree) AddBattery(dir, name string, rows ...string) {
	c.t.Helper()
	c.WriteFile(filepath.Join("battery", dir, "name"), name+"\x00\x00\x00\x00")
	c.WriteFile(filepath.Join("battery", dir, "log.csv"), strings.Join(rows, "\r\n")+"\r\n")
}

// EventLog renders an event log. A zero end omits the end marker.
func EventLog(prefix, model string, start, end time.Time, lines ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Start -- %s -- %s -- %s\r\n", prefix, model, start.Format("02.01.2006"), start.Format("15:04:05"))
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\r\n")
	}
	if !end.IsZero() {
		fmt.Fprintf(&b, "%s Logfile End -- %s -- %s\r\n", prefix, end.Format("02.01.2006"), end.Format("15:04:05"))
	}
	return b.String()
}

// EventLine renders one HH:MM:SS;severity;text event line.
func EventLine(ts time.Time, severity int, text string) string {
	return fmt.Sprintf("%s;%d;%s", ts.Format("15:04:05"), severity, text)
}

// TelemetryLine renders one row matching TelemetryHeader.
func TelemetryLine(ts time.Time, current, voltage float64, used, headspeed, pwm int) string {
	return fmt.Sprintf("%s;%.1f;%.1f;%d;%d;%d", ts.Format("15:04:05"), current, voltage, used, headspeed, pwm)
}

// GPSLine renders one time;lat;lon;height;speed row.
func GPSLine(ts time.Time, lat, lon float64, height, speed int) string {
	return fmt.Sprintf("%s;%.6f;%.6f;%d;%d", ts.Format("15:04:05"), lat, lon, height, speed)
}

// CSV joins a header and rows with CRLF line endings.
func CSV(header string, rows ...string) string {
	return header + "\r\n" + strings.Join(rows, "\r\n") + "\r\n"
}

// ChargeCycle renders one charger log.csv row.
func ChargeCycle(ts time.Time, capacity, used, duration int, model string) string {
	return fmt.Sprintf("%s;%d;%d;%d;3.7;42.5;3.9;%s;", ts.Format("02.01.2006 15:04:05"), capacity, used, duration, model)
}
