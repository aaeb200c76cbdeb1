// parsers_test.go - Tests for event, telemetry, GPS and charge cycle log parsers
package parser

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// createTestFile creates a temporary file with given content
func createTestFile(t *testing.T, content string) string {
	return createTestFileWithName(t, "test.log", content)
}

// createTestFileWithName creates a temporary file with a specific name
func createTestFileWithName(t *testing.T, name string, content string) string {
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, name)

	err := os.WriteFile(filePath, []byte(content), 0644)
	if err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	return filePath
}

func date(year int, month time.Month, day, hour, min, sec int) time.Time {
	return time.Date(year, month, day, hour, min, sec, 0, time.UTC)
}

// ============ Event Log Parser Tests ============

func TestVBarParser_Parse(t *testing.T) {
	parser := NewVBarParser()

	t.Run("complete session", func(t *testing.T) {
		content := "VBar Start -- Logo 600 -- 14.06.2020 -- 10:15:00\n" +
			"10:15:01;0;Motor armed\n" +
			"10:20:30;2;Low voltage\n" +
			"garbage line\n" +
			"10:25:00;0;Motor off\n" +
			"VBar Logfile End -- 14.06.2020 -- 10:25:05\n" +
			"10:30:00;0;after end\n"

		filePath := createTestFileWithName(t, "0001_vbar.log", content)
		log, errs, err := parser.Parse(filePath)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if log == nil {
			t.Fatal("Expected a session, got nil")
		}
		if log.Model != "Logo 600" {
			t.Errorf("Expected model 'Logo 600', got %q", log.Model)
		}
		if !log.Start.Equal(date(2020, 6, 14, 10, 15, 0)) {
			t.Errorf("Unexpected start %v", log.Start)
		}
		if !log.End.Equal(date(2020, 6, 14, 10, 25, 5)) {
			t.Errorf("Unexpected end %v", log.End)
		}
		if !log.Complete {
			t.Error("Expected session to be complete")
		}
		if len(log.Lines) != 5 {
			t.Fatalf("Expected 5 lines (start, 3 data, end), got %d", len(log.Lines))
		}
		if len(errs) != 1 {
			t.Errorf("Expected 1 parse error, got %d", len(errs))
		}
		if log.Lines[2].Severity != 2 {
			t.Errorf("Expected severity 2, got %d", log.Lines[2].Severity)
		}
		if log.Lines[2].Message != "10:20:30;2;Low voltage" {
			t.Errorf("Unexpected message %q", log.Lines[2].Message)
		}
		if log.Lines[1].OriginalFilename != "0001_vbar.log" {
			t.Errorf("Unexpected filename %q", log.Lines[1].OriginalFilename)
		}
		if log.Lines[0].Severity != 0 || log.Lines[4].Severity != 0 {
			t.Error("Expected markers to carry severity 0")
		}
	})

	t.Run("missing end marker uses last line", func(t *testing.T) {
		content := "VCopter Start -- Quad -- 01.05.2021 -- 09:00:00\n" +
			"09:00:10;0;armed\n" +
			"09:12:40;1;warning\n"

		filePath := createTestFile(t, content)
		log, _, err := parser.Parse(filePath)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if log == nil {
			t.Fatal("Expected a session, got nil")
		}
		if log.Complete {
			t.Error("Expected session without end marker to be incomplete")
		}
		if !log.End.Equal(date(2021, 5, 1, 9, 12, 40)) {
			t.Errorf("Expected end at last parsed line, got %v", log.End)
		}
	})

	t.Run("start marker only", func(t *testing.T) {
		filePath := createTestFile(t, "VPlane Start -- Glider -- 01.05.2021 -- 09:00:00\n")
		log, _, err := parser.Parse(filePath)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if log == nil {
			t.Fatal("Expected a session, got nil")
		}
		if !log.End.Equal(log.Start) {
			t.Errorf("Expected end == start, got %v", log.End)
		}
	})

	t.Run("day rollover", func(t *testing.T) {
		content := "VBar Start -- Logo 600 -- 31.12.2020 -- 23:59:50\n" +
			"23:59:58;0;before midnight\n" +
			"00:00:02;0;after midnight\n"

		filePath := createTestFile(t, content)
		log, _, err := parser.Parse(filePath)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if len(log.Lines) != 3 {
			t.Fatalf("Expected 3 lines, got %d", len(log.Lines))
		}
		before := log.Lines[1].Timestamp
		after := log.Lines[2].Timestamp
		if !before.Equal(date(2020, 12, 31, 23, 59, 58)) {
			t.Errorf("Unexpected timestamp %v", before)
		}
		if !after.Equal(date(2021, 1, 1, 0, 0, 2)) {
			t.Errorf("Unexpected timestamp %v", after)
		}
		if after.Sub(before) != 4*time.Second {
			t.Errorf("Expected 4s between lines, got %v", after.Sub(before))
		}
	})

	t.Run("no start marker", func(t *testing.T) {
		filePath := createTestFile(t, "10:00:00;0;orphan line\n10:00:01;0;another\n")
		log, _, err := parser.Parse(filePath)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if log != nil {
			t.Error("Expected nil session for log without start marker")
		}
	})

	t.Run("leading blank lines", func(t *testing.T) {
		filePath := createTestFile(t, "\n\nVBasic Start -- Trainer -- 02.03.2022 -- 12:00:00\n12:00:01;0;x\n")
		log, _, err := parser.Parse(filePath)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if log == nil || log.Model != "Trainer" {
			t.Fatalf("Expected session for model Trainer, got %+v", log)
		}
	})

	t.Run("latin-1 text and carriage returns", func(t *testing.T) {
		content := "VBar Start -- Sch\xe4fer -- 01.02.2021 -- 08:00:00\r08:00:01;1;Dr\xfccken\r"
		filePath := createTestFile(t, content)
		log, _, err := parser.Parse(filePath)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if log == nil {
			t.Fatal("Expected a session, got nil")
		}
		if log.Model != "Schäfer" {
			t.Errorf("Expected decoded model name, got %q", log.Model)
		}
		if len(log.Lines) != 2 || log.Lines[1].Message != "08:00:01;1;Drücken" {
			t.Errorf("Unexpected lines %+v", log.Lines)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := parser.Parse(filepath.Join(t.TempDir(), "missing_vbar.log"))
		if err == nil {
			t.Error("Expected error for missing file")
		}
	})
}

// ============ Telemetry Parser Tests ============

func TestTelemetryParser_Parse(t *testing.T) {
	parser := NewTelemetryParser()
	start := date(2020, 1, 1, 9, 58, 0)

	t.Run("basic rows", func(t *testing.T) {
		content := "Date;I(A);U(V);(Q)mAh;Headspeed(rpm);PWM(%)\n" +
			"10:00:00;1.0;11.0;50;1000;20\n" +
			"10:00:05;1.1;11.1;55;1050;22\n"

		filePath := createTestFileWithName(t, "0001_ui.csv", content)
		lines, errs, err := parser.Parse(filePath, start)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if len(errs) != 0 {
			t.Errorf("Expected no parse errors, got %v", errs)
		}
		if len(lines) != 2 {
			t.Fatalf("Expected 2 lines, got %d", len(lines))
		}
		if !lines[0].Timestamp.Equal(date(2020, 1, 1, 10, 0, 0)) {
			t.Errorf("Unexpected timestamp %v", lines[0].Timestamp)
		}
		if !lines[1].Timestamp.Equal(date(2020, 1, 1, 10, 0, 5)) {
			t.Errorf("Unexpected timestamp %v", lines[1].Timestamp)
		}
		if lines[1].Current != 1.1 || lines[1].Voltage != 11.1 || lines[1].UsedCapacity != 55 ||
			lines[1].Headspeed != 1050 || lines[1].PWM != 22 || lines[1].Temp != 0 {
			t.Errorf("Unexpected values %+v", lines[1])
		}
		if lines[0].OriginalFilename != "0001_ui.csv" {
			t.Errorf("Unexpected filename %q", lines[0].OriginalFilename)
		}
	})

	t.Run("columns in any order with temperature", func(t *testing.T) {
		content := "PWM(%);Temp(C);Headspeed(rpm);Date;U(V);I(A);(Q)mAh\n" +
			"30;45;1500;11:00:00;22.2;40.5;900\n"

		filePath := createTestFile(t, content)
		lines, _, err := parser.Parse(filePath, start)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if len(lines) != 1 {
			t.Fatalf("Expected 1 line, got %d", len(lines))
		}
		l := lines[0]
		if l.PWM != 30 || l.Temp != 45 || l.Headspeed != 1500 || l.Voltage != 22.2 || l.Current != 40.5 || l.UsedCapacity != 900 {
			t.Errorf("Unexpected values %+v", l)
		}
	})

	t.Run("missing required column", func(t *testing.T) {
		content := "Date;I(A);U(V);(Q)mAh;Headspeed(rpm)\n10:00:00;1.0;11.0;50;1000\n"
		filePath := createTestFile(t, content)
		lines, _, err := parser.Parse(filePath, start)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if lines != nil {
			t.Errorf("Expected no telemetry, got %d lines", len(lines))
		}
	})

	t.Run("header only", func(t *testing.T) {
		filePath := createTestFile(t, "Date;I(A);U(V);(Q)mAh;Headspeed(rpm);PWM(%)\n")
		lines, _, err := parser.Parse(filePath, start)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if lines != nil {
			t.Errorf("Expected no telemetry, got %d lines", len(lines))
		}
	})

	t.Run("malformed rows are skipped", func(t *testing.T) {
		content := "Date;I(A);U(V);(Q)mAh;Headspeed(rpm);PWM(%)\n" +
			"xx:yy;1.0;11.0;50;1000;20\n" +
			"10:00:01;1.0\n" +
			"\n" +
			"10:00:02;1.0;11.0;50;1000;20\n"

		filePath := createTestFile(t, content)
		lines, errs, err := parser.Parse(filePath, start)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if len(lines) != 1 {
			t.Errorf("Expected 1 line, got %d", len(lines))
		}
		if len(errs) != 2 {
			t.Errorf("Expected 2 parse errors, got %d", len(errs))
		}
	})

	t.Run("day rollover", func(t *testing.T) {
		content := "Date;I(A);U(V);(Q)mAh;Headspeed(rpm);PWM(%)\n" +
			"23:59:58;1.0;11.0;50;1000;20\n" +
			"00:00:02;1.0;11.0;51;1000;20\n"

		filePath := createTestFile(t, content)
		lines, _, err := parser.Parse(filePath, start)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if len(lines) != 2 {
			t.Fatalf("Expected 2 lines, got %d", len(lines))
		}
		if !lines[1].Timestamp.Equal(date(2020, 1, 2, 0, 0, 2)) {
			t.Errorf("Expected rollover to next day, got %v", lines[1].Timestamp)
		}
		if lines[1].Timestamp.Before(lines[0].Timestamp) {
			t.Error("Expected non-decreasing timestamps")
		}
	})

	t.Run("rows after midnight of a late session", func(t *testing.T) {
		lateStart := date(2020, 1, 1, 23, 59, 58)
		content := "Date;I(A);U(V);(Q)mAh;Headspeed(rpm);PWM(%)\n" +
			"00:00:01;1.0;11.0;50;1000;20\n" +
			"00:00:05;1.0;11.0;51;1000;20\n"

		filePath := createTestFile(t, content)
		lines, _, err := parser.Parse(filePath, lateStart)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if len(lines) != 2 {
			t.Fatalf("Expected 2 lines, got %d", len(lines))
		}
		if !lines[0].Timestamp.Equal(date(2020, 1, 2, 0, 0, 1)) {
			t.Errorf("Expected first row on the next day, got %v", lines[0].Timestamp)
		}
		for _, l := range lines {
			if l.Timestamp.Before(lateStart) {
				t.Errorf("Row %v is before session start %v", l.Timestamp, lateStart)
			}
		}
	})
}

// ============ GPS Parser Tests ============

func TestGPSParser_Parse(t *testing.T) {
	parser := NewGPSParser()
	start := date(2021, 7, 3, 14, 0, 0)

	t.Run("fixed column order", func(t *testing.T) {
		content := "Time;Speed;Height;Lat;Lon\n" +
			"14:00:00;47.3769;8.5417;410;0\n" +
			"14:00:01;47.3770\n" +
			"14:00:02;47.3771;8.5419;415;12\n"

		filePath := createTestFileWithName(t, "0001_gps.csv", content)
		lines, errs, err := parser.Parse(filePath, start)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if len(lines) != 2 {
			t.Fatalf("Expected 2 lines, got %d", len(lines))
		}
		if len(errs) != 1 {
			t.Errorf("Expected 1 parse error, got %d", len(errs))
		}
		l := lines[1]
		if l.Latitude != 47.3771 || l.Longitude != 8.5419 || l.Height != 415 || l.Speed != 12 {
			t.Errorf("Unexpected values %+v", l)
		}
		if !l.Timestamp.Equal(date(2021, 7, 3, 14, 0, 2)) {
			t.Errorf("Unexpected timestamp %v", l.Timestamp)
		}
		if l.OriginalFilename != "0001_gps.csv" {
			t.Errorf("Unexpected filename %q", l.OriginalFilename)
		}
	})

	t.Run("day rollover", func(t *testing.T) {
		content := "Time;Lat;Lon;Height;Speed\n" +
			"23:59:59;1;2;3;4\n" +
			"00:00:01;1;2;3;4\n"
		filePath := createTestFile(t, content)
		lines, _, err := parser.Parse(filePath, start)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if !lines[1].Timestamp.Equal(date(2021, 7, 4, 0, 0, 1)) {
			t.Errorf("Expected rollover to next day, got %v", lines[1].Timestamp)
		}
	})

	t.Run("rows after midnight of a late session", func(t *testing.T) {
		lateStart := date(2020, 1, 1, 23, 59, 58)
		content := "Time;Lat;Lon;Height;Speed\n" +
			"00:00:01;1;2;3;4\n"
		filePath := createTestFile(t, content)
		lines, _, err := parser.Parse(filePath, lateStart)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if len(lines) != 1 {
			t.Fatalf("Expected 1 line, got %d", len(lines))
		}
		if !lines[0].Timestamp.Equal(date(2020, 1, 2, 0, 0, 1)) {
			t.Errorf("Expected fix on the next day, got %v", lines[0].Timestamp)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		filePath := createTestFile(t, "")
		lines, _, err := parser.Parse(filePath, start)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if lines != nil {
			t.Error("Expected no GPS data for empty file")
		}
	})
}

// ============ Charge Cycle Parser Tests ============

func TestChargeCycleParser_Parse(t *testing.T) {
	parser := NewChargeCycleParser()

	t.Run("discards unset clock and short rows", func(t *testing.T) {
		content := "01.01.2012 10:00:00;2200;1500;300;3.7;40.2;3.9;Logo 600\n" +
			"01.01.2020 10:00:00;2200;1500;300;3.7;40.2;3.9; Logo 600 ;extra\n" +
			"02.01.2020 11:30:00;5000;1000;120;3,8;12,5;;Trex 700\n" +
			"short;row\n" +
			"\n"

		filePath := createTestFileWithName(t, "log.csv", content)
		records, errs, err := parser.Parse(filePath)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("Expected 2 records, got %d", len(records))
		}
		if len(errs) != 2 {
			t.Errorf("Expected 2 parse errors, got %d", len(errs))
		}

		r := records[0]
		if !r.Timestamp.Equal(date(2020, 1, 1, 10, 0, 0)) {
			t.Errorf("Unexpected timestamp %v", r.Timestamp)
		}
		if r.ModelName != "Logo 600" {
			t.Errorf("Expected trimmed model name, got %q", r.ModelName)
		}
		if r.Capacity != 2200 || r.Used != 1500 || r.Duration != 300 ||
			r.MinVoltage != 3.7 || r.MaxAmpere != 40.2 || r.IdleVoltage != 3.9 {
			t.Errorf("Unexpected values %+v", r)
		}

		if records[1].MinVoltage != 3.8 || records[1].IdleVoltage != 0 {
			t.Errorf("Unexpected values %+v", records[1])
		}
	})

	t.Run("invalid calendar date", func(t *testing.T) {
		filePath := createTestFile(t, "31.02.2020 10:00:00;1;1;1;1;1;1;M\n")
		records, errs, err := parser.Parse(filePath)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if len(records) != 0 || len(errs) != 1 {
			t.Errorf("Expected rejected row, got %d records %d errors", len(records), len(errs))
		}
	})
}
