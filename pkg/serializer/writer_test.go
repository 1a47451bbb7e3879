package serializer

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// checkRow mirrors the shape of a rendered diagnostic result row.
type checkRow struct {
	Test   string `json:"test" yaml:"test"`
	Gpu    string `json:"gpu" yaml:"gpu"`
	Result string `json:"result" yaml:"result"`
}

var sampleRows = []checkRow{
	{Test: "software", Gpu: "All", Result: "Pass"},
	{Test: "software", Gpu: "0", Result: "Fail"},
}

func TestWriter_SerializeJSON(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(FormatJSON, &buf)

	if err := writer.Serialize(context.Background(), sampleRows); err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	var result []checkRow
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("Failed to unmarshal JSON: %v", err)
	}

	if len(result) != 2 {
		t.Errorf("Expected 2 rows, got %d", len(result))
	}
	if result[0] != sampleRows[0] {
		t.Errorf("Unexpected row: %+v", result[0])
	}
}

func TestWriter_SerializeYAML(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(FormatYAML, &buf)

	if err := writer.Serialize(context.Background(), sampleRows); err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	var result []checkRow
	if err := yaml.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("Failed to unmarshal YAML: %v", err)
	}

	if len(result) != 2 {
		t.Errorf("Expected 2 rows, got %d", len(result))
	}
	if result[1] != sampleRows[1] {
		t.Errorf("Unexpected row: %+v", result[1])
	}
}

func TestWriter_SerializeTable(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(FormatTable, &buf)

	if err := writer.Serialize(context.Background(), sampleRows); err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "FIELD") || !strings.Contains(output, "VALUE") {
		t.Error("Expected table header not found")
	}
	if !strings.Contains(output, "[0].Test") || !strings.Contains(output, "[1].Result") {
		t.Error("Expected flattened keys not found")
	}
	if !strings.Contains(output, "Fail") {
		t.Error("Expected result value not found")
	}
}

func TestNewWriter_UnknownFormatFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(Format("invalid"), &buf)
	if writer == nil {
		t.Fatal("Expected non-nil writer with unknown format")
	}

	row := checkRow{Test: "software", Gpu: "All", Result: "Pass"}
	if err := writer.Serialize(context.Background(), row); err != nil {
		t.Fatalf("Serialize should fall back to JSON: %v", err)
	}

	var result checkRow
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("Failed to unmarshal as JSON: %v", err)
	}
	if result != row {
		t.Errorf("Unexpected data: %+v", result)
	}
}

func TestWriter_Close(t *testing.T) {
	// Closing a stdout writer is safe, repeatedly.
	writer := NewStdoutWriter(FormatJSON)
	if err := writer.Close(); err != nil {
		t.Errorf("Close on stdout writer should not error: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Errorf("Multiple Close calls should not error: %v", err)
	}
}

func TestNewFileWriterOrStdout_EmptyPath(t *testing.T) {
	for _, path := range []string{"", "  ", "\t", "\n"} {
		writer := NewFileWriterOrStdout(FormatJSON, path)
		if writer == nil {
			t.Fatalf("Expected non-nil writer for empty path %q", path)
		}
		if closer, ok := writer.(Closer); ok {
			if err := closer.Close(); err != nil {
				t.Errorf("Close failed for empty path writer: %v", err)
			}
		}
	}
}

func TestNewFileWriterOrStdout_Success(t *testing.T) {
	tmpFile := t.TempDir() + "/report.json"

	writer := NewFileWriterOrStdout(FormatJSON, tmpFile)
	if writer == nil {
		t.Fatal("Expected non-nil writer")
	}

	row := checkRow{Test: "software", Gpu: "1", Result: "Warn"}
	if err := writer.Serialize(context.Background(), row); err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if closer, ok := writer.(Closer); ok {
		if err := closer.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}

	content, err := os.ReadFile(tmpFile)
	if err != nil {
		t.Fatalf("Failed to read output file: %v", err)
	}

	var result checkRow
	if err := json.Unmarshal(content, &result); err != nil {
		t.Fatalf("Failed to unmarshal file content: %v", err)
	}
	if result != row {
		t.Errorf("Unexpected data in file: %+v", result)
	}
}

func TestNewFileWriterOrStdout_InvalidPath(t *testing.T) {
	// Unwritable path falls back to stdout rather than failing.
	writer := NewFileWriterOrStdout(FormatJSON, "/nonexistent/path/report.json")
	if writer == nil {
		t.Fatal("Expected non-nil writer (should fallback to stdout)")
	}
	if closer, ok := writer.(Closer); ok {
		if err := closer.Close(); err != nil {
			t.Errorf("Close should not error on fallback writer: %v", err)
		}
	}
}

func TestFormat_IsUnknown(t *testing.T) {
	tests := []struct {
		format Format
		want   bool
	}{
		{FormatJSON, false},
		{FormatYAML, false},
		{FormatTable, false},
		{Format("invalid"), true},
		{Format("xml"), true},
		{Format(""), true},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			if got := tt.format.IsUnknown(); got != tt.want {
				t.Errorf("Format(%q).IsUnknown() = %v, want %v", tt.format, got, tt.want)
			}
		})
	}
}

func TestWriter_SerializeTable_EmptyData(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(FormatTable, &buf)

	if err := writer.Serialize(context.Background(), []checkRow{}); err != nil {
		t.Fatalf("Serialize empty slice failed: %v", err)
	}

	if output := buf.String(); !strings.Contains(output, "<empty>") {
		t.Errorf("Expected '<empty>' in output for empty data, got: %s", output)
	}
}

func TestWriter_SerializeTable_NestedStructs(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(FormatTable, &buf)

	type report struct {
		DriverVersion string
		Summary       checkRow
	}

	data := report{
		DriverVersion: "570.86.15",
		Summary:       checkRow{Test: "software", Gpu: "All", Result: "Pass"},
	}

	if err := writer.Serialize(context.Background(), data); err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Summary.Test") {
		t.Error("Expected flattened key 'Summary.Test' not found")
	}
	if !strings.Contains(output, "570.86.15") {
		t.Error("Expected driver version not found")
	}
}

func TestWriter_SerializeTable_Maps(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(FormatTable, &buf)

	data := map[string]interface{}{
		"driverVersion": "570.86.15",
		"gpuCount":      8,
		"paused":        false,
	}

	if err := writer.Serialize(context.Background(), data); err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "driverVersion") || !strings.Contains(output, "gpuCount") {
		t.Error("Expected all keys in output")
	}
}

func TestWriter_SerializeTable_NilValues(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(FormatTable, &buf)

	type rowWithNil struct {
		Gpu    string
		Errors *int
	}

	if err := writer.Serialize(context.Background(), rowWithNil{Gpu: "0"}); err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	if output := buf.String(); !strings.Contains(output, "Gpu") {
		t.Error("Expected 'Gpu' field in output")
	}
}
