package simulator

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chrisdamba/cleanbotsim/internal/cloudwriter"
	"github.com/chrisdamba/cleanbotsim/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
)

const (
	cleanedA = `{"timestamp":1,"eventType":"SpotCleaned","runId":"r1","step":2,"spotId":5,"cleanerId":0,"x":1,"y":2}`
	cleanedB = `{"timestamp":2,"eventType":"SpotCleaned","runId":"r1","step":3,"spotId":6,"cleanerId":1,"x":0,"y":0}`
)

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	out := NewConsoleOutput(&buf)
	if err := out.WriteMessage(models.TopicSpotCleaned, []byte(cleanedA)); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "[spot_cleaned_events] "+cleanedA+"\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPartitionRequiresRunID(t *testing.T) {
	if _, _, err := partition(models.TopicStepMetrics, []byte(`{"step":1}`)); err == nil {
		t.Error("missing run id must fail")
	}
	if _, _, err := partition(models.TopicStepMetrics, []byte(`not json`)); err == nil {
		t.Error("malformed message must fail")
	}
	_, dir, err := partition(models.TopicStepMetrics, []byte(`{"runId":"abc"}`))
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join(models.TopicStepMetrics, "run=abc") {
		t.Errorf("dir = %s", dir)
	}
}

func TestJSONOutputWritesOneLinePerEvent(t *testing.T) {
	base := t.TempDir()
	out := NewJSONOutput(base, "sim")
	for _, msg := range []string{cleanedA, cleanedB} {
		if err := out.WriteMessage(models.TopicSpotCleaned, []byte(msg)); err != nil {
			t.Fatal(err)
		}
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(base, "sim", models.TopicSpotCleaned, "run=r1", "data.json"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(cleanedA+"\n"+cleanedB+"\n", string(data)); diff != "" {
		t.Errorf("file contents (-want +got):\n%s", diff)
	}
}

func TestCSVOutputWritesSortedHeader(t *testing.T) {
	base := t.TempDir()
	out := NewCSVOutput(base, "sim")
	for _, msg := range []string{cleanedA, cleanedB} {
		if err := out.WriteMessage(models.TopicSpotCleaned, []byte(msg)); err != nil {
			t.Fatal(err)
		}
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filepath.Join(base, "sim", models.TopicSpotCleaned, "run=r1", "data.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	want := [][]string{
		{"cleanerId", "eventType", "runId", "spotId", "step", "timestamp", "x", "y"},
		{"0", "SpotCleaned", "r1", "5", "2", "1", "1", "2"},
		{"1", "SpotCleaned", "r1", "6", "3", "2", "0", "0"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}
}

func TestParquetOutputLocal(t *testing.T) {
	cfg := &models.Config{OutputPath: t.TempDir(), OutputFolder: "sim", OutputDestination: models.OutputDestinationLocal}
	out, err := NewParquetOutput(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, msg := range []string{cleanedA, cleanedB} {
		if err := out.WriteMessage(models.TopicSpotCleaned, []byte(msg)); err != nil {
			t.Fatal(err)
		}
	}
	if err := out.WriteMessage("unknown_events", []byte(`{"runId":"r1"}`)); err == nil {
		t.Error("unknown topic must fail")
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}

	fr, err := local.NewLocalFileReader(filepath.Join(cfg.OutputPath, "sim", models.TopicSpotCleaned, "run=r1", "data.parquet"))
	if err != nil {
		t.Fatal(err)
	}
	defer fr.Close()
	pr, err := reader.NewParquetReader(fr, new(SpotCleanedEvent), 1)
	if err != nil {
		t.Fatalf("reading back parquet file: %v", err)
	}
	defer pr.ReadStop()

	if n := pr.GetNumRows(); n != 2 {
		t.Fatalf("rows = %d, want 2", n)
	}
	rows := make([]SpotCleanedEvent, 2)
	if err := pr.Read(&rows); err != nil {
		t.Fatal(err)
	}
	want := []SpotCleanedEvent{
		{Timestamp: 1, EventType: "SpotCleaned", RunID: "r1", Step: 2, SpotID: 5, CleanerID: 0, X: 1, Y: 2},
		{Timestamp: 2, EventType: "SpotCleaned", RunID: "r1", Step: 3, SpotID: 6, CleanerID: 1, X: 0, Y: 0},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}
}

type memoryCloudWriter struct {
	buf    bytes.Buffer
	closed bool
}

func (m *memoryCloudWriter) Write(p []byte) (int, error) { return m.buf.Write(p) }

func (m *memoryCloudWriter) Close() error {
	m.closed = true
	return nil
}

type memoryCloudFactory struct {
	objects map[string]*memoryCloudWriter
}

func (f *memoryCloudFactory) NewWriter(bucket, objectPath string) (cloudwriter.CloudWriter, error) {
	w := &memoryCloudWriter{}
	f.objects[bucket+"/"+objectPath] = w
	return w, nil
}

func TestParquetOutputCloud(t *testing.T) {
	factory := &memoryCloudFactory{objects: make(map[string]*memoryCloudWriter)}
	cfg := &models.Config{
		OutputFolder:      "sim",
		OutputDestination: models.OutputDestinationS3,
		CloudStorage:      models.CloudStorageConfig{Provider: "s3", BucketName: "robots", Region: "eu-west-1"},
	}
	newFactory := func(context.Context, string) (cloudwriter.CloudWriterFactory, error) { return factory, nil }
	out, err := NewParquetOutput(context.Background(), cfg, newFactory)
	if err != nil {
		t.Fatal(err)
	}

	if err := out.WriteMessage(models.TopicSpotCleaned, []byte(cleanedA)); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}

	w, ok := factory.objects["robots/sim/spot_cleaned_events/run=r1/data.parquet"]
	if !ok {
		t.Fatalf("objects = %v", factory.objects)
	}
	if !w.closed || !strings.HasPrefix(w.buf.String(), "PAR1") {
		t.Errorf("object closed=%t size=%d", w.closed, w.buf.Len())
	}
}

func TestCloudParquetFileSeek(t *testing.T) {
	f := NewCloudParquetFile(&memoryCloudWriter{})
	if _, err := f.Write([]byte("abcd")); err != nil {
		t.Fatal(err)
	}
	if off, _ := f.Seek(0, 1); off != 4 {
		t.Errorf("offset = %d, want 4", off)
	}
	if _, err := f.Seek(0, 2); err == nil {
		t.Error("seek from end must fail")
	}
	if _, err := f.Read(make([]byte, 1)); err == nil {
		t.Error("read must fail")
	}
}

func TestDetermineOutputDestination(t *testing.T) {
	tests := []struct {
		format string
		want   interface{}
	}{
		{models.OutputFormatConsole, &ConsoleOutput{}},
		{models.OutputFormatJSON, &JSONOutput{}},
		{models.OutputFormatCSV, &CSVOutput{}},
		{models.OutputFormatParquet, &ParquetOutput{}},
		{models.OutputFormatNone, NoopOutput{}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			cfg := testConfig()
			cfg.OutputFormat = tt.format
			cfg.OutputPath = t.TempDir()
			sim := newTestSimulator(t, cfg)

			out, err := sim.determineOutputDestination(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			defer out.Close()
			if gotType, wantType := typeName(out), typeName(tt.want); gotType != wantType {
				t.Errorf("output = %s, want %s", gotType, wantType)
			}
		})
	}
}

func typeName(v interface{}) string {
	switch v.(type) {
	case *ConsoleOutput:
		return "console"
	case *JSONOutput:
		return "json"
	case *CSVOutput:
		return "csv"
	case *ParquetOutput:
		return "parquet"
	case NoopOutput:
		return "none"
	}
	return "unknown"
}

func TestGetSchemaCoversEveryTopic(t *testing.T) {
	for _, topic := range []string{models.TopicStepMetrics, models.TopicAgentPositions, models.TopicSpotCleaned, models.TopicRunSummary} {
		sh, err := GetSchema(topic)
		if err != nil {
			t.Fatalf("GetSchema(%s): %v", topic, err)
		}
		if len(sh.SchemaElements) < 5 {
			t.Errorf("%s schema has %d elements", topic, len(sh.SchemaElements))
		}
	}
	if _, err := GetSchema("unknown_events"); err == nil {
		t.Error("unknown topic must fail")
	}
}
