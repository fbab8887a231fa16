package simulator

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"sync"

	"github.com/chrisdamba/cleanbotsim/internal/cloudwriter"
	"github.com/chrisdamba/cleanbotsim/internal/models"
	"github.com/chrisdamba/cleanbotsim/internal/output"
	"github.com/chrisdamba/cleanbotsim/internal/simulator/producers"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

type OutputDestination interface {
	WriteMessage(topic string, msg []byte) error
	Close() error
}

// KeyedOutputDestination is implemented by outputs that partition by message key
type KeyedOutputDestination interface {
	OutputDestination
	WriteKeyedMessage(topic, key string, msg []byte) error
}

var _ KeyedOutputDestination = (*producers.SaramaProducer)(nil)

// CloudWriterFactoryFunc builds the object writer factory for a storage region
type CloudWriterFactoryFunc func(ctx context.Context, region string) (cloudwriter.CloudWriterFactory, error)

func newS3WriterFactory(ctx context.Context, region string) (cloudwriter.CloudWriterFactory, error) {
	return cloudwriter.NewS3WriterFactory(ctx, region)
}

type ConsoleOutput struct {
	w io.Writer
}

func NewConsoleOutput(w io.Writer) *ConsoleOutput {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleOutput{w: w}
}

// NoopOutput discards every message
type NoopOutput struct{}

func (NoopOutput) WriteMessage(string, []byte) error { return nil }
func (NoopOutput) Close() error                      { return nil }

type CSVOutput struct {
	basePath string
	folder   string
	files    map[string]*os.File
	writers  map[string]*csv.Writer
	headers  map[string][]string
}

type JSONOutput struct {
	basePath string
	folder   string
	files    map[string]*os.File
}

type ParquetOutput struct {
	basePath           string
	folder             string
	mu                 sync.Mutex
	writers            map[string]*writer.ParquetWriter
	files              map[string]source.ParquetFile
	cloudWriterFactory cloudwriter.CloudWriterFactory
	cloudBucketName    string
}

// CloudParquetFile adapts a cloud object writer to the parquet file interface.
// Objects are write-only: reads and seeking from the end are not supported.
type CloudParquetFile struct {
	cloudWriter cloudwriter.CloudWriter
	offset      int64
}

func NewCloudParquetFile(cloudWriter cloudwriter.CloudWriter) *CloudParquetFile {
	return &CloudParquetFile{cloudWriter: cloudWriter}
}

func (c *CloudParquetFile) Open(string) (source.ParquetFile, error)   { return c, nil }
func (c *CloudParquetFile) Create(string) (source.ParquetFile, error) { return c, nil }

func (c *CloudParquetFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		c.offset = offset
	case io.SeekCurrent:
		c.offset += offset
	case io.SeekEnd:
		return 0, fmt.Errorf("seek from end not supported for cloud storage")
	}
	return c.offset, nil
}

func (c *CloudParquetFile) Read([]byte) (int, error) {
	return 0, fmt.Errorf("read not supported for cloud storage")
}

func (c *CloudParquetFile) Write(p []byte) (int, error) {
	n, err := c.cloudWriter.Write(p)
	c.offset += int64(n)
	return n, err
}

func (c *CloudParquetFile) Close() error {
	return c.cloudWriter.Close()
}

func NewCSVOutput(basePath, folder string) *CSVOutput {
	return &CSVOutput{
		basePath: basePath,
		folder:   folder,
		files:    make(map[string]*os.File),
		writers:  make(map[string]*csv.Writer),
		headers:  make(map[string][]string),
	}
}

func NewJSONOutput(basePath, folder string) *JSONOutput {
	return &JSONOutput{
		basePath: basePath,
		folder:   folder,
		files:    make(map[string]*os.File),
	}
}

// NewParquetOutput writes one parquet file per topic and run, locally or to
// cloud storage depending on the configured destination. A nil newFactory
// uploads to S3. Objects are uploaded on Close through ctx.
func NewParquetOutput(ctx context.Context, config *models.Config, newFactory CloudWriterFactoryFunc) (*ParquetOutput, error) {
	p := &ParquetOutput{
		basePath: config.OutputPath,
		folder:   config.OutputFolder,
		writers:  make(map[string]*writer.ParquetWriter),
		files:    make(map[string]source.ParquetFile),
	}

	if config.OutputDestination == models.OutputDestinationS3 {
		var factory cloudwriter.CloudWriterFactory
		var err error

		switch config.CloudStorage.Provider {
		case "s3":
			if newFactory == nil {
				newFactory = newS3WriterFactory
			}
			factory, err = newFactory(ctx, config.CloudStorage.Region)
		default:
			return nil, fmt.Errorf("unsupported cloud storage provider: %s", config.CloudStorage.Provider)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create cloud writer factory: %w", err)
		}

		p.cloudWriterFactory = factory
		p.cloudBucketName = config.CloudStorage.BucketName
	}

	return p, nil
}

// partition extracts the run id of a serialized event and builds the
// topic/run=<id> relative directory it belongs to.
func partition(topic string, msg []byte) (map[string]interface{}, string, error) {
	var event map[string]interface{}
	if err := json.Unmarshal(msg, &event); err != nil {
		return nil, "", err
	}
	runID, ok := event["runId"].(string)
	if !ok || runID == "" {
		return nil, "", fmt.Errorf("event on %s has no run id", topic)
	}
	return event, filepath.Join(topic, "run="+runID), nil
}

func (c *CSVOutput) WriteMessage(topic string, msg []byte) error {
	event, partitionPath, err := partition(topic, msg)
	if err != nil {
		return err
	}
	fullPath := filepath.Join(c.basePath, c.folder, partitionPath)

	csvWriter, ok := c.writers[partitionPath]
	if !ok {
		if err := os.MkdirAll(fullPath, os.ModePerm); err != nil {
			return err
		}
		file, err := os.Create(filepath.Join(fullPath, "data.csv"))
		if err != nil {
			return err
		}
		csvWriter = csv.NewWriter(file)
		c.files[partitionPath] = file
		c.writers[partitionPath] = csvWriter

		headers := c.getHeaders(event)
		if err := csvWriter.Write(headers); err != nil {
			return err
		}
		c.headers[partitionPath] = headers
	}

	row := make([]string, len(c.headers[partitionPath]))
	for i, header := range c.headers[partitionPath] {
		value, ok := event[header]
		if !ok {
			row[i] = ""
		} else {
			row[i] = fmt.Sprintf("%v", value)
		}
	}

	if err := csvWriter.Write(row); err != nil {
		return err
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func (c *CSVOutput) getHeaders(event map[string]interface{}) []string {
	var headers []string
	for key := range event {
		headers = append(headers, key)
	}
	sort.Strings(headers)
	return headers
}

func (c *CSVOutput) Close() error {
	var lastErr error
	for key, csvWriter := range c.writers {
		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil {
			lastErr = err
		}
		if err := c.files[key].Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (j *JSONOutput) WriteMessage(topic string, msg []byte) error {
	_, partitionPath, err := partition(topic, msg)
	if err != nil {
		return err
	}
	fullPath := filepath.Join(j.basePath, j.folder, partitionPath)

	file, ok := j.files[partitionPath]
	if !ok {
		if err := os.MkdirAll(fullPath, os.ModePerm); err != nil {
			return err
		}
		file, err = os.Create(filepath.Join(fullPath, "data.json"))
		if err != nil {
			return err
		}
		j.files[partitionPath] = file
	}

	if _, err := file.Write(msg); err != nil {
		return err
	}
	_, err = file.WriteString("\n")
	return err
}

func (j *JSONOutput) Close() error {
	var lastErr error
	for _, file := range j.files {
		if err := file.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (p *ParquetOutput) WriteMessage(topic string, msg []byte) error {
	_, partitionPath, err := partition(topic, msg)
	if err != nil {
		return err
	}

	rec, err := newRecord(topic)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(msg, rec); err != nil {
		return fmt.Errorf("failed to decode %s record: %w", topic, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	pw, ok := p.writers[partitionPath]
	if !ok {
		pw, err = p.createNewWriter(partitionPath, topic)
		if err != nil {
			return fmt.Errorf("failed to create new writer: %w", err)
		}
	}

	if err := pw.Write(reflect.Indirect(reflect.ValueOf(rec)).Interface()); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

func (p *ParquetOutput) createNewWriter(partitionPath, topic string) (*writer.ParquetWriter, error) {
	var fw source.ParquetFile
	var err error
	if p.cloudWriterFactory != nil {
		objectPath := filepath.ToSlash(filepath.Join(p.folder, partitionPath, "data.parquet"))
		cloudWriter, err := p.cloudWriterFactory.NewWriter(p.cloudBucketName, objectPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create cloud file writer: %w", err)
		}
		fw = NewCloudParquetFile(cloudWriter)
	} else {
		fullPath := filepath.Join(p.basePath, p.folder, partitionPath)
		if err := os.MkdirAll(fullPath, os.ModePerm); err != nil {
			return nil, err
		}
		fw, err = local.NewLocalFileWriter(filepath.Join(fullPath, "data.parquet"))
		if err != nil {
			return nil, fmt.Errorf("failed to create local file writer: %w", err)
		}
	}

	sc, err := GetSchema(topic)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	pw, err := writer.NewParquetWriter(fw, nil, 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create ParquetWriter: %w", err)
	}
	pw.SchemaHandler = sc
	pw.Footer.Schema = append(pw.Footer.Schema, sc.SchemaElements...)

	p.writers[partitionPath] = pw
	p.files[partitionPath] = fw
	return pw, nil
}

func (p *ParquetOutput) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var lastErr error
	for key, pw := range p.writers {
		if err := pw.WriteStop(); err != nil {
			lastErr = err
			log.Printf("Error closing writer for key %s: %v", key, err)
		}
		if f, ok := p.files[key]; ok {
			if err := f.Close(); err != nil {
				lastErr = err
				log.Printf("Error closing file for key %s: %v", key, err)
			}
		}
	}
	return lastErr
}

func (c *ConsoleOutput) WriteMessage(topic string, msg []byte) error {
	if _, err := fmt.Fprintf(c.w, "[%s] %s\n", topic, msg); err != nil {
		return fmt.Errorf("failed to write to console: %w", err)
	}
	return nil
}

func (c *ConsoleOutput) Close() error {
	if f, ok := c.w.(*os.File); ok {
		// stdout may not support sync, which is fine
		_ = f.Sync()
	}
	return nil
}

// determineOutputDestination builds the configured output. Outputs outlive a
// cancelled run so its summary can still be flushed on Close.
func (s *Simulator) determineOutputDestination(ctx context.Context) (OutputDestination, error) {
	ctx = context.WithoutCancel(ctx)
	switch s.Config.OutputFormat {
	case models.OutputFormatKafka:
		saramaProducer, err := producers.NewSaramaProducer(s.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to create Sarama producer: %w", err)
		}
		return saramaProducer, nil
	case models.OutputFormatPostgres:
		pg, err := output.NewPostgresOutput(ctx, s.Config.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create Postgres output: %w", err)
		}
		return pg, nil
	case models.OutputFormatParquet:
		pq, err := NewParquetOutput(ctx, s.Config, s.cloudWriters)
		if err != nil {
			return nil, fmt.Errorf("failed to create Parquet output: %w", err)
		}
		return pq, nil
	case models.OutputFormatJSON:
		return NewJSONOutput(s.Config.OutputPath, s.Config.OutputFolder), nil
	case models.OutputFormatCSV:
		return NewCSVOutput(s.Config.OutputPath, s.Config.OutputFolder), nil
	case models.OutputFormatNone:
		return NoopOutput{}, nil
	}
	return NewConsoleOutput(os.Stdout), nil
}
