// Package config defines the job configuration shared by the CLI and the
// pipelines: how to reach the database, what to extract or load, and where
// the rows go.
//
// Example:
//
//	cfg, err := config.Load("orders.yaml")
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config

import (
	"fmt"
	"time"

	"github.com/ajitpratap0/mongobridge/pkg/assemble"
	"github.com/ajitpratap0/mongobridge/pkg/compression"
	"github.com/ajitpratap0/mongobridge/pkg/connector/base"
	"github.com/ajitpratap0/mongobridge/pkg/errors"
	"github.com/ajitpratap0/mongobridge/pkg/logger"
	"github.com/ajitpratap0/mongobridge/pkg/mongodb"
	"github.com/ajitpratap0/mongobridge/pkg/observability"
	"github.com/ajitpratap0/mongobridge/pkg/schema"
	"github.com/ajitpratap0/mongobridge/pkg/sink"
	"github.com/ajitpratap0/mongobridge/pkg/tabular"
)

// Config is a complete job description.
type Config struct {
	Name          string              `yaml:"name" mapstructure:"name"`
	Connection    mongodb.Settings    `yaml:"connection" mapstructure:"connection"`
	Retry         base.RetryPolicy    `yaml:"retry" mapstructure:"retry"`
	Source        SourceConfig        `yaml:"source" mapstructure:"source"`
	Output        OutputConfig        `yaml:"output" mapstructure:"output"`
	Destination   DestinationConfig   `yaml:"destination" mapstructure:"destination"`
	Logging       logger.Config       `yaml:"logging" mapstructure:"logging"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
}

// SourceConfig selects the documents to extract and how columns behave.
type SourceConfig struct {
	Collection   string `yaml:"collection" mapstructure:"collection"`
	SampleSize   int    `yaml:"sample_size" mapstructure:"sample_size"`
	SampleOffset int64  `yaml:"sample_offset" mapstructure:"sample_offset"`
	// Query is a raw filter document in extended JSON. It wins over the
	// condition range.
	Query          string `yaml:"query" mapstructure:"query"`
	ConditionField string `yaml:"condition_field" mapstructure:"condition_field"`
	ConditionFrom  string `yaml:"condition_from" mapstructure:"condition_from"`
	ConditionTo    string `yaml:"condition_to" mapstructure:"condition_to"`
	// Timezone interprets condition dates without an offset. Empty means UTC.
	Timezone     string                       `yaml:"timezone" mapstructure:"timezone"`
	Dispositions map[string]ColumnDisposition `yaml:"dispositions,omitempty" mapstructure:"dispositions"`
	// SchemaFile pins inferred schemas between runs.
	SchemaFile string `yaml:"schema_file" mapstructure:"schema_file"`
}

// ColumnDisposition overrides a column's failure handling.
type ColumnDisposition struct {
	Error      string `yaml:"error" mapstructure:"error"`
	Truncation string `yaml:"truncation" mapstructure:"truncation"`
}

// OutputConfig says where extracted rows are written.
type OutputConfig struct {
	Path             string `yaml:"path" mapstructure:"path"`
	ErrorPath        string `yaml:"error_path" mapstructure:"error_path"`
	Format           string `yaml:"format" mapstructure:"format"`
	Compression      string `yaml:"compression" mapstructure:"compression"`
	CompressionLevel int    `yaml:"compression_level" mapstructure:"compression_level"`
	BatchSize        int    `yaml:"batch_size" mapstructure:"batch_size"`
}

// DestinationConfig describes a load from a CSV file into a collection.
type DestinationConfig struct {
	Collection string         `yaml:"collection" mapstructure:"collection"`
	Input      string         `yaml:"input" mapstructure:"input"`
	BatchSize  int            `yaml:"batch_size" mapstructure:"batch_size"`
	Columns    []ColumnConfig `yaml:"columns,omitempty" mapstructure:"columns"`
}

// ColumnConfig declares one input column. Name may be a dotted path.
type ColumnConfig struct {
	Name   string `yaml:"name" mapstructure:"name"`
	Type   string `yaml:"type" mapstructure:"type"`
	Length int    `yaml:"length" mapstructure:"length"`
}

// ObservabilityConfig enables the metrics endpoint and span export.
type ObservabilityConfig struct {
	MetricsAddr string                      `yaml:"metrics_addr" mapstructure:"metrics_addr"`
	Tracing     observability.TracingConfig `yaml:"tracing" mapstructure:"tracing"`
}

// Default returns a configuration with every optional field filled in.
func Default() *Config {
	return &Config{
		Name: "mongobridge",
		Connection: mongodb.Settings{
			Server:         "localhost:27017",
			ConnectTimeout: 10 * time.Second,
		},
		Retry: *base.DefaultRetryPolicy(),
		Source: SourceConfig{
			SampleSize: schema.DefaultSampleSize,
		},
		Output: OutputConfig{
			Format:           "csv",
			Compression:      string(compression.None),
			CompressionLevel: int(compression.Default),
		},
		Destination: DestinationConfig{
			BatchSize: assemble.DefaultBatchSize,
		},
		Logging: logger.Config{
			Level:    "info",
			Encoding: "json",
		},
		Observability: ObservabilityConfig{
			Tracing: observability.TracingConfig{
				ServiceName:  "mongobridge",
				SamplingRate: 1.0,
			},
		},
	}
}

// Validate checks the parts every job needs. Job-specific requirements are
// checked by ValidateExtract and ValidateLoad.
func (c *Config) Validate() error {
	if err := c.Connection.Validate(); err != nil {
		return err
	}
	if c.Retry.MaxAttempts < 0 {
		return errors.New(errors.ErrorTypeConfig, "retry.max_attempts cannot be negative")
	}
	if c.Source.SampleSize < 0 {
		return errors.New(errors.ErrorTypeConfig, "source.sample_size cannot be negative")
	}
	if c.Source.SampleOffset < 0 {
		return errors.New(errors.ErrorTypeConfig, "source.sample_offset cannot be negative")
	}
	if _, err := c.Source.Location(); err != nil {
		return err
	}
	for name, d := range c.Source.Dispositions {
		if _, _, err := d.parse(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("invalid disposition for column %s", name))
		}
	}
	return nil
}

// ValidateExtract checks the fields an extract job needs.
func (c *Config) ValidateExtract() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Source.Collection == "" {
		return errors.New(errors.ErrorTypeConfig, "source.collection is required")
	}
	if c.Output.Path == "" {
		return errors.New(errors.ErrorTypeConfig, "output.path is required")
	}
	if _, err := sink.Lookup(c.Output.Format); err != nil {
		return err
	}
	if _, err := compression.ParseAlgorithm(c.Output.Compression); err != nil {
		return err
	}
	return nil
}

// ValidateLoad checks the fields a load job needs.
func (c *Config) ValidateLoad() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Destination.Collection == "" {
		return errors.New(errors.ErrorTypeConfig, "destination.collection is required")
	}
	if c.Destination.Input == "" {
		return errors.New(errors.ErrorTypeConfig, "destination.input is required")
	}
	if c.Destination.BatchSize < 0 {
		return errors.New(errors.ErrorTypeConfig, "destination.batch_size cannot be negative")
	}
	_, err := c.Destination.ColumnSchemas()
	return err
}

// Location resolves the condition time zone.
func (s SourceConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid source.timezone")
	}
	return loc, nil
}

// ApplyDispositions copies the configured dispositions onto meta. Naming a
// column meta does not have is an error.
func (s SourceConfig) ApplyDispositions(meta *tabular.Metadata) error {
	for name, d := range s.Dispositions {
		onError, onTrunc, err := d.parse()
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("invalid disposition for column %s", name))
		}
		if err := meta.SetDisposition(name, onError, onTrunc); err != nil {
			return err
		}
	}
	return nil
}

// parse leaves an unset disposition empty so the column keeps its current one.
func (d ColumnDisposition) parse() (onError, onTrunc tabular.Disposition, err error) {
	if d.Error != "" {
		if onError, err = tabular.ParseDisposition(d.Error); err != nil {
			return "", "", err
		}
	}
	if d.Truncation != "" {
		if onTrunc, err = tabular.ParseDisposition(d.Truncation); err != nil {
			return "", "", err
		}
	}
	return onError, onTrunc, nil
}

// ColumnSchemas converts the declared load columns.
func (d DestinationConfig) ColumnSchemas() ([]tabular.ColumnSchema, error) {
	cols := make([]tabular.ColumnSchema, 0, len(d.Columns))
	seen := make(map[string]bool, len(d.Columns))
	for i, c := range d.Columns {
		if c.Name == "" {
			return nil, errors.Newf(errors.ErrorTypeConfig, "destination.columns[%d] has no name", i)
		}
		if seen[c.Name] {
			return nil, errors.Newf(errors.ErrorTypeConfig, "destination column %s is declared twice", c.Name)
		}
		seen[c.Name] = true
		t := tabular.TypeWString
		if c.Type != "" {
			var err error
			if t, err = tabular.ParseDataType(c.Type); err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("invalid type for column %s", c.Name))
			}
		}
		cols = append(cols, tabular.ColumnSchema{ID: i + 1, Name: c.Name, Type: t, Length: c.Length})
	}
	return cols, nil
}

// Level returns the configured compression level.
func (o OutputConfig) Level() compression.Level {
	if o.CompressionLevel <= 0 {
		return compression.Default
	}
	return compression.Level(o.CompressionLevel)
}
