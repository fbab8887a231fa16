package models

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := writeConfig(t, "sim.yaml", `
seed: 42
robots: 3
dirty_cells: 7
width: 12
height: 8
max_steps: 250
torus: false
step_interval: 150ms
output_format: json
output_path: /tmp/out
`)

	cfg, err := LoadConfigFrom(viper.New(), path)
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}

	want := SimulationParams{Robots: 3, DirtyCells: 7, Width: 12, Height: 8, MaxSteps: 250, Torus: false}
	if cfg.Simulation != want {
		t.Errorf("Simulation = %+v, want %+v", cfg.Simulation, want)
	}
	if cfg.Seed != 42 {
		t.Errorf("Seed = %d, want 42", cfg.Seed)
	}
	if cfg.StepInterval != 150*time.Millisecond {
		t.Errorf("StepInterval = %v, want 150ms", cfg.StepInterval)
	}
	if cfg.OutputFormat != OutputFormatJSON || cfg.OutputPath != "/tmp/out" {
		t.Errorf("output settings = %q %q", cfg.OutputFormat, cfg.OutputPath)
	}
	// untouched keys fall back to defaults
	if cfg.OutputDestination != OutputDestinationLocal {
		t.Errorf("OutputDestination = %q, want local", cfg.OutputDestination)
	}
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := LoadConfigFrom(viper.New(), "")
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	want := SimulationParams{Robots: 5, DirtyCells: 10, Width: 10, Height: 10, MaxSteps: 100, Torus: true}
	if cfg.Simulation != want {
		t.Errorf("Simulation = %+v, want %+v", cfg.Simulation, want)
	}
	if cfg.OutputFormat != OutputFormatConsole {
		t.Errorf("OutputFormat = %q, want console", cfg.OutputFormat)
	}
}

func TestLoadConfigEnvironmentOverride(t *testing.T) {
	t.Setenv("CLEANSIM_MAX_STEPS", "9")
	path := writeConfig(t, "sim.json", `{"max_steps": 50}`)

	cfg, err := LoadConfigFrom(viper.New(), path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Simulation.MaxSteps != 9 {
		t.Errorf("MaxSteps = %d, want env override 9", cfg.Simulation.MaxSteps)
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	if _, err := LoadConfigFrom(viper.New(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, "bad.yaml", "width: 0\n")
	_, err := LoadConfigFrom(viper.New(), path)
	var invalid *InvalidConfigurationError
	if !errors.As(err, &invalid) {
		t.Fatalf("error = %v, want InvalidConfigurationError", err)
	}
	if invalid.Field != "width" {
		t.Errorf("Field = %q, want width", invalid.Field)
	}
}

func TestSimulationParamsValidate(t *testing.T) {
	valid := SimulationParams{Robots: 1, DirtyCells: 1, Width: 1, Height: 1, MaxSteps: 1}
	tests := []struct {
		name  string
		mod   func(p *SimulationParams)
		field string
	}{
		{"valid", func(p *SimulationParams) {}, ""},
		{"zero robots and spots allowed", func(p *SimulationParams) { p.Robots, p.DirtyCells = 0, 0 }, ""},
		{"zero width", func(p *SimulationParams) { p.Width = 0 }, "width"},
		{"negative height", func(p *SimulationParams) { p.Height = -2 }, "height"},
		{"negative robots", func(p *SimulationParams) { p.Robots = -1 }, "robots"},
		{"negative dirty cells", func(p *SimulationParams) { p.DirtyCells = -1 }, "dirty_cells"},
		{"zero max steps", func(p *SimulationParams) { p.MaxSteps = 0 }, "max_steps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mod(&p)
			err := p.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var invalid *InvalidConfigurationError
			if !errors.As(err, &invalid) || invalid.Field != tt.field {
				t.Fatalf("error = %v, want InvalidConfigurationError on %s", err, tt.field)
			}
		})
	}
}

func TestConfigValidateOutputSettings(t *testing.T) {
	base := Config{
		Simulation:        SimulationParams{Width: 2, Height: 2, MaxSteps: 3},
		OutputFormat:      OutputFormatConsole,
		OutputDestination: OutputDestinationLocal,
	}
	tests := []struct {
		name  string
		mod   func(c *Config)
		field string
	}{
		{"console ok", func(c *Config) {}, ""},
		{"unknown format", func(c *Config) { c.OutputFormat = "xml" }, "output_format"},
		{"unknown destination", func(c *Config) { c.OutputDestination = "ftp" }, "output_destination"},
		{"s3 needs parquet", func(c *Config) { c.OutputDestination = OutputDestinationS3 }, "output_destination"},
		{"s3 needs bucket", func(c *Config) {
			c.OutputFormat = OutputFormatParquet
			c.OutputDestination = OutputDestinationS3
		}, "cloud_storage.bucket_name"},
		{"postgres needs url", func(c *Config) { c.OutputFormat = OutputFormatPostgres }, "database.url"},
		{"negative interval", func(c *Config) { c.StepInterval = -time.Second }, "step_interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mod(&c)
			err := c.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var invalid *InvalidConfigurationError
			if !errors.As(err, &invalid) || invalid.Field != tt.field {
				t.Fatalf("error = %v, want InvalidConfigurationError on %s", err, tt.field)
			}
		})
	}
}
