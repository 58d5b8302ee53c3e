package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
)

const (
	EnvPipelineOutputDir    = "BOTWATCH_PIPELINE_OUTPUT_DIR"
	EnvPipelineScoreWorkers = "BOTWATCH_PIPELINE_SCORE_WORKERS"
	EnvPipelineEnrich       = "BOTWATCH_PIPELINE_ENRICH"
	EnvPipelineArchive      = "BOTWATCH_PIPELINE_ARCHIVE"
	EnvPipelineRecord       = "BOTWATCH_PIPELINE_RECORD"
)

// PipelineConfig controls the per-post pipeline and which optional stages run.
type PipelineConfig struct {
	OutputDir    string `toml:"output_dir"`
	ScoreWorkers int    `toml:"score_workers"`
	Enrich       bool   `toml:"enrich"`
	Archive      bool   `toml:"archive"`
	Record       bool   `toml:"record"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *PipelineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. An overlay can enable an
// optional stage but not disable one; use the environment for that.
func (c *PipelineConfig) Merge(overlay *PipelineConfig) {
	if overlay.OutputDir != "" {
		c.OutputDir = overlay.OutputDir
	}
	if overlay.ScoreWorkers != 0 {
		c.ScoreWorkers = overlay.ScoreWorkers
	}
	c.Enrich = c.Enrich || overlay.Enrich
	c.Archive = c.Archive || overlay.Archive
	c.Record = c.Record || overlay.Record
}

func (c *PipelineConfig) loadDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = "output"
	}
	if c.ScoreWorkers == 0 {
		c.ScoreWorkers = runtime.NumCPU()
	}
}

func (c *PipelineConfig) loadEnv() {
	if v := os.Getenv(EnvPipelineOutputDir); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv(EnvPipelineScoreWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ScoreWorkers = n
		}
	}

	setBool := func(envVar string, dst *bool) {
		if v := os.Getenv(envVar); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	setBool(EnvPipelineEnrich, &c.Enrich)
	setBool(EnvPipelineArchive, &c.Archive)
	setBool(EnvPipelineRecord, &c.Record)
}

func (c *PipelineConfig) validate() error {
	if c.ScoreWorkers < 1 {
		return fmt.Errorf("score_workers must be positive")
	}
	return nil
}
