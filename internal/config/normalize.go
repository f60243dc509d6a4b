package config

import (
	"fmt"
	"os"
	"strings"
)

// Normalize expands paths and fills derived defaults. Load calls it; callers
// that mutate a Config afterwards (CLI flag overrides) call it again.
func (c *Config) Normalize() error {
	return c.normalize()
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEncoder()
	c.normalizeSource()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) != "" {
		if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
			return fmt.Errorf("paths.output_dir: %w", err)
		}
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEncoder() {
	c.Encoder.Format = strings.ToLower(strings.TrimSpace(c.Encoder.Format))
	if c.Encoder.Format == "" {
		c.Encoder.Format = DefaultFormat
	}
	if c.Encoder.Format == "jpg" {
		c.Encoder.Format = "jpeg"
	}
	if c.Encoder.BlockSize == 0 && c.Encoder.GridRows == 0 && c.Encoder.GridCols == 0 {
		c.Encoder.BlockSize = DefaultBlockSize
	}
	if c.Encoder.MaxTileWidth == 0 {
		c.Encoder.MaxTileWidth = DefaultMaxTileWidth
	}
	if c.Encoder.MaxTileHeight == 0 {
		c.Encoder.MaxTileHeight = DefaultMaxTileHeight
	}
}

func (c *Config) normalizeSource() {
	c.Source.FFmpegBinary = strings.TrimSpace(c.Source.FFmpegBinary)
	c.Source.FFprobeBinary = strings.TrimSpace(c.Source.FFprobeBinary)
}

func (c *Config) normalizeLogging() {
	if value, ok := os.LookupEnv("WHITEWATER_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
