package config

import (
	"whitewater/internal/failures"
)

const maxThreshold = 255

// Validate ensures the configuration is usable. Failures carry the
// configuration error marker.
func (c *Config) Validate() error {
	if err := c.validateEncoder(); err != nil {
		return err
	}
	if err := c.validateSource(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateEncoder() error {
	e := c.Encoder
	hasShape := e.GridRows != 0 || e.GridCols != 0
	switch {
	case e.BlockSize < 0:
		return invalid("encoder.block_size must be positive")
	case e.GridRows < 0 || e.GridCols < 0:
		return invalid("encoder.grid_rows and encoder.grid_cols must be positive")
	case hasShape && e.BlockSize > 0:
		return invalid("encoder.block_size and encoder.grid_rows/grid_cols are mutually exclusive")
	case hasShape && (e.GridRows == 0 || e.GridCols == 0):
		return invalid("encoder.grid_rows and encoder.grid_cols must be set together")
	case !hasShape && e.BlockSize == 0:
		return invalid("encoder.block_size or encoder.grid_rows/grid_cols must be set")
	}
	if e.Threshold < 0 || e.Threshold > maxThreshold {
		return invalid("encoder.threshold must be between 0 and %d", maxThreshold)
	}
	if e.Quality < 0 || e.Quality > 100 {
		return invalid("encoder.quality must be between 0 and 100")
	}
	switch e.Format {
	case "jpeg", "png", "gif":
	default:
		return invalid("encoder.format must be jpeg, png, or gif (got %q)", e.Format)
	}
	if e.MaxTileWidth <= 0 || e.MaxTileHeight <= 0 {
		return invalid("encoder.max_tile_width and encoder.max_tile_height must be positive")
	}
	if e.BlockSize > 0 && (e.BlockSize > e.MaxTileWidth || e.BlockSize > e.MaxTileHeight) {
		return invalid("encoder.block_size %d exceeds the maximum tile size %dx%d", e.BlockSize, e.MaxTileWidth, e.MaxTileHeight)
	}
	if e.Workers < 0 {
		return invalid("encoder.workers must be zero or positive")
	}
	return nil
}

func (c *Config) validateSource() error {
	if c.Source.SampleRate < 0 {
		return invalid("source.sample_rate must be zero or positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return invalid("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return invalid("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return failures.Configuration("config", format, args...)
}
