package config

const (
	defaultConfigPath    = "~/.config/whitewater/config.toml"
	projectConfigName    = "whitewater.toml"
	defaultLogDir        = "~/.local/share/whitewater/logs"
	defaultStateDir      = "~/.local/share/whitewater"
	historyFileName      = "history.db"
	defaultFFmpegBinary  = "ffmpeg"
	defaultFFprobeBinary = "ffprobe"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"

	// DefaultBlockSize is used when neither a block size nor a grid shape is
	// configured.
	DefaultBlockSize     = 8
	DefaultThreshold     = 1.0
	DefaultQuality       = 75
	DefaultFormat        = "jpeg"
	DefaultMaxTileWidth  = 2048
	DefaultMaxTileHeight = 2048
)

// Default returns a Config populated with repository defaults. BlockSize is
// left zero and filled in during normalization so that a configured grid
// shape does not collide with it.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Encoder: Encoder{
			Threshold:     DefaultThreshold,
			Quality:       DefaultQuality,
			Format:        DefaultFormat,
			MaxTileWidth:  DefaultMaxTileWidth,
			MaxTileHeight: DefaultMaxTileHeight,
		},
		Source: Source{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		History: History{Enabled: true},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
