package config

const (
	defaultConfigPath         = "~/.config/av1clip/config.toml"
	defaultStateDir           = "~/.local/share/av1clip"
	defaultMPV                = "mpv"
	defaultFFmpeg             = "ffmpeg"
	defaultFFprobe            = "ffprobe"
	defaultSvtAV1             = "SvtAv1EncApp"
	defaultAudioBitrate       = "256k"
	defaultCRF                = 30
	defaultPreset             = 3
	defaultTileRows           = 2
	defaultTileColumns        = 2
	defaultFilmGrain          = 8
	defaultGracePeriodSeconds = 10
	defaultOrphanMaxAgeHours  = 24
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir: defaultCacheDir(),
			StateDir: defaultStateDir,
		},
		Tools: Tools{
			MPV:     defaultMPV,
			FFmpeg:  defaultFFmpeg,
			FFprobe: defaultFFprobe,
			SvtAV1:  defaultSvtAV1,
		},
		Encode: Encode{
			AudioBitrate: defaultAudioBitrate,
			CRF:          defaultCRF,
			Preset:       defaultPreset,
			TileRows:     defaultTileRows,
			TileColumns:  defaultTileColumns,
			FilmGrain:    defaultFilmGrain,
		},
		Pipeline: Pipeline{
			GracePeriodSeconds: defaultGracePeriodSeconds,
			KillHung:           true,
		},
		Cache: Cache{
			Lock:              true,
			OrphanMaxAgeHours: defaultOrphanMaxAgeHours,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
