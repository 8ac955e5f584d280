package config

const (
	defaultConfigPath      = "~/.config/vidconv/config.toml"
	defaultStagingDir      = "~/.local/share/vidconv/staging"
	defaultLogDir          = "~/.local/share/vidconv/logs"
	defaultSocketName      = "vidconv.sock"
	defaultAPIBind         = "127.0.0.1:7490"
	defaultFFmpegBinary    = "ffmpeg"
	defaultFFprobeBinary   = "ffprobe"
	defaultVideoCodec      = "libx264"
	defaultAudioCodec      = "aac"
	defaultStartPercent    = 5.0
	defaultPlannedPercent  = 10.0
	defaultProgressEpsilon = 0.01
	defaultCapacityGiB     = 100.0
	defaultResolution      = "Original"
	defaultQuality         = "High"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultPublishRegion   = "us-east-1"
	defaultNtfyTimeout     = 10

	bytesPerGiB = 1 << 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Encoder: Encoder{
			FFmpegBinary:    defaultFFmpegBinary,
			FFprobeBinary:   defaultFFprobeBinary,
			VideoCodec:      defaultVideoCodec,
			AudioCodec:      defaultAudioCodec,
			StartPercent:    defaultStartPercent,
			PlannedPercent:  defaultPlannedPercent,
			ProgressEpsilon: defaultProgressEpsilon,
		},
		Capacity: Capacity{
			LimitGiB: defaultCapacityGiB,
		},
		Defaults: Defaults{
			Resolution: defaultResolution,
			Quality:    defaultQuality,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Publish: Publish{
			Region: defaultPublishRegion,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
	}
}
