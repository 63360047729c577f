package config

import (
	"errors"
	"fmt"
	"strings"

	"av1clip/internal/clip"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateEncode(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if c.Cache.OrphanMaxAgeHours < 0 {
		return errors.New("cache.orphan_max_age_hours must be >= 0")
	}
	return nil
}

func (c *Config) validateTools() error {
	for key, value := range map[string]string{
		"tools.mpv":     c.Tools.MPV,
		"tools.ffmpeg":  c.Tools.FFmpeg,
		"tools.ffprobe": c.Tools.FFprobe,
		"tools.svtav1":  c.Tools.SvtAV1,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	return nil
}

func (c *Config) validateEncode() error {
	if _, err := clip.ParseAudioBitrate(c.Encode.AudioBitrate); err != nil {
		return fmt.Errorf("encode.audio_bitrate: %w", err)
	}
	if err := c.DefaultTuning().Validate(); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.GracePeriodSeconds <= 0 {
		return errors.New("pipeline.grace_period_seconds must be positive")
	}
	return nil
}

// DefaultTuning converts the [encode] section into encoder tuning values.
func (c *Config) DefaultTuning() clip.Tuning {
	return clip.Tuning{
		CRF:                  c.Encode.CRF,
		Preset:               c.Encode.Preset,
		TileRows:             c.Encode.TileRows,
		TileColumns:          c.Encode.TileColumns,
		FilmGrain:            c.Encode.FilmGrain,
		SceneChangeDetection: c.Encode.SCD,
	}
}
