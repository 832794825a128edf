// Package config loads the façade's tunables from an optional YAML file.
// The teacher has no config-file layer of its own (cmd/emulator is
// flag-only), so the loading shape here follows deviceid.go's
// tocalls.yaml reader instead: search a short list of candidate paths,
// tolerate the file being absent entirely, and decode with
// gopkg.in/yaml.v3. Unlike that reader this one decodes into a typed
// struct rather than map[string]interface{}, since the tunables are a
// small fixed set rather than open-ended vendor data.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the player façade's runtime tunables. Every field has a
// default applied by Load when the file is absent or the field is
// zero-valued in it, so a partially-specified (or missing) file never
// leaves the runtime half-configured.
type Config struct {
	// SampleRate is the target output sample rate in Hz. Decoders whose
	// native rate differs are not resampled (spec.md's Non-goals exclude
	// a resampler); this only sets the pipeline's DMA cadence.
	SampleRate int `yaml:"sample_rate"`

	// BufferFrames is the per-half sample-frame capacity of each of the
	// pipeline's two DMA buffers.
	BufferFrames int `yaml:"buffer_frames"`

	// Channels is the output channel count (1 or 2).
	Channels int `yaml:"channels"`

	// DefaultVolume is the linear 0-100 volume applied at startup,
	// before any user adjustment.
	DefaultVolume int `yaml:"default_volume"`

	// ATABusyTimeout and ATADRQTimeout bound how long the task-file
	// engine waits for BSY/DRQ to clear before faulting a command.
	ATABusyTimeout time.Duration `yaml:"ata_busy_timeout"`
	ATADRQTimeout  time.Duration `yaml:"ata_drq_timeout"`
}

// Default returns the tunables the teacher's equivalent constants use
// where named (ATA timeouts, per internal/ata.New) and
// spec.md's stated typicals elsewhere (2048-frame stereo buffers at
// 44100Hz, full volume at boot).
func Default() Config {
	return Config{
		SampleRate:     44100,
		BufferFrames:   2048,
		Channels:       2,
		DefaultVolume:  100,
		ATABusyTimeout: 5 * time.Second,
		ATADRQTimeout:  1 * time.Second,
	}
}

// searchLocations lists the candidate paths tried in order, mirroring
// deviceid.go's search_locations list for tocalls.yaml.
var searchLocations = []string{
	"wavepod.yaml",
	"config/wavepod.yaml",
	"/etc/wavepod/wavepod.yaml",
}

// Load reads the first config file found among searchLocations (or, if
// path is non-empty, path alone) and overlays it onto Default. A
// missing file is not an error: the runtime starts on defaults, the
// same way the teacher's flag-only cmd/emulator has no config file to
// miss.
func Load(path string) (Config, error) {
	cfg := Default()

	locations := searchLocations
	if path != "" {
		locations = []string{path}
	}

	var data []byte
	for _, loc := range locations {
		b, err := os.ReadFile(loc)
		if err == nil {
			data = b
			break
		}
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("config: reading %s: %w", loc, err)
		}
	}
	if data == nil {
		return cfg, nil
	}

	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return cfg, fmt.Errorf("config: parsing config file: %w", err)
	}
	applyOverlay(&cfg, overlay)
	return cfg, nil
}

// applyOverlay copies each non-zero field of overlay onto cfg, so an
// omitted field in the YAML file keeps Default's value rather than
// zeroing it out.
func applyOverlay(cfg *Config, overlay Config) {
	if overlay.SampleRate != 0 {
		cfg.SampleRate = overlay.SampleRate
	}
	if overlay.BufferFrames != 0 {
		cfg.BufferFrames = overlay.BufferFrames
	}
	if overlay.Channels != 0 {
		cfg.Channels = overlay.Channels
	}
	if overlay.DefaultVolume != 0 {
		cfg.DefaultVolume = overlay.DefaultVolume
	}
	if overlay.ATABusyTimeout != 0 {
		cfg.ATABusyTimeout = overlay.ATABusyTimeout
	}
	if overlay.ATADRQTimeout != 0 {
		cfg.ATADRQTimeout = overlay.ATADRQTimeout
	}
}
