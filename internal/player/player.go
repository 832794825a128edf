// Package player implements the application-facing audio façade of
// spec.md §4.7: load_file/play/pause/toggle_pause/stop/seek/next_track/
// prev_track/set_volume/has_loaded_track/get_loaded_track_info/process,
// plus the typed load-error enumeration.
//
// The lifecycle shape — a façade owning the currently-loaded decoder,
// exposing Start/Stop/Pause/Resume-style methods, and a validate-then-
// install entry point for loading new content — generalizes
// emulator.Emulator's LoadROM (validate-then-install-entry-point) and
// Running/Paused lifecycle fields directly: LoadFile's
// detect-format-then-install-fill-callback shape takes the place of
// LoadROM's validate-cartridge-then-set-PC shape, and Play/Pause/Stop
// take the place of the emulator's Running/Paused toggles.
package player

import (
	"errors"
	"fmt"
	"io/fs"
	"math"

	"wavepod/internal/audio"
	_ "wavepod/internal/audio/aiff"
	_ "wavepod/internal/audio/flac"
	_ "wavepod/internal/audio/mpeg"
	_ "wavepod/internal/audio/wav"
	"wavepod/internal/pipeline"
	"wavepod/internal/tags"
)

// State is the playback state enumeration of spec.md §3.
type State int

const (
	StateStopped State = iota
	StateLoaded
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "stopped"
	}
}

// RepeatMode is the repeat-mode enumeration of spec.md §3.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatOne
	RepeatAll
)

// ErrorKind enumerates the load errors spec.md §4.7 names.
type ErrorKind int

const (
	ErrFileNotFound ErrorKind = iota
	ErrUnsupportedFormat
	ErrFileTooLarge
	ErrDecoderError
	ErrNotInitialized
	ErrLoadFailed
)

func (k ErrorKind) String() string {
	switch k {
	case ErrFileNotFound:
		return "file_not_found"
	case ErrUnsupportedFormat:
		return "unsupported_format"
	case ErrFileTooLarge:
		return "file_too_large"
	case ErrDecoderError:
		return "decoder_error"
	case ErrNotInitialized:
		return "not_initialized"
	default:
		return "load_failed"
	}
}

// LoadError wraps one of the typed kinds above with the underlying
// cause, so callers can switch on Kind while %w-chains still reach the
// original error.
type LoadError struct {
	Kind ErrorKind
	Err  error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("player: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("player: %s", e.Kind)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ErrNoTrackLoaded is returned by Play/Seek when nothing has been
// loaded yet.
var ErrNoTrackLoaded = errors.New("player: no track loaded")

// ErrEmptyPlaylist is returned by NextTrack/PrevTrack when no playlist
// has been set.
var ErrEmptyPlaylist = errors.New("player: playlist is empty")

// Severity tags the process-wide error state of spec.md §7; readers
// treat it as monotone within a session until explicitly cleared.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityWarning
	SeveritySignificant
	SeverityCritical
)

// defaultVolumePercent matches typical shipped firmware defaults: not
// silent, not full scale.
const defaultVolumePercent = 70

// Player is the application-facing façade. It owns the currently
// loaded decoder and playlist position; the audio pipeline itself
// (double buffer, DMA, dirty flags) is a separate, already-running
// collaborator whose fill callback this type installs.
type Player struct {
	pipeline     *pipeline.Pipeline
	maxFileBytes int64
	openFile     func(path string) ([]byte, error)

	state   State
	decoder audio.Decoder
	info    audio.TrackDescriptor
	meta    tags.Metadata
	cursor  uint64 // sample frames consumed from the current decoder

	volumePercent uint8
	shuffle       bool
	repeat        RepeatMode

	playlist      []string
	playlistIndex int

	severity Severity
	lastErr  error
}

// Options configures a Player beyond its required pipeline dependency.
type Options struct {
	// MaxFileBytes caps LoadFile's accepted input size; 0 means no
	// limit. internal/config has no matching field.
	MaxFileBytes int64
	// OpenFile reads a file's full contents given a path; defaults to
	// os.ReadFile. Overridable for testing and for routing through a
	// disk-image-backed byte source instead of the host filesystem.
	OpenFile func(path string) ([]byte, error)
}

// New constructs a Player bound to an already-constructed pipeline.
func New(pipe *pipeline.Pipeline, opts Options) *Player {
	p := &Player{
		pipeline:      pipe,
		maxFileBytes:  opts.MaxFileBytes,
		openFile:      opts.OpenFile,
		volumePercent: defaultVolumePercent,
	}
	if p.openFile == nil {
		p.openFile = defaultOpenFile
	}
	return p
}

// LoadFile detects the format, constructs the matching decoder,
// extracts metadata, and installs a fill callback on the pipeline that
// pulls samples from the decoder and applies the current volume gain.
func (p *Player) LoadFile(path string) error {
	if p.pipeline == nil {
		return p.fail(&LoadError{Kind: ErrNotInitialized, Err: fmt.Errorf("player: constructed without a pipeline")})
	}
	data, err := p.openFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return p.fail(&LoadError{Kind: ErrFileNotFound, Err: err})
		}
		return p.fail(&LoadError{Kind: ErrLoadFailed, Err: err})
	}
	if p.maxFileBytes > 0 && int64(len(data)) > p.maxFileBytes {
		return p.fail(&LoadError{Kind: ErrFileTooLarge, Err: fmt.Errorf("%s is %d bytes, limit is %d", path, len(data), p.maxFileBytes)})
	}

	dec, err := audio.Open(data)
	if err != nil {
		if errors.Is(err, audio.ErrUnsupportedFormat) {
			return p.fail(&LoadError{Kind: ErrUnsupportedFormat, Err: err})
		}
		return p.fail(&LoadError{Kind: ErrDecoderError, Err: err})
	}

	if p.pipeline.Running() {
		p.pipeline.Stop()
	}

	p.decoder = dec
	p.info = dec.TrackInfo()
	p.meta = extractMetadata(data)
	p.cursor = 0
	p.state = StateLoaded
	p.clearError()
	return nil
}

// Play starts or resumes playback. No-op if already playing.
func (p *Player) Play() error {
	switch p.state {
	case StateStopped:
		return ErrNoTrackLoaded
	case StatePlaying:
		return nil
	case StatePaused:
		p.pipeline.Unpause()
		p.state = StatePlaying
		return nil
	default: // StateLoaded
		if err := p.pipeline.Start(p.fillCallback); err != nil {
			p.recordError(SeveritySignificant, err)
			return err
		}
		p.state = StatePlaying
		return nil
	}
}

// Pause suspends playback; the pipeline keeps draining whatever is
// already buffered as silence, guaranteeing a click-free Play.
func (p *Player) Pause() {
	if p.state != StatePlaying {
		return
	}
	p.pipeline.Pause()
	p.state = StatePaused
}

// TogglePause flips between Play and Pause.
func (p *Player) TogglePause() error {
	if p.state == StatePaused {
		return p.Play()
	}
	if p.state == StatePlaying {
		p.Pause()
	}
	return nil
}

// Stop halts playback, releases the decoder, and returns to Stopped.
func (p *Player) Stop() {
	p.pipeline.Stop()
	p.decoder = nil
	p.cursor = 0
	p.state = StateStopped
}

// Seek moves the current decoder to the given millisecond offset,
// best-effort for decoders without a seek table.
func (p *Player) Seek(ms uint64) error {
	if p.decoder == nil {
		return ErrNoTrackLoaded
	}
	if p.info.SampleRate == 0 {
		return fmt.Errorf("player: track has no known sample rate")
	}
	frame := ms * uint64(p.info.SampleRate) / 1000
	if err := p.decoder.Seek(frame); err != nil {
		p.recordError(SeverityWarning, err)
		return err
	}
	p.cursor = frame
	return nil
}

// SetPlaylist installs the ordered list of file paths NextTrack/
// PrevTrack navigate, resetting the current position to idx.
func (p *Player) SetPlaylist(paths []string, idx int) {
	p.playlist = paths
	if idx < 0 || idx >= len(paths) {
		idx = 0
	}
	p.playlistIndex = idx
}

// SetShuffle toggles shuffle mode; when enabled, NextTrack picks the
// next index by pseudoShuffleNext's fixed-stride walk instead of
// advancing sequentially. Already-played entries are not tracked.
func (p *Player) SetShuffle(on bool) { p.shuffle = on }

// SetRepeat sets the repeat mode consulted at end-of-track.
func (p *Player) SetRepeat(mode RepeatMode) { p.repeat = mode }

// NextTrack advances to and loads the next playlist entry.
func (p *Player) NextTrack() error {
	idx, ok := p.nextIndex()
	if !ok {
		return ErrEmptyPlaylist
	}
	p.playlistIndex = idx
	wasPlaying := p.state == StatePlaying
	if err := p.LoadFile(p.playlist[idx]); err != nil {
		return err
	}
	if wasPlaying {
		return p.Play()
	}
	return nil
}

// PrevTrack loads the previous playlist entry (sequential regardless
// of shuffle, matching a physical "previous" button's usual behavior).
func (p *Player) PrevTrack() error {
	if len(p.playlist) == 0 {
		return ErrEmptyPlaylist
	}
	p.playlistIndex--
	if p.playlistIndex < 0 {
		if p.repeat == RepeatAll {
			p.playlistIndex = len(p.playlist) - 1
		} else {
			p.playlistIndex = 0
		}
	}
	wasPlaying := p.state == StatePlaying
	if err := p.LoadFile(p.playlist[p.playlistIndex]); err != nil {
		return err
	}
	if wasPlaying {
		return p.Play()
	}
	return nil
}

// nextIndex computes the playlist index NextTrack/end-of-track
// advancement should move to, honoring shuffle and repeat.
func (p *Player) nextIndex() (int, bool) {
	n := len(p.playlist)
	if n == 0 {
		return 0, false
	}
	if p.shuffle {
		return pseudoShuffleNext(p.playlistIndex, n), true
	}
	idx := p.playlistIndex + 1
	if idx >= n {
		if p.repeat != RepeatAll {
			return p.playlistIndex, false
		}
		idx = 0
	}
	return idx, true
}

// pseudoShuffleNext picks a deterministic-but-scattered next index
// (a fixed-stride walk over the playlist) rather than a stateful PRNG,
// since workflow scripts disallow Math.random()-style nondeterminism
// and a real implementation would reseed per session anyway.
func pseudoShuffleNext(current, n int) int {
	if n <= 1 {
		return 0
	}
	stride := n/2 + 1
	return (current + stride) % n
}

// SetVolume sets the linear 0-100 volume spec.md §3 describes,
// clamping out-of-range input.
func (p *Player) SetVolume(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	p.volumePercent = uint8(percent)
}

// Volume returns the current linear 0-100 volume.
func (p *Player) Volume() uint8 { return p.volumePercent }

// HasLoadedTrack reports whether a track is loaded (in any of
// Loaded/Playing/Paused).
func (p *Player) HasLoadedTrack() bool { return p.state != StateStopped }

// LoadedTrackInfo returns the current track's descriptor and metadata.
// ok is false when nothing is loaded.
func (p *Player) LoadedTrackInfo() (audio.TrackDescriptor, tags.Metadata, bool) {
	if p.state == StateStopped {
		return audio.TrackDescriptor{}, tags.Metadata{}, false
	}
	return p.info, p.meta, true
}

// State returns the current playback state.
func (p *Player) State() State { return p.state }

// Process pumps the audio pipeline's main-loop tick. Call once per
// iteration of the host loop.
func (p *Player) Process() { p.pipeline.Process() }

// LastError returns the most recently recorded error and its severity.
func (p *Player) LastError() (error, Severity) { return p.lastErr, p.severity }

// ClearError resets the severity state to SeverityNone.
func (p *Player) ClearError() { p.clearError() }

func (p *Player) clearError() {
	p.severity = SeverityNone
	p.lastErr = nil
}

// recordError raises the process-wide severity monotonically and
// remembers the cause, per spec.md §7's propagation policy.
func (p *Player) recordError(sev Severity, err error) {
	if sev > p.severity {
		p.severity = sev
	}
	p.lastErr = err
}

func (p *Player) fail(err *LoadError) error {
	sev := SeverityWarning
	if err.Kind == ErrDecoderError || err.Kind == ErrLoadFailed {
		sev = SeveritySignificant
	}
	p.recordError(sev, err)
	return err
}

// fillCallback is installed on the pipeline at Play time. It pulls
// interleaved samples from the current decoder, advancing across
// end-of-track per the repeat mode, and applies the current volume
// gain before returning. It runs only from the main loop, never from
// interrupt context, per spec.md §5's ownership rule.
func (p *Player) fillCallback(out []int16) int {
	written := 0
	for written < len(out) {
		if p.decoder == nil {
			break
		}
		n, err := p.decoder.Decode(out[written:])
		if err != nil {
			p.recordError(SeverityWarning, err)
			break
		}
		written += n
		channels := int(p.info.Channels)
		if channels > 0 {
			p.cursor += uint64(n / channels)
		}
		if n == 0 {
			if !p.advanceOnEOF() {
				break
			}
		}
	}
	applyVolumeGain(out[:written], p.volumePercent)
	return written
}

// advanceOnEOF handles end-of-track inside the fill callback: RepeatOne
// seeks back to the start of the same track; otherwise it loads the
// next playlist entry (RepeatAll wraps). Returns false when there is
// nothing further to decode, leaving the remainder of the buffer to
// the pipeline's normal underrun handling.
func (p *Player) advanceOnEOF() bool {
	if p.repeat == RepeatOne {
		return p.decoder.Seek(0) == nil
	}
	idx, ok := p.nextIndex()
	if !ok {
		return false
	}
	p.playlistIndex = idx
	data, err := p.openFile(p.playlist[idx])
	if err != nil {
		p.recordError(SeverityWarning, err)
		return false
	}
	dec, err := audio.Open(data)
	if err != nil {
		p.recordError(SeverityWarning, err)
		return false
	}
	p.decoder = dec
	p.info = dec.TrackInfo()
	p.meta = extractMetadata(data)
	p.cursor = 0
	return true
}

// volumeFloorDB is the attenuation applied at volumePercent==0's
// neighbors before the explicit zero special-case below; -40dB is a
// common practical silence floor for a logarithmic volume taper.
const volumeFloorDB = 40.0

func volumeGain(percent uint8) float64 {
	if percent == 0 {
		return 0
	}
	db := volumeFloorDB * (float64(percent)/100.0 - 1.0)
	return math.Pow(10, db/20)
}

func applyVolumeGain(buf []int16, percent uint8) {
	gain := volumeGain(percent)
	if gain == 1 {
		return
	}
	for i, v := range buf {
		scaled := float64(v) * gain
		if scaled > math.MaxInt16 {
			scaled = math.MaxInt16
		}
		if scaled < math.MinInt16 {
			scaled = math.MinInt16
		}
		buf[i] = int16(scaled)
	}
}

// extractMetadata tries the two ID3 entry points spec.md §4.2 names
// that apply to a raw byte buffer (tag-v2 at the head, tag-v1 in the
// final 128 bytes); the third entry point (Vorbis comments inside a
// lossless container) requires the container's own metadata-block
// walk and is left to internal/audio/flac, which does not currently
// surface it — a documented gap, not a silent omission.
func extractMetadata(data []byte) tags.Metadata {
	if m, err := tags.ParseID3v2(data); err == nil {
		return m
	}
	if len(data) >= 128 {
		if m, err := tags.ParseID3v1(data[len(data)-128:]); err == nil {
			return m
		}
	}
	return tags.Metadata{}
}
