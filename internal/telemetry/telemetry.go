// Package telemetry implements the post-mortem event ring buffer described
// in spec.md §3 and §6: a fixed-layout header followed by a ring of
// fixed-size event records, meant to be inspected over JTAG after the fact
// and never read by the core at runtime.
//
// The ring-buffer bookkeeping (write index, wrap count, fixed capacity)
// mirrors the circular buffer in the emulator this runtime was adapted
// from (internal/debug.Logger: entries/writeIndex/entryCount), but the
// storage here is a flat binary layout via encoding/binary rather than a
// slice of Go structs, because §6 requires the format be externally
// parseable by a separate post-mortem tool.
package telemetry

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/lestrrat-go/strftime"
)

// Magic identifies a telemetry buffer: the bytes "ZPTL" read as a
// little-endian uint32.
const Magic = uint32(0x4C54505A)

const (
	headerSize   = 16 // magic(4) + version(2) + bootCount(2) + writeIndex(4) + wrapCount(4)
	eventSize    = 16 // timestampMs(4) + eventType(2) + shortDatum(2) + extendedDatum(4) + reserved(4)
	version      = uint16(1)
	defaultCount = 512
)

// EventType tags a telemetry event. The concrete values are part of the
// external, stable wire format.
type EventType uint16

const (
	EventBoot EventType = iota
	EventUnderrun
	EventArmFailure
	EventATATimeout
	EventDecoderError
	EventPanic
	EventWarning
	EventShutdown
)

// Event is a single fixed-layout telemetry record.
type Event struct {
	TimestampMs  uint32
	Type         EventType
	ShortDatum   uint16
	ExtendedDatum uint32
}

// Header precedes the ring of events in the binary buffer.
type Header struct {
	Magic      uint32
	Version    uint16
	BootCount  uint16
	WriteIndex uint32
	WrapCount  uint32
}

// Buffer is an in-memory telemetry ring. It never errors on Record: a full
// buffer just overwrites its oldest entry, because telemetry recording must
// never block or fail the caller (it is invoked from both interrupt and
// main-loop contexts per spec.md §5).
type Buffer struct {
	header    Header
	capacity  uint32
	events    []Event
	bootEpoch time.Time
}

// New creates a telemetry buffer with room for capacity events (defaulting
// to 512 when capacity is 0) and stamps the given boot count.
func New(capacity int, bootCount uint16) *Buffer {
	if capacity <= 0 {
		capacity = defaultCount
	}
	return &Buffer{
		header: Header{
			Magic:     Magic,
			Version:   version,
			BootCount: bootCount,
		},
		capacity:  uint32(capacity),
		events:    make([]Event, capacity),
		bootEpoch: time.Now(),
	}
}

// Record appends an event, overwriting the oldest entry once the ring is
// full. Safe to call from any context: it performs no allocation once the
// backing slice is established.
func (b *Buffer) Record(evtType EventType, short uint16, extended uint32) {
	idx := b.header.WriteIndex % b.capacity
	b.events[idx] = Event{
		TimestampMs:   uint32(time.Since(b.bootEpoch).Milliseconds()),
		Type:          evtType,
		ShortDatum:    short,
		ExtendedDatum: extended,
	}
	b.header.WriteIndex++
	if b.header.WriteIndex%b.capacity == 0 {
		b.header.WrapCount++
	}
}

// Len reports how many valid events the ring currently holds.
func (b *Buffer) Len() int {
	if b.header.WriteIndex >= b.capacity {
		return int(b.capacity)
	}
	return int(b.header.WriteIndex)
}

// Events returns the valid events in chronological order (oldest first).
func (b *Buffer) Events() []Event {
	n := b.Len()
	out := make([]Event, n)
	if n < int(b.capacity) {
		copy(out, b.events[:n])
		return out
	}
	start := b.header.WriteIndex % b.capacity
	for i := 0; i < n; i++ {
		out[i] = b.events[(start+uint32(i))%b.capacity]
	}
	return out
}

// Marshal encodes the header and full ring capacity into the stable binary
// layout: header, then `capacity` fixed-size event records in storage
// order (not chronological order — a reader reconstructs chronological
// order from WriteIndex/WrapCount exactly as Events does).
func (b *Buffer) Marshal() []byte {
	buf := make([]byte, headerSize+int(b.capacity)*eventSize)
	binary.LittleEndian.PutUint32(buf[0:4], b.header.Magic)
	binary.LittleEndian.PutUint16(buf[4:6], b.header.Version)
	binary.LittleEndian.PutUint16(buf[6:8], b.header.BootCount)
	binary.LittleEndian.PutUint32(buf[8:12], b.header.WriteIndex)
	binary.LittleEndian.PutUint32(buf[12:16], b.header.WrapCount)
	for i, ev := range b.events {
		off := headerSize + i*eventSize
		binary.LittleEndian.PutUint32(buf[off:off+4], ev.TimestampMs)
		binary.LittleEndian.PutUint16(buf[off+4:off+6], uint16(ev.Type))
		binary.LittleEndian.PutUint16(buf[off+6:off+8], ev.ShortDatum)
		binary.LittleEndian.PutUint32(buf[off+8:off+12], ev.ExtendedDatum)
		// off+12..off+16 reserved, left zero.
	}
	return buf
}

// Unmarshal parses a buffer previously produced by Marshal, validating the
// magic number. The capacity is derived from the remaining length, so the
// reader does not need to know it in advance.
func Unmarshal(data []byte) (*Buffer, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("telemetry: buffer too small: %d bytes", len(data))
	}
	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != Magic {
		return nil, fmt.Errorf("telemetry: bad magic 0x%08X", magic)
	}
	remaining := data[headerSize:]
	if len(remaining)%eventSize != 0 {
		return nil, fmt.Errorf("telemetry: ring length %d not a multiple of event size %d", len(remaining), eventSize)
	}
	capacity := uint32(len(remaining) / eventSize)
	b := &Buffer{
		header: Header{
			Magic:      magic,
			Version:    binary.LittleEndian.Uint16(data[4:6]),
			BootCount:  binary.LittleEndian.Uint16(data[6:8]),
			WriteIndex: binary.LittleEndian.Uint32(data[8:12]),
			WrapCount:  binary.LittleEndian.Uint32(data[12:16]),
		},
		capacity:  capacity,
		events:    make([]Event, capacity),
		bootEpoch: time.Now(),
	}
	for i := range b.events {
		off := i * eventSize
		ev := &b.events[i]
		ev.TimestampMs = binary.LittleEndian.Uint32(remaining[off : off+4])
		ev.Type = EventType(binary.LittleEndian.Uint16(remaining[off+4 : off+6]))
		ev.ShortDatum = binary.LittleEndian.Uint16(remaining[off+6 : off+8])
		ev.ExtendedDatum = binary.LittleEndian.Uint32(remaining[off+8 : off+12])
	}
	return b, nil
}

// Header returns a copy of the buffer's current header.
func (b *Buffer) Header() Header { return b.header }

// timelinePattern formats an event timestamp for the human-readable
// timeline a post-mortem tool would print; the post-mortem tool itself is
// out of scope, but this is the documented format it would consume.
var timelinePattern = strftime.MustNew("%Y-%m-%d %H:%M:%S")

// FormatTimeline renders the buffer's events as a human-readable timeline
// anchored at bootTime, one line per event.
func FormatTimeline(b *Buffer, bootTime time.Time) (string, error) {
	var out bytes.Buffer
	for _, ev := range b.Events() {
		t := bootTime.Add(time.Duration(ev.TimestampMs) * time.Millisecond)
		var ts bytes.Buffer
		if err := timelinePattern.Format(&ts, t); err != nil {
			return "", err
		}
		fmt.Fprintf(&out, "%s type=%d short=%d ext=%d\n", ts.String(), ev.Type, ev.ShortDatum, ev.ExtendedDatum)
	}
	return out.String(), nil
}

// HealthReport aggregates boot count, total duration, and per-category
// counts the way the (out-of-scope) post-mortem tool's "aggregate health
// report" is documented in spec.md §6 to do. Building the report here keeps
// the aggregation logic testable against the wire format without owning
// the presentation tool itself.
type HealthReport struct {
	BootCount      uint16
	EventCount     int
	UnderrunCount  int
	ErrorCount     int
	PanicCount     int
	WarningCount   int
	DurationMillis uint32
}

// Summarize computes a HealthReport from a decoded Buffer.
func Summarize(b *Buffer) HealthReport {
	events := b.Events()
	r := HealthReport{
		BootCount:  b.header.BootCount,
		EventCount: len(events),
	}
	for _, ev := range events {
		switch ev.Type {
		case EventUnderrun:
			r.UnderrunCount++
		case EventArmFailure, EventATATimeout, EventDecoderError:
			r.ErrorCount++
		case EventPanic:
			r.PanicCount++
		case EventWarning:
			r.WarningCount++
		}
		if ev.TimestampMs > r.DurationMillis {
			r.DurationMillis = ev.TimestampMs
		}
	}
	return r
}
