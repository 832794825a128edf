// Package ata implements the block-storage engine of spec.md §4.3: a
// sector-addressed task-file state machine presenting PIO/DMA ATA command
// semantics over a DiskImage backend.
//
// Generalizes the teacher's memory.Cartridge, which exposed a bank-indexed,
// read-only ROM byte array with a fixed 32-byte header. Cartridge.Read8's
// "bank * bank-size + offset, bounds-check, return zero if unmapped" shape
// becomes DiskImage's "lba * sector-size + offset" addressing here, widened
// from read-only to read/write and from a single in-memory array to an
// interface so a file-backed image can serve the same protocol.
package ata

import (
	"fmt"
	"io"
	"os"
)

// SectorSize is the fixed ATA sector size in bytes.
const SectorSize = 512

// DiskImage is the backing store for sector reads and writes: an
// in-memory image for the host simulator, or a file-backed image for a
// real disk file, per spec.md §6's "Disk-image backend".
type DiskImage interface {
	ReadSector(lba uint64, out []byte) error
	WriteSector(lba uint64, data []byte) error
	SectorCount() uint64
	Flush() error
}

// MemoryDisk is a DiskImage backed by a flat in-memory byte slice.
type MemoryDisk struct {
	data []byte
}

// NewMemoryDisk creates a MemoryDisk of the given sector count, zeroed.
func NewMemoryDisk(sectors uint64) *MemoryDisk {
	return &MemoryDisk{data: make([]byte, sectors*SectorSize)}
}

func (d *MemoryDisk) SectorCount() uint64 { return uint64(len(d.data)) / SectorSize }

func (d *MemoryDisk) ReadSector(lba uint64, out []byte) error {
	if lba >= d.SectorCount() {
		return fmt.Errorf("ata: memory disk: lba %d out of range (%d sectors)", lba, d.SectorCount())
	}
	off := lba * SectorSize
	copy(out, d.data[off:off+SectorSize])
	return nil
}

func (d *MemoryDisk) WriteSector(lba uint64, data []byte) error {
	if lba >= d.SectorCount() {
		return fmt.Errorf("ata: memory disk: lba %d out of range (%d sectors)", lba, d.SectorCount())
	}
	off := lba * SectorSize
	copy(d.data[off:off+SectorSize], data)
	return nil
}

func (d *MemoryDisk) Flush() error { return nil }

// FileDisk is a DiskImage backed by an *os.File, for a real disk image on
// the host filesystem. Flush performs an fsync, per spec.md §4.3 ("Flush
// is ... a fsync for file backings").
type FileDisk struct {
	f       *os.File
	sectors uint64
}

// OpenFileDisk opens an existing disk image file and derives its sector
// count from its size.
func OpenFileDisk(path string) (*FileDisk, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("ata: open disk image: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ata: stat disk image: %w", err)
	}
	return &FileDisk{f: f, sectors: uint64(info.Size()) / SectorSize}, nil
}

func (d *FileDisk) SectorCount() uint64 { return d.sectors }

func (d *FileDisk) ReadSector(lba uint64, out []byte) error {
	if lba >= d.sectors {
		return fmt.Errorf("ata: file disk: lba %d out of range (%d sectors)", lba, d.sectors)
	}
	_, err := d.f.ReadAt(out[:SectorSize], int64(lba)*SectorSize)
	if err != nil && err != io.EOF {
		return fmt.Errorf("ata: read sector %d: %w", lba, err)
	}
	return nil
}

func (d *FileDisk) WriteSector(lba uint64, data []byte) error {
	if lba >= d.sectors {
		return fmt.Errorf("ata: file disk: lba %d out of range (%d sectors)", lba, d.sectors)
	}
	if _, err := d.f.WriteAt(data[:SectorSize], int64(lba)*SectorSize); err != nil {
		return fmt.Errorf("ata: write sector %d: %w", lba, err)
	}
	return nil
}

func (d *FileDisk) Flush() error {
	if err := d.f.Sync(); err != nil {
		return fmt.Errorf("ata: fsync: %w", err)
	}
	return nil
}

func (d *FileDisk) Close() error { return d.f.Close() }
