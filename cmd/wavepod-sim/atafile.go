package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"wavepod/internal/ata"
)

// buildOpenFile returns the façade's file-open hook: paths of the form
// "ata://<lba>:<sectorCount>" are read straight off the ATA engine
// (spec.md §6's disk-image backend), anything else is read from the
// host filesystem. This gives the ATA engine a real caller in the
// simulator without requiring a bus-mapped register-block adapter,
// which no component besides the emulator's own fetch/load-store path
// needs.
func buildOpenFile(ataCtrl *ata.Controller) func(path string) ([]byte, error) {
	return func(path string) ([]byte, error) {
		lba, count, ok := parseATAPath(path)
		if !ok {
			return os.ReadFile(path)
		}
		buf := make([]byte, count*ata.SectorSize)
		if err := ataCtrl.ReadSectors(lba, count, buf); err != nil {
			return nil, fmt.Errorf("wavepod-sim: reading %s: %w", path, err)
		}
		return buf, nil
	}
}

// parseATAPath parses "ata://<lba>:<count>" into its fields. ok is
// false for any path not using the ata:// scheme, so the caller falls
// back to a plain filesystem read.
func parseATAPath(path string) (lba uint64, count uint32, ok bool) {
	const prefix = "ata://"
	if !strings.HasPrefix(path, prefix) {
		return 0, 0, false
	}
	rest := strings.TrimPrefix(path, prefix)
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lbaVal, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	countVal, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return 0, 0, false
	}
	return lbaVal, uint32(countVal), true
}
