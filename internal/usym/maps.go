package usym

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Segment is one file-backed mapping from a process's /proc/<pid>/maps.
// Anonymous mappings (heap, stack, vdso, and similar bracketed
// pseudo-paths) are dropped at parse time: there is no ELF behind them to
// symbolize.
type Segment struct {
	Start      uint64
	End        uint64
	FileOffset uint64
	Path       string
}

// ReadMaps snapshots the file-backed segments of pid's address space. The
// snapshot is taken once, at session init, per spec: a profiling session
// does not track mmap/munmap churn mid-run.
func ReadMaps(pid int) ([]Segment, error) {
	path := fmt.Sprintf("/proc/%d/maps", pid)
	data, err := os.ReadFile(path) // #nosec G304 -- pid is a validated int, path is not user-controlled text
	if err != nil {
		return nil, fmt.Errorf("usym: read %s: %w", path, err)
	}
	return parseMaps(string(data)), nil
}

// parseMaps parses the text of a /proc/<pid>/maps file.
func parseMaps(contents string) []Segment {
	var segments []Segment
	for _, line := range strings.Split(contents, "\n") {
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}

		bounds := strings.SplitN(fields[0], "-", 2)
		if len(bounds) != 2 {
			continue
		}
		start, err := strconv.ParseUint(bounds[0], 16, 64)
		if err != nil {
			continue
		}
		end, err := strconv.ParseUint(bounds[1], 16, 64)
		if err != nil {
			continue
		}
		fileOffset, err := strconv.ParseUint(fields[2], 16, 64)
		if err != nil {
			continue
		}

		var mappedPath string
		if len(fields) >= 6 {
			mappedPath = fields[5]
		}
		if mappedPath == "" || strings.HasPrefix(mappedPath, "[") {
			continue
		}

		segments = append(segments, Segment{
			Start:      start,
			End:        end,
			FileOffset: fileOffset,
			Path:       mappedPath,
		})
	}

	return segments
}

// find returns the segment containing addr, if any.
func find(segments []Segment, addr uint64) (Segment, bool) {
	for _, s := range segments {
		if addr >= s.Start && addr < s.End {
			return s, true
		}
	}
	return Segment{}, false
}
