package usym

import (
	"debug/elf"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ntGNUBuildID is the ELF note type for a GNU build-id, as defined by the
// System V ABI / binutils (NT_GNU_BUILD_ID = 3).
const ntGNUBuildID = 3

// ExtractBuildID reads the .note.gnu.build-id section of path and returns
// its hex-encoded identifier. Unlike a content hash, this only works when
// the binary was linked with --build-id (the default on most modern
// toolchains); a binary without the section returns an error.
func ExtractBuildID(path string) (string, error) {
	f, err := elf.Open(path)
	if err != nil {
		return "", fmt.Errorf("usym: open %s: %w", path, err)
	}
	defer f.Close() // nolint:errcheck

	for _, sec := range f.Sections {
		if sec.Name != ".note.gnu.build-id" {
			continue
		}
		data, err := sec.Data()
		if err != nil {
			continue
		}
		if id, ok := parseBuildIDNote(data, f.ByteOrder); ok {
			return id, nil
		}
	}

	return "", fmt.Errorf("usym: no build-id note in %s", path)
}

// parseBuildIDNote walks the ELF note records in data looking for a
// GNU-namespace NT_GNU_BUILD_ID entry. The note layout is
// namesz(4) descsz(4) type(4) name(namesz, 4-byte aligned) desc(descsz,
// 4-byte aligned).
func parseBuildIDNote(data []byte, order binary.ByteOrder) (string, bool) {
	for len(data) >= 12 {
		namesz := order.Uint32(data[0:4])
		descsz := order.Uint32(data[4:8])
		noteType := order.Uint32(data[8:12])

		off := 12
		nameEnd := off + int(namesz)
		if nameEnd > len(data) {
			return "", false
		}
		name := strings.TrimRight(string(data[off:nameEnd]), "\x00")

		off = align4(nameEnd)
		descEnd := off + int(descsz)
		if descEnd > len(data) {
			return "", false
		}
		desc := data[off:descEnd]

		if name == "GNU" && noteType == ntGNUBuildID {
			return hex.EncodeToString(desc), true
		}

		data = data[align4(descEnd):]
	}
	return "", false
}

func align4(n int) int {
	return (n + 3) &^ 3
}

// FindDebugInfo locates separate debug information for binaryPath,
// trying the build-id path first and falling back to the absolute-path
// convention under /usr/lib/debug. It reports ok=false when neither
// exists, leaving the caller to symbolize the original binary as-is.
func FindDebugInfo(binaryPath string) (string, bool) {
	if id, err := ExtractBuildID(binaryPath); err == nil && len(id) > 2 {
		candidate := filepath.Join("/usr/lib/debug/.build-id", id[:2], id[2:]+".debug")
		if fileExists(candidate) {
			return candidate, true
		}
	}

	if filepath.IsAbs(binaryPath) {
		candidate := filepath.Join("/usr/lib/debug", binaryPath)
		if fileExists(candidate) {
			return candidate, true
		}
	}

	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
