package proc

import (
	"os"
	"testing"
)

func TestListThreads(t *testing.T) {
	tids, err := ListThreads(os.Getpid())
	if err != nil {
		if os.Getenv("GOOS") == "linux" {
			t.Errorf("ListThreads returned error on Linux: %v", err)
		}
		return
	}

	if len(tids) == 0 {
		t.Error("ListThreads returned 0 threads for own process")
	}
}

func TestListThreadsNoSuchProcess(t *testing.T) {
	_, err := ListThreads(1 << 30)
	if err == nil && os.Getenv("GOOS") == "linux" {
		t.Error("ListThreads expected error for nonexistent pid")
	}
}

func TestReadKallsyms(t *testing.T) {
	symbols, zeroAddresses, err := ReadKallsyms()
	if err != nil {
		// On non-Linux or without permissions, this might fail or return errors.
		// If /proc/kallsyms doesn't exist (macOS), it returns error.
		if os.Getenv("GOOS") == "linux" {
			// If we are root, we should get symbols. If not, we might get zeroAddresses > 0.
			if os.Geteuid() == 0 {
				if len(symbols) == 0 {
					t.Error("ReadKallsyms returned 0 symbols as root")
				}
			} else {
				// Non-root might see zero addresses
				if len(symbols) == 0 && zeroAddresses == 0 {
					// This could be strange on Linux unless kptr_restrict is very strict?
					t.Logf("ReadKallsyms returned error/empty on Linux: %v", err)
				}
			}
		}
		return
	}

	if len(symbols) > 0 {
		t.Logf("ReadKallsyms returned %d symbols", len(symbols))
	} else if zeroAddresses > 0 {
		t.Logf("ReadKallsyms found %d zero addresses (permissions)", zeroAddresses)
	}
}
