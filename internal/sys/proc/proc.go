// Package proc provides utilities for process discovery on Linux systems.
// It parses the /proc filesystem for thread enumeration and kernel symbols.
package proc

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ListThreads returns the thread IDs (kernel task IDs) belonging to pid, by
// enumerating /proc/<pid>/task. Thread IDs are sorted in ascending order.
// The calling process owning pid, and threads that exit between the
// directory read and a later operation, are the caller's concern: a
// thread ID returned here may already be gone by the time it is used.
func ListThreads(pid int) ([]int, error) {
	taskDir := filepath.Join("/proc", strconv.Itoa(pid), "task")
	entries, err := os.ReadDir(taskDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", taskDir, err)
	}

	var tids []int
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		tid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue // Not a numeric directory.
		}
		tids = append(tids, tid)
	}
	sort.Ints(tids)

	return tids, nil
}

// KernelSymbol represents a kernel symbol from /proc/kallsyms.
type KernelSymbol struct {
	Address uint64
	Type    byte
	Name    string
	Module  string // Empty for core kernel, module name for loadable modules
}

// ReadKallsyms reads and parses /proc/kallsyms.
// It returns a list of symbols and the count of zero addresses found (indicating permission issues).
func ReadKallsyms() ([]KernelSymbol, int, error) {
	file, err := os.Open("/proc/kallsyms")
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open /proc/kallsyms: %w", err)
	}
	defer file.Close() // nolint:errcheck

	var symbols []KernelSymbol
	scanner := bufio.NewScanner(file)
	zeroAddresses := 0

	for scanner.Scan() {
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) < 3 {
			continue
		}

		// Parse address
		var addr uint64
		if _, err := fmt.Sscanf(parts[0], "%x", &addr); err != nil {
			continue
		}

		// Check for zero addresses (means insufficient permissions)
		if addr == 0 {
			zeroAddresses++
			continue
		}

		// Parse symbol type and name
		symType := parts[1][0]
		symName := parts[2]

		// Parse optional module name [module_name]
		var module string
		if len(parts) > 3 && strings.HasPrefix(parts[3], "[") && strings.HasSuffix(parts[3], "]") {
			module = strings.Trim(parts[3], "[]")
		}

		symbols = append(symbols, KernelSymbol{
			Address: addr,
			Type:    symType,
			Name:    symName,
			Module:  module,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, zeroAddresses, fmt.Errorf("failed to read /proc/kallsyms: %w", err)
	}

	return symbols, zeroAddresses, nil
}
