//go:build linux

package store

import (
	"os"
	"strconv"
	"strings"
)

// readMaxMapCount reads vm.max_map_count, the kernel ceiling on live mmap
// regions. 0 means "unknown" (never refuse a mapping).
func readMaxMapCount() int64 {
	data, err := os.ReadFile("/proc/sys/vm/max_map_count")
	if err != nil {
		return 0
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
