package controller

import (
	"runtime"

	"github.com/prometheus/procfs"
)

// Memory is the result of a resource health check.
type Memory struct {
	HeapAlloc uint64 // Go heap in use
	Available uint64 // system memory available to new work, estimate
}

// ReadMemory samples the Go runtime and /proc/meminfo. When MemAvailable is
// not exposed, Available falls back to the idle heap the runtime could reuse.
func ReadMemory() Memory {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m := Memory{HeapAlloc: ms.HeapAlloc}

	if fs, err := procfs.NewDefaultFS(); err == nil {
		if mi, err := fs.Meminfo(); err == nil && mi.MemAvailable != nil {
			m.Available = *mi.MemAvailable * 1024
			return m
		}
	}
	m.Available = ms.HeapIdle - ms.HeapReleased
	return m
}
