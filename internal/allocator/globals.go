package allocator

import "unsafe"

// Global is the process-wide allocator instance. Mirrors the rest of
// this allocator family's singleton-plus-Initialize convenience layer;
// most callers want the package-level Alloc/Release/Resize/ZeroAlloc
// functions below rather than constructing their own Heap.
var Global *Heap

// Init installs the process-wide allocator, replacing any previous one.
func Init(opts ...Option) {
	Global = New(opts...)
}

func requireGlobal() *Heap {
	if Global == nil {
		panic("allocator: Global heap not initialized, call allocator.Init() first")
	}

	return Global
}

// Alloc allocates n bytes using the global allocator.
func Alloc(n uintptr) unsafe.Pointer { return requireGlobal().Alloc(n) }

// Release frees p using the global allocator.
func Release(p unsafe.Pointer) { requireGlobal().Release(p) }

// Resize resizes p to n bytes using the global allocator.
func Resize(p unsafe.Pointer, n uintptr) unsafe.Pointer { return requireGlobal().Resize(p, n) }

// ZeroAlloc allocates n*sz zeroed bytes using the global allocator.
func ZeroAlloc(sz, n uintptr) unsafe.Pointer { return requireGlobal().ZeroAlloc(sz, n) }

// GetStats returns the global allocator's statistics.
func GetStats() Stats {
	if Global == nil {
		return Stats{}
	}

	return Global.Stats()
}
