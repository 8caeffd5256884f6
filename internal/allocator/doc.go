// Package allocator implements a process-wide dynamic memory allocator
// in the style of a C heap: a segregated-free-list block manager over a
// program-break arena that grows by doubling, plus a direct OS-mapped
// path for large requests. It is single-threaded and non-reentrant by
// design — callers that need concurrent access must serialize
// externally, exactly like the C allocator it is modeled on.
package allocator
