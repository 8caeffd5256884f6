// Command allocdemo exercises the allocator package end to end: it
// allocates, resizes, and releases a handful of blocks and prints the
// arena (unless -dump-arena=false), the free lists (only with
// -dump-free-lists) and running statistics, the way the original
// allocator's own diagnostic CLI did.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kestrelheap/heapcore/internal/allocator"
)

func main() {
	var (
		heapSize  = flag.Int("heap-size", 4096, "initial arena size in bytes")
		debug     = flag.Bool("debug", true, "trap on detected misuse instead of undefined behavior")
		dumpArena = flag.Bool("dump-arena", true, "print the arena block layout after the demo run")
		dumpFree  = flag.Bool("dump-free-lists", false, "print every free-list size class after the demo run")
	)

	flag.Parse()

	h := allocator.New(
		allocator.WithInitialHeapSize(uintptr(*heapSize)),
		allocator.WithDebug(*debug),
	)

	a := h.Alloc(64)
	b := h.Alloc(128)
	c := h.Alloc(32)

	if a == nil || b == nil || c == nil {
		fmt.Fprintln(os.Stderr, "allocdemo: allocation failed")
		os.Exit(1)
	}

	h.Release(b)

	grown := h.Resize(a, 256)
	if grown == nil {
		fmt.Fprintln(os.Stderr, "allocdemo: resize failed")
		os.Exit(1)
	}

	h.Release(grown)
	h.Release(c)

	if err := h.CheckHeap(); err != nil {
		fmt.Fprintln(os.Stderr, "allocdemo: heap check failed:", err)
		os.Exit(1)
	}

	if *dumpArena {
		h.DumpArena(os.Stdout)
	}

	if *dumpFree {
		h.DumpFreeLists(os.Stdout)
	}

	h.PrintStats(os.Stdout)
}
