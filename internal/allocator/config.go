package allocator

// Config holds the compile-time-equivalent tunables of the allocator.
// Real C allocators bake these in as preprocessor constants; here they are
// plain fields so tests can exercise alternate geometries without a
// separate build.
type Config struct {
	// Alignment every block start, payload start, header, footer and
	// canary must respect. Must be a power of two.
	Alignment uintptr

	// InitialHeapSize is the size of the arena synthesized on the first
	// allocation request.
	InitialHeapSize uintptr

	// MMAPThreshold is the payload size, inclusive, at which a request is
	// serviced by the large-block (mapped) path instead of the arena.
	MMAPThreshold uintptr

	// BinCount is the number of segregated free-list size classes.
	BinCount uint

	// EnableCanaries toggles writing and verifying the guard bytes after
	// every payload.
	EnableCanaries bool

	// EnablePoisoning toggles filling released/allocated payloads with
	// fixed byte patterns to expose use-after-free and use of
	// uninitialized memory.
	EnablePoisoning bool

	// EnableIntegrityChecks toggles a full heap-walk and free-list-walk
	// validation pass after every public API call. Expensive; intended
	// for tests and debug builds, not production use.
	EnableIntegrityChecks bool

	// Debug toggles trapping (panic with a diagnostic) on detected
	// misuse — double free, a foreign pointer, a corrupted canary —
	// instead of the release build's silent/undefined behavior.
	Debug bool
}

// Debug byte patterns. These match the values baked into the original
// allocator's debug build.
const (
	canaryByte      byte = 0xCC
	freePoisonByte  byte = 0xDD
	allocPoisonByte byte = 0xAA
)

// DefaultConfig returns the configuration used by production code:
// canaries, poisoning and trap-on-misuse on, the per-call integrity walk
// off, standard geometry.
func DefaultConfig() Config {
	return Config{
		Alignment:             16,
		InitialHeapSize:       4096,
		MMAPThreshold:         128 * 1024,
		BinCount:              32,
		EnableCanaries:        true,
		EnablePoisoning:       true,
		EnableIntegrityChecks: false,
		Debug:                 true,
	}
}

// Option mutates a Config. Mirrors the functional-options pattern used
// throughout the rest of the allocator family.
type Option func(*Config)

// WithAlignment overrides the scalar alignment.
func WithAlignment(alignment uintptr) Option {
	return func(c *Config) { c.Alignment = alignment }
}

// WithInitialHeapSize overrides the initial arena size.
func WithInitialHeapSize(size uintptr) Option {
	return func(c *Config) { c.InitialHeapSize = size }
}

// WithMMAPThreshold overrides the large-block cutover size.
func WithMMAPThreshold(threshold uintptr) Option {
	return func(c *Config) { c.MMAPThreshold = threshold }
}

// WithBinCount overrides the number of free-list size classes.
func WithBinCount(count uint) Option {
	return func(c *Config) { c.BinCount = count }
}

// WithCanaries toggles canary writing/verification.
func WithCanaries(enabled bool) Option {
	return func(c *Config) { c.EnableCanaries = enabled }
}

// WithPoisoning toggles poison-fill on alloc/free.
func WithPoisoning(enabled bool) Option {
	return func(c *Config) { c.EnablePoisoning = enabled }
}

// WithIntegrityChecks toggles the post-call heap/free-list walk.
func WithIntegrityChecks(enabled bool) Option {
	return func(c *Config) { c.EnableIntegrityChecks = enabled }
}

// WithDebug toggles trap-on-misuse behavior.
func WithDebug(enabled bool) Option {
	return func(c *Config) { c.Debug = enabled }
}

// ReleaseConfig returns a configuration with every debug facility
// disabled, matching a release build of the original C allocator: no
// canaries, no poisoning, undefined behavior on misuse instead of traps.
func ReleaseConfig() Config {
	c := DefaultConfig()
	c.EnableCanaries = false
	c.EnablePoisoning = false
	c.EnableIntegrityChecks = false
	c.Debug = false

	return c
}

func alignUp(size, alignment uintptr) uintptr {
	return (size + alignment - 1) &^ (alignment - 1)
}
