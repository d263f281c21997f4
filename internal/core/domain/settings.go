package domain

// Storage backends understood by the CLI wiring.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// Settings holds the resolved runtime configuration.
type Settings struct {
	// Backend is one of BackendMemory, BackendSQLite or BackendFile.
	Backend string

	// DataDir is the directory the SQLite and file backends store into.
	DataDir string

	// CacheCapacity bounds each repository's identity cache.
	// Zero means unbounded.
	CacheCapacity int

	// Verbose enables debug logging.
	Verbose bool
}

// IsValidBackend returns true if name is a known backend.
func IsValidBackend(name string) bool {
	switch name {
	case BackendMemory, BackendSQLite, BackendFile:
		return true
	default:
		return false
	}
}
