package ollama

import "time"

const (
	// GeneratePath is the Ollama completion endpoint relative to the server root.
	GeneratePath = "/api/generate"

	// TagsPath lists installed models; the prober polls it.
	TagsPath = "/api/tags"

	// DefaultTimeout bounds a single generate round trip.
	DefaultTimeout = 30 * time.Second

	// ProbeTimeout bounds a single liveness probe.
	ProbeTimeout = 5 * time.Second

	maxResponseBytes = 8 << 20
)
