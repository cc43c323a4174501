package repository

// ArtifactRepository files the collector's output document per run
type ArtifactRepository interface {
	// Relocate moves the pending output under runID; false when there was none
	Relocate(runID string) (bool, error)
	Open(runID string) ([]byte, error)
}
