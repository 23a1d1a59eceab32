package constants

// RecordStatus is the lifecycle state of a tracked receipt item.
type RecordStatus string

// Stable values (persisted in snapshots, keep these exact strings).
const (
	StatusProcessing RecordStatus = "PROCESSING" // created at submission, before any analysis
	StatusSuccess    RecordStatus = "SUCCESS"    // terminal, fields populated
	StatusError      RecordStatus = "ERROR"      // terminal, error message retained
)
