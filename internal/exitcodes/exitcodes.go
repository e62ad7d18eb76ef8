package exitcodes

// Exit codes for unletterbox
// These codes form the operational contract with scripts and operators
const (
	Success          = 0 // Every file processed or skipped
	ProcessingFailed = 1 // A file or directory failed and ended the run
	InvalidConfig    = 2 // Flags or configuration file invalid
	InputNotFound    = 3 // Input path does not exist
	SafetyViolation  = 4 // Safety validator refused the input
)
