package constants

// Common string constants used throughout the codebase
const (
	// Log levels
	ErrorLevel = "error"

	// Environments
	ProdEnvironment = "prod"

	// Request types accepted by the notification batch
	RequestTypeSDD = "SDD"

	// Payee notifiable flag value
	NotifiableFlagYes = "Y"

	// Record statuses
	SentStatus             = "SENT"
	SkippedDuplicateStatus = "SKIPPED_DUPLICATE"
	FailedStatus           = "FAILED"

	// Dedup backends
	DedupBackendPostgres = "postgres"
	DedupBackendRedis    = "redis"
	DedupBackendMemory   = "memory"

	// Email tags
	NotificationCategory = "sdd_notification"
)
