package analyses

// Failure classes reported by ClassifyFailure.
const (
	ErrorCodeAnalyzerTimeout     = "ANALYZER_TIMEOUT"
	ErrorCodeAnalyzerUnavailable = "ANALYZER_UNAVAILABLE"
	ErrorCodeStorage             = "STORAGE_ERROR"
	ErrorCodeInternal            = "INTERNAL_ERROR"
)
