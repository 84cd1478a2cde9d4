package uploads

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyProcessing = errors.New("already processing")
)

const (
	ErrorCodeValidation        = "VALIDATION_ERROR"
	ErrorCodeExtraction        = "EXTRACTION_ERROR"
	ErrorCodeLLMTimeout        = "LLM_TIMEOUT"
	ErrorCodeLLMSchemaMismatch = "LLM_SCHEMA_MISMATCH"
	ErrorCodeStorage           = "STORAGE_ERROR"
	ErrorCodeLeaseExpired      = "LEASE_EXPIRED"
	ErrorCodeInternal          = "INTERNAL_ERROR"
)
