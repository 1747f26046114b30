package jobqueue

import (
	"encoding/json"
	"errors"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeSyncTranslation    JobType = "sync_translation"
	JobTypeSyncMarkets        JobType = "sync_markets"
	JobTypeBackupTranslations JobType = "backup_translations"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Shop        string                 `json:"shop"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	Result      string                 `json:"result,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// permanentError marks a failure that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the queue fails the job without retrying it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func isPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// SyncTranslationJobPayload publishes one resource in one language.
type SyncTranslationJobPayload struct {
	Shop         string `json:"shop"`
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	LanguageCode string `json:"language_code"`
	MarketID     string `json:"market_id"`
}

// ToMap converts the payload to a map for storage
func (p SyncTranslationJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"shop":          p.Shop,
		"resource_type": p.ResourceType,
		"resource_id":   p.ResourceID,
		"language_code": p.LanguageCode,
		"market_id":     p.MarketID,
	}
}

func SyncTranslationJobPayloadFromMap(data map[string]interface{}) (*SyncTranslationJobPayload, error) {
	return payloadFromMap[SyncTranslationJobPayload](data)
}

// ShopJobPayload is the payload of jobs that only need the shop:
// sync_markets and backup_translations.
type ShopJobPayload struct {
	Shop string `json:"shop"`
}

// ToMap converts the payload to a map for storage
func (p ShopJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{"shop": p.Shop}
}

func ShopJobPayloadFromMap(data map[string]interface{}) (*ShopJobPayload, error) {
	return payloadFromMap[ShopJobPayload](data)
}

func payloadFromMap[T any](data map[string]interface{}) (*T, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload T
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// IsFinished reports whether the job reached a terminal state. Jobs that
// will be retried are kept in JobStatusRetrying.
func (j *Job) IsFinished() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
