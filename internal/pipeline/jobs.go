package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// JobStatus represents the state of a chapter-build job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusParsing    JobStatus = "parsing"
	StatusAssembling JobStatus = "assembling"
	StatusStoring    JobStatus = "storing"
	StatusLoading    JobStatus = "loading"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusPartial    JobStatus = "partial"
	StatusDupSkipped JobStatus = "duplicate_skipped"
)

// Job tracks the state of a single chapter build.
type Job struct {
	mu sync.Mutex

	ID string `json:"job_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Title    string    `json:"title"`

	// Subject and PagesCovered are optional caller-supplied metadata.
	Subject      string `json:"subject,omitempty"`
	PagesCovered string `json:"pages_covered,omitempty"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	OutputPath  string    `json:"output_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	document []byte
	errors   []string
}

// Progress tracks processing progress.
type Progress struct {
	Pages    int      `json:"pages"`
	Rubrics  int      `json:"rubrics"`
	Remedies int      `json:"remedies"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.updatedAt()) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// updatedAt reads the last-touched time under the job lock, since workers
// update it concurrently with store cleanup.
func (j *Job) updatedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.UpdatedAt
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// AddWarning records a non-fatal parse warning.
func (j *Job) AddWarning(text string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Warnings = append(j.Progress.Warnings, text)
	j.UpdatedAt = time.Now()
}

// SetCounts records the assembled document's shape.
func (j *Job) SetCounts(pages, rubrics, remedies int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Pages = pages
	j.Progress.Rubrics = rubrics
	j.Progress.Remedies = remedies
	j.UpdatedAt = time.Now()
}

// SetOutputPath records where the document was written.
func (j *Job) SetOutputPath(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.OutputPath = path
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// SetDocument stores the serialized chapter for later retrieval.
func (j *Job) SetDocument(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.document = data
}

// Document returns the serialized chapter, or nil if not yet assembled.
func (j *Job) Document() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.document
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID           string    `json:"job_id"`
	Status       JobStatus `json:"status"`
	Phase        string    `json:"phase"`
	Filename     string    `json:"filename"`
	Title        string    `json:"title"`
	Subject      string    `json:"subject,omitempty"`
	PagesCovered string    `json:"pages_covered,omitempty"`
	OutputPath   string    `json:"output_path,omitempty"`
	Progress     Progress  `json:"progress"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	warns := j.Progress.Warnings
	if warns == nil {
		warns = []string{}
	}
	return JobSnapshot{
		ID:           j.ID,
		Status:       j.Status,
		Phase:        j.Phase,
		Filename:     j.Filename,
		Title:        j.Title,
		Subject:      j.Subject,
		PagesCovered: j.PagesCovered,
		OutputPath:   j.OutputPath,
		Progress: Progress{
			Pages:    j.Progress.Pages,
			Rubrics:  j.Progress.Rubrics,
			Remedies: j.Progress.Remedies,
			Warnings: warns,
			Errors:   errs,
		},
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
