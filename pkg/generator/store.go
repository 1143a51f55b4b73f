package generator

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// JobStore keeps recent job records in a bounded LRU whose entries expire
// after the retention window. It is safe for concurrent use.
type JobStore struct {
	jobs *lru.LRU[string, *Job]
}

// NewJobStore creates a store holding at most size jobs for ttl each
func NewJobStore(size int, ttl time.Duration) *JobStore {
	if size <= 0 {
		size = 1024
	}
	return &JobStore{
		jobs: lru.NewLRU[string, *Job](size, nil, ttl),
	}
}

// Put records or replaces a job
func (s *JobStore) Put(job *Job) {
	s.jobs.Add(job.JobID, job)
}

// Get returns the job with the given id
func (s *JobStore) Get(jobID string) (*Job, error) {
	job, ok := s.jobs.Get(jobID)
	if !ok {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// Remove forgets a job
func (s *JobStore) Remove(jobID string) {
	s.jobs.Remove(jobID)
}

// Len returns the number of live records
func (s *JobStore) Len() int {
	return s.jobs.Len()
}
