package memory

import (
	"context"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// Submission is one payload received by a Submitter.
type Submission struct {
	Source  domain.DataSource
	Payload any
}

// Submitter implements ports.Submitter by recording submissions and echoing
// a fixed response.
type Submitter struct {
	mu          sync.Mutex
	submissions []Submission
	Response    any
}

// Submit records the payload.
func (s *Submitter) Submit(ctx context.Context, source domain.DataSource, payload any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = append(s.submissions, Submission{Source: source, Payload: domain.DeepCopy(payload)})
	if s.Response != nil {
		return s.Response, nil
	}
	return map[string]any{"status": "Submit Succeeded"}, nil
}

// Submissions returns the recorded submissions in order.
func (s *Submitter) Submissions() []Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Submission(nil), s.submissions...)
}
