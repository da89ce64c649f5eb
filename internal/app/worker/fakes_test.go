package worker

import (
	"context"
	"sync"
	"time"

	"sqlgym/internal/common"
	"sqlgym/internal/domain/model"
)

type fakeSubmissionRepo struct {
	mu   sync.Mutex
	subs map[string]*model.Submission
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{subs: make(map[string]*model.Submission)}
}

func (f *fakeSubmissionRepo) CreateSubmission(_ context.Context, sub *model.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[sub.ID] = sub
	return nil
}

func (f *fakeSubmissionRepo) GetSubmissionByID(_ context.Context, id string) (*model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return sub, nil
}

type fakeProblemRepo struct {
	problems map[string]*model.Problem
}

func newFakeProblemRepo(problems ...*model.Problem) *fakeProblemRepo {
	m := make(map[string]*model.Problem, len(problems))
	for _, p := range problems {
		m[p.ID] = p
	}
	return &fakeProblemRepo{problems: m}
}

func (f *fakeProblemRepo) FindProblemByID(_ context.Context, id string) (*model.Problem, error) {
	p, ok := f.problems[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return p, nil
}

type fakeResultRepo struct {
	mu      sync.Mutex
	results map[string]*model.ExecutionResult
	inserts int
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{results: make(map[string]*model.ExecutionResult)}
}

func (f *fakeResultRepo) CreateResult(_ context.Context, res *model.ExecutionResult) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.results[res.SubmissionID]; exists {
		return false, nil
	}
	f.results[res.SubmissionID] = res
	f.inserts++
	return true, nil
}

func (f *fakeResultRepo) GetResultBySubmissionID(_ context.Context, submissionID string) (*model.ExecutionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.results[submissionID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return res, nil
}

func (f *fakeResultRepo) ResultExists(_ context.Context, submissionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.results[submissionID]
	return ok, nil
}

func (f *fakeResultRepo) insertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inserts
}

type fakeFallbackRepo struct {
	mu   sync.Mutex
	recs []*model.FallbackRecord
}

func newFakeFallbackRepo() *fakeFallbackRepo {
	return &fakeFallbackRepo{}
}

func (f *fakeFallbackRepo) CreateRecord(_ context.Context, rec *model.FallbackRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeFallbackRepo) ClaimNext(_ context.Context) (*model.FallbackRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.recs {
		if rec.Status == model.FallbackStatusPending {
			rec.Status = model.FallbackStatusProcessing
			now := time.Now().UTC()
			rec.ProcessedAt = &now
			return rec, nil
		}
	}
	return nil, nil
}

func (f *fakeFallbackRepo) MarkCompleted(_ context.Context, id string) error {
	return f.setStatus(id, model.FallbackStatusCompleted)
}

func (f *fakeFallbackRepo) MarkFailed(_ context.Context, id string) error {
	return f.setStatus(id, model.FallbackStatusFailed)
}

func (f *fakeFallbackRepo) setStatus(id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.recs {
		if rec.ID == id {
			rec.Status = status
			now := time.Now().UTC()
			rec.ProcessedAt = &now
			return nil
		}
	}
	return common.ErrNotFound
}

func (f *fakeFallbackRepo) ReleaseStale(_ context.Context, age time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := time.Now().UTC().Add(-age)
	released := 0
	for _, rec := range f.recs {
		if rec.Status == model.FallbackStatusProcessing && rec.ProcessedAt != nil && rec.ProcessedAt.Before(cutoff) {
			rec.Status = model.FallbackStatusPending
			rec.ProcessedAt = nil
			released++
		}
	}
	return released, nil
}

func (f *fakeFallbackRepo) CountPending(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, rec := range f.recs {
		if rec.Status == model.FallbackStatusPending {
			count++
		}
	}
	return count, nil
}

func (f *fakeFallbackRepo) records() []*model.FallbackRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.FallbackRecord, len(f.recs))
	copy(out, f.recs)
	return out
}

func (f *fakeFallbackRepo) statusOf(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.recs {
		if rec.ID == id {
			return rec.Status
		}
	}
	return ""
}
