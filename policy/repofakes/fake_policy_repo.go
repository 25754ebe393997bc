package policyrepofakes

import (
	"context"
	"sync"

	"github.com/OliverPistillo/Doflow-PaaS-sub003/policy"
)

var _ policy.Repo = (*FakePolicyRepo)(nil)

type FakePolicyRepo struct {
	record policy.MFARoles
	getErr error
	lock   sync.RWMutex
}

func NewFakePolicyRepo() *FakePolicyRepo {
	return &FakePolicyRepo{}
}

func (r *FakePolicyRepo) Get(ctx context.Context) (policy.MFARoles, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	if r.record == nil {
		return nil, policy.ErrNoRecord
	}
	out := make(policy.MFARoles, len(r.record))
	for k, v := range r.record {
		out[k] = v
	}
	return out, nil
}

func (r *FakePolicyRepo) Upsert(ctx context.Context, roles policy.MFARoles) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.record = roles
	return nil
}

// FailReadsWith makes every Get return err (simulates an unreachable store).
func (r *FakePolicyRepo) FailReadsWith(err error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.getErr = err
}
