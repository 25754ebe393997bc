package tenantrepofakes

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/OliverPistillo/Doflow-PaaS-sub003/tenants"
)

var _ tenants.Repo = (*FakeTenantRepo)(nil)

type FakeTenantRepo struct {
	tenants map[string]*tenants.Tenant
	lock    sync.RWMutex
}

func NewFakeTenantRepo() *FakeTenantRepo {
	return &FakeTenantRepo{
		tenants: make(map[string]*tenants.Tenant),
	}
}

func (tr *FakeTenantRepo) Upsert(tenantData *tenants.Tenant) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	if tenantData.ID == "" {
		tenantData.ID = uuid.New().String()
	}
	tr.tenants[tenantData.ID] = tenantData
	return nil
}

func (tr *FakeTenantRepo) Delete(tenantID string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	delete(tr.tenants, tenantID)
	return nil
}

func (tr *FakeTenantRepo) Get(tenantID string) (*tenants.Tenant, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	tenant, ok := tr.tenants[tenantID]
	if !ok {
		return nil, errors.New("not found")
	}
	return tenant, nil
}

func (tr *FakeTenantRepo) GetBySlug(slug string) (*tenants.Tenant, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	for _, tenant := range tr.tenants {
		if tenant.Slug == slug {
			return tenant, nil
		}
	}
	return nil, errors.New("not found")
}

func (tr *FakeTenantRepo) List(offset, limit int) ([]*tenants.Tenant, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	all := make([]*tenants.Tenant, 0, len(tr.tenants))
	for _, t := range tr.tenants {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []*tenants.Tenant{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}
