package dummydb

import (
	"context"
	"sort"

	"github.com/jifunze/jifunze/core/resource"
)

type resourceRepository struct {
	db *resourceTable
}

var _ resource.Repository = (*resourceRepository)(nil) // interface compliance check

func NewResourceRepository(db *DB) *resourceRepository {
	return &resourceRepository{db: db.resource}
}

func (repo *resourceRepository) CreateResource(ctx context.Context, res resource.Resource) (resource.Resource, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.seq++
	res.ID = repo.db.seq
	repo.db.table[res.ID] = &res
	return res, nil
}

func (repo *resourceRepository) GetResourceByID(ctx context.Context, id int) (resource.Resource, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if res, ok := repo.db.table[id]; ok {
		return *res, nil
	}
	return resource.Resource{}, resource.ErrNotFound
}

func (repo *resourceRepository) QueryResourcesByCourse(ctx context.Context, courseID int) ([]resource.Resource, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	resources := make([]resource.Resource, 0)
	for _, res := range repo.db.table {
		if res.CourseID == courseID {
			resources = append(resources, *res)
		}
	}
	// newest first, like the SQL repository
	sort.Slice(resources, func(i, j int) bool { return resources[i].CreatedAt.After(resources[j].CreatedAt) })
	return resources, nil
}

func (repo *resourceRepository) UpdateResource(ctx context.Context, res resource.Resource) (resource.Resource, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	cur, ok := repo.db.table[res.ID]
	if !ok {
		return resource.Resource{}, resource.ErrNotFound
	}
	if res.Title != "" {
		cur.Title = res.Title
	}
	if res.URL != "" {
		cur.URL = res.URL
	}
	if res.Type != "" {
		cur.Type = res.Type
	}
	if !res.UpdatedAt.IsZero() {
		cur.UpdatedAt = res.UpdatedAt
	}
	return *cur, nil
}

func (repo *resourceRepository) DeleteResourcesByID(ctx context.Context, ids ...int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
