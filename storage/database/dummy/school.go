package dummydb

import (
	"context"
	"sort"

	"github.com/jifunze/jifunze/core/school"
)

type schoolRepository struct {
	db *schoolTable
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db.school}
}

func (repo *schoolRepository) query() []school.School {
	schools := make([]school.School, 0, len(repo.db.table))
	for _, sch := range repo.db.table {
		schools = append(schools, *sch)
	}
	sort.Slice(schools, func(i, j int) bool { return schools[i].Name < schools[j].Name })
	return schools
}

func (repo *schoolRepository) CreateSchool(ctx context.Context, sch school.School) (school.School, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.seq++
	sch.ID = repo.db.seq
	repo.db.table[sch.ID] = &sch
	return sch, nil
}

func (repo *schoolRepository) GetSchoolByID(ctx context.Context, id int) (school.School, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sch, ok := repo.db.table[id]; ok {
		return *sch, nil
	}
	return school.School{}, school.ErrNotFound
}

func (repo *schoolRepository) QueryAllSchools(ctx context.Context) ([]school.School, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(), nil
}

func (repo *schoolRepository) QuerySchoolsByOwner(ctx context.Context, ownerID int) ([]school.School, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var schools []school.School
	for _, sch := range repo.query() {
		if sch.OwnerID == ownerID {
			schools = append(schools, sch)
		}
	}
	return schools, nil
}

func (repo *schoolRepository) UpdateSchool(ctx context.Context, sch school.School) (school.School, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	cur, ok := repo.db.table[sch.ID]
	if !ok {
		return school.School{}, school.ErrNotFound
	}
	if sch.Name != "" {
		cur.Name = sch.Name
	}
	if sch.Address != "" {
		cur.Address = sch.Address
	}
	if sch.Phone != "" {
		cur.Phone = sch.Phone
	}
	if !sch.UpdatedAt.IsZero() {
		cur.UpdatedAt = sch.UpdatedAt
	}
	return *cur, nil
}

func (repo *schoolRepository) DeleteSchoolsByID(ctx context.Context, ids ...int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
