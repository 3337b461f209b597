package school

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("school not found")

type (
	Repository interface {
		CreateSchool(ctx context.Context, sch School) (School, error)
		GetSchoolByID(ctx context.Context, id int) (School, error)
		QueryAllSchools(ctx context.Context) ([]School, error)
		QuerySchoolsByOwner(ctx context.Context, ownerID int) ([]School, error)
		UpdateSchool(ctx context.Context, sch School) (School, error)
		DeleteSchoolsByID(ctx context.Context, ids ...int) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ownerID int, ns NewSchool) (School, error) {
	now := time.Now().UTC()
	sch := School{
		Name:      ns.Name,
		Address:   ns.Address,
		Phone:     ns.Phone,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateSchool(ctx, sch)
}

func (svc *Service) GetByID(ctx context.Context, id int) (School, error) {
	return svc.repo.GetSchoolByID(ctx, id)
}

func (svc *Service) QueryAll(ctx context.Context) ([]School, error) {
	return svc.repo.QueryAllSchools(ctx)
}

func (svc *Service) QueryByOwner(ctx context.Context, ownerID int) ([]School, error) {
	return svc.repo.QuerySchoolsByOwner(ctx, ownerID)
}

func (svc *Service) Update(ctx context.Context, id int, us UpdateSchool) (School, error) {
	sch := School{
		ID:        id,
		Name:      us.Name,
		Address:   us.Address,
		Phone:     us.Phone,
		UpdatedAt: time.Now().UTC(),
	}
	return svc.repo.UpdateSchool(ctx, sch)
}

func (svc *Service) Delete(ctx context.Context, ids ...int) error {
	return svc.repo.DeleteSchoolsByID(ctx, ids...)
}
