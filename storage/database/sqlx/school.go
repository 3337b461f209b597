package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jifunze/jifunze/core/school"
)

type schoolRow struct {
	ID        int       `db:"id"`
	Name      string    `db:"name"`
	Address   *string   `db:"address"`
	Phone     *string   `db:"phone"`
	OwnerID   *int      `db:"owner_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r schoolRow) unrow() school.School {
	sch := school.School{
		ID:        r.ID,
		Name:      r.Name,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Address != nil {
		sch.Address = *r.Address
	}
	if r.Phone != nil {
		sch.Phone = *r.Phone
	}
	if r.OwnerID != nil {
		sch.OwnerID = *r.OwnerID
	}
	return sch
}

func unrowSchools(rows []schoolRow) []school.School {
	schools := make([]school.School, 0, len(rows))
	for _, r := range rows {
		schools = append(schools, r.unrow())
	}
	return schools
}

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

func (repo schoolRepository) CreateSchool(ctx context.Context, sch school.School) (school.School, error) {
	const query = `
		INSERT INTO schools (name, address, phone, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, 0), $5, $6)
		RETURNING id`
	err := repo.db.QueryRowContext(
		ctx, query,
		sch.Name, sch.Address, sch.Phone, sch.OwnerID, sch.CreatedAt, sch.UpdatedAt,
	).Scan(&sch.ID)
	if err != nil {
		return school.School{}, errors.Wrap(err, "inserting school")
	}
	return sch, nil
}

func (repo schoolRepository) GetSchoolByID(ctx context.Context, id int) (school.School, error) {
	var row schoolRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM schools WHERE id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return school.School{}, school.ErrNotFound
		}
		return school.School{}, errors.Wrap(err, "getting school")
	}
	return row.unrow(), nil
}

func (repo schoolRepository) QueryAllSchools(ctx context.Context) ([]school.School, error) {
	var rows []schoolRow
	if err := repo.db.SelectContext(ctx, &rows, "SELECT * FROM schools ORDER BY name ASC"); err != nil {
		return nil, errors.Wrap(err, "querying schools")
	}
	return unrowSchools(rows), nil
}

func (repo schoolRepository) QuerySchoolsByOwner(ctx context.Context, ownerID int) ([]school.School, error) {
	var rows []schoolRow
	err := repo.db.SelectContext(ctx, &rows, "SELECT * FROM schools WHERE owner_id = $1 ORDER BY name ASC", ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "querying schools by owner")
	}
	return unrowSchools(rows), nil
}

func (repo schoolRepository) UpdateSchool(ctx context.Context, sch school.School) (school.School, error) {
	const query = `
		UPDATE schools SET name = $1, address = $2, phone = $3, updated_at = $4
		WHERE id = $5`
	res, err := repo.db.ExecContext(ctx, query, sch.Name, sch.Address, sch.Phone, sch.UpdatedAt, sch.ID)
	if err != nil {
		return school.School{}, errors.Wrap(err, "updating school")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return school.School{}, school.ErrNotFound
	}
	return repo.GetSchoolByID(ctx, sch.ID)
}

func (repo schoolRepository) DeleteSchoolsByID(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In("DELETE FROM schools WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err := repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting schools")
	}
	return nil
}
