package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jifunze/jifunze/core/resource"
)

type resourceRow struct {
	ID         int       `db:"id"`
	CourseID   int       `db:"course_id"`
	UploadedBy int       `db:"uploaded_by"`
	Title      string    `db:"title"`
	URL        string    `db:"url"`
	Type       string    `db:"type"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r resourceRow) unrow() resource.Resource {
	return resource.Resource{
		ID:         r.ID,
		CourseID:   r.CourseID,
		UploadedBy: r.UploadedBy,
		Title:      r.Title,
		URL:        r.URL,
		Type:       r.Type,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type resourceRepository struct {
	db *sqlx.DB
}

var _ resource.Repository = (*resourceRepository)(nil) // interface compliance check

func NewResourceRepository(db *sqlx.DB) *resourceRepository {
	return &resourceRepository{db: db}
}

func (repo resourceRepository) CreateResource(ctx context.Context, res resource.Resource) (resource.Resource, error) {
	const query = `
		INSERT INTO resources (course_id, uploaded_by, title, url, type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	err := repo.db.QueryRowContext(
		ctx, query,
		res.CourseID, res.UploadedBy, res.Title, res.URL, res.Type, res.CreatedAt, res.UpdatedAt,
	).Scan(&res.ID)
	if err != nil {
		return resource.Resource{}, errors.Wrap(err, "inserting resource")
	}
	return res, nil
}

func (repo resourceRepository) GetResourceByID(ctx context.Context, id int) (resource.Resource, error) {
	var row resourceRow
	const query = `SELECT * FROM resources WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return resource.Resource{}, resource.ErrNotFound
		}
		return resource.Resource{}, errors.Wrap(err, "getting resource")
	}
	return row.unrow(), nil
}

func (repo resourceRepository) QueryResourcesByCourse(ctx context.Context, courseID int) ([]resource.Resource, error) {
	var rows []resourceRow
	const query = `SELECT * FROM resources WHERE course_id = $1 ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, errors.Wrap(err, "querying resources")
	}
	resources := make([]resource.Resource, 0, len(rows))
	for _, r := range rows {
		resources = append(resources, r.unrow())
	}
	return resources, nil
}

func (repo resourceRepository) UpdateResource(ctx context.Context, res resource.Resource) (resource.Resource, error) {
	const query = `
		UPDATE resources SET title = $1, url = $2, type = $3, updated_at = $4
		WHERE id = $5`
	result, err := repo.db.ExecContext(ctx, query, res.Title, res.URL, res.Type, res.UpdatedAt, res.ID)
	if err != nil {
		return resource.Resource{}, errors.Wrap(err, "updating resource")
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return resource.Resource{}, resource.ErrNotFound
	}
	return repo.GetResourceByID(ctx, res.ID)
}

func (repo resourceRepository) DeleteResourcesByID(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In("DELETE FROM resources WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err := repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting resources")
	}
	return nil
}
