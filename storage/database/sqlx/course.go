package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jifunze/jifunze/core/course"
)

type courseRow struct {
	ID          int       `db:"id"`
	Title       string    `db:"title"`
	Description *string   `db:"description"`
	EducatorID  int       `db:"educator_id"`
	SchoolID    int       `db:"school_id"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r courseRow) unrow() course.Course {
	crs := course.Course{
		ID:         r.ID,
		Title:      r.Title,
		EducatorID: r.EducatorID,
		SchoolID:   r.SchoolID,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.Description != nil {
		crs.Description = *r.Description
	}
	return crs
}

func unrowCourses(rows []courseRow) []course.Course {
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.unrow())
	}
	return courses
}

type enrollmentRow struct {
	ID           int       `db:"id"`
	UserID       int       `db:"user_id"`
	UserPublicID string    `db:"user_public_id"`
	CourseID     int       `db:"course_id"`
	DateEnrolled time.Time `db:"date_enrolled"`
}

func (r enrollmentRow) unrow() course.Enrollment {
	return course.Enrollment{
		ID:           r.ID,
		UserID:       r.UserID,
		UserPublicID: r.UserPublicID,
		CourseID:     r.CourseID,
		DateEnrolled: r.DateEnrolled,
	}
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	const query = `
		INSERT INTO courses (title, description, educator_id, school_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := repo.db.QueryRowContext(
		ctx, query,
		crs.Title, crs.Description, crs.EducatorID, crs.SchoolID, crs.CreatedAt, crs.UpdatedAt,
	).Scan(&crs.ID)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id int) (course.Course, error) {
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM courses WHERE id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "getting course")
	}
	return row.unrow(), nil
}

func (repo courseRepository) queryCourses(ctx context.Context, query string, args ...interface{}) ([]course.Course, error) {
	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return unrowCourses(rows), nil
}

func (repo courseRepository) QueryCoursesBySchool(ctx context.Context, schoolID int) ([]course.Course, error) {
	return repo.queryCourses(ctx, "SELECT * FROM courses WHERE school_id = $1 ORDER BY title ASC", schoolID)
}

func (repo courseRepository) QueryCoursesByEducator(ctx context.Context, educatorID int) ([]course.Course, error) {
	return repo.queryCourses(ctx, "SELECT * FROM courses WHERE educator_id = $1 ORDER BY title ASC", educatorID)
}

func (repo courseRepository) QueryCoursesByStudent(ctx context.Context, userID int) ([]course.Course, error) {
	const query = `
		SELECT c.* FROM courses c
		JOIN enrollments e ON e.course_id = c.id
		WHERE e.user_id = $1
		ORDER BY c.title ASC`
	return repo.queryCourses(ctx, query, userID)
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	const query = `
		UPDATE courses SET title = $1, description = $2, updated_at = $3
		WHERE id = $4`
	res, err := repo.db.ExecContext(ctx, query, crs.Title, crs.Description, crs.UpdatedAt, crs.ID)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return repo.GetCourseByID(ctx, crs.ID)
}

func (repo courseRepository) DeleteCoursesByID(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In("DELETE FROM courses WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err := repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting courses")
	}
	return nil
}

func (repo courseRepository) CreateEnrollment(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	const query = `
		INSERT INTO enrollments (user_id, course_id, date_enrolled)
		VALUES ($1, $2, $3)
		RETURNING id`
	err := repo.db.QueryRowContext(ctx, query, enr.UserID, enr.CourseID, enr.DateEnrolled).Scan(&enr.ID)
	if err != nil {
		return course.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return enr, nil
}

func (repo courseRepository) queryEnrollments(ctx context.Context, where string, arg interface{}) ([]course.Enrollment, error) {
	query := `
		SELECT e.id, e.user_id, u.public_id AS user_public_id, e.course_id, e.date_enrolled
		FROM enrollments e
		JOIN users u ON u.id = e.user_id
		WHERE ` + where + `
		ORDER BY e.date_enrolled ASC`
	var rows []enrollmentRow
	if err := repo.db.SelectContext(ctx, &rows, query, arg); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrollments := make([]course.Enrollment, 0, len(rows))
	for _, r := range rows {
		enrollments = append(enrollments, r.unrow())
	}
	return enrollments, nil
}

func (repo courseRepository) QueryEnrollmentsByCourse(ctx context.Context, courseID int) ([]course.Enrollment, error) {
	return repo.queryEnrollments(ctx, "e.course_id = $1", courseID)
}

func (repo courseRepository) QueryEnrollmentsByUser(ctx context.Context, userID int) ([]course.Enrollment, error) {
	return repo.queryEnrollments(ctx, "e.user_id = $1", userID)
}

func (repo courseRepository) EnrollmentExists(ctx context.Context, userID, courseID int) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM enrollments WHERE user_id = $1 AND course_id = $2)`
	if err := repo.db.GetContext(ctx, &exists, query, userID, courseID); err != nil {
		return false, errors.Wrap(err, "checking enrollment")
	}
	return exists, nil
}

func (repo courseRepository) DeleteEnrollment(ctx context.Context, userID, courseID int) error {
	const query = `DELETE FROM enrollments WHERE user_id = $1 AND course_id = $2`
	if _, err := repo.db.ExecContext(ctx, query, userID, courseID); err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	return nil
}
