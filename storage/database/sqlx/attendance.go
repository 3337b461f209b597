package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jifunze/jifunze/core/attendance"
)

type attendanceRow struct {
	ID           int       `db:"id"`
	UserID       int       `db:"user_id"`
	UserPublicID string    `db:"user_public_id"`
	CourseID     int       `db:"course_id"`
	Date         time.Time `db:"date"`
	Status       string    `db:"status"`
	VerifiedBy   *int      `db:"verified_by"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r attendanceRow) unrow() attendance.Attendance {
	return attendance.Attendance{
		ID:           r.ID,
		UserID:       r.UserID,
		UserPublicID: r.UserPublicID,
		CourseID:     r.CourseID,
		Date:         r.Date,
		Status:       r.Status,
		VerifiedBy:   r.VerifiedBy,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

const attendanceSelect = `
	SELECT a.id, a.user_id, u.public_id AS user_public_id, a.course_id, a.date,
	       a.status, a.verified_by, a.created_at, a.updated_at
	FROM attendance a
	JOIN users u ON u.id = a.user_id`

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo attendanceRepository) CreateAttendance(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	const query = `
		INSERT INTO attendance (user_id, course_id, date, status, verified_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	err := repo.db.QueryRowContext(
		ctx, query,
		att.UserID, att.CourseID, att.Date, att.Status, att.VerifiedBy, att.CreatedAt, att.UpdatedAt,
	).Scan(&att.ID)
	if err != nil {
		return attendance.Attendance{}, errors.Wrap(err, "inserting attendance")
	}
	return att, nil
}

func (repo attendanceRepository) GetAttendanceByID(ctx context.Context, id int) (attendance.Attendance, error) {
	var row attendanceRow
	if err := repo.db.GetContext(ctx, &row, attendanceSelect+" WHERE a.id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return attendance.Attendance{}, attendance.ErrNotFound
		}
		return attendance.Attendance{}, errors.Wrap(err, "getting attendance")
	}
	return row.unrow(), nil
}

func (repo attendanceRepository) AttendanceExists(ctx context.Context, userID, courseID int, date time.Time) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM attendance WHERE user_id = $1 AND course_id = $2 AND date = $3)`
	if err := repo.db.GetContext(ctx, &exists, query, userID, courseID, date); err != nil {
		return false, errors.Wrap(err, "checking attendance")
	}
	return exists, nil
}

func (repo attendanceRepository) FilterAttendance(ctx context.Context, filter attendance.QueryFilter) ([]attendance.Attendance, error) {
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.CourseID != 0 {
		conds = append(conds, "a.course_id = "+arg(filter.CourseID))
	}
	if filter.UserPublicID != "" {
		conds = append(conds, "u.public_id = "+arg(filter.UserPublicID))
	}
	if !filter.DateFrom.IsZero() {
		conds = append(conds, "a.date >= "+arg(filter.DateFrom))
	}
	if !filter.DateTo.IsZero() {
		conds = append(conds, "a.date <= "+arg(filter.DateTo))
	}

	query := attendanceSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY a.date DESC"

	var rows []attendanceRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering attendance")
	}
	records := make([]attendance.Attendance, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.unrow())
	}
	return records, nil
}

func (repo attendanceRepository) UpdateAttendance(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	const query = `
		UPDATE attendance SET status = $1, verified_by = $2, updated_at = $3
		WHERE id = $4`
	res, err := repo.db.ExecContext(ctx, query, att.Status, att.VerifiedBy, att.UpdatedAt, att.ID)
	if err != nil {
		return attendance.Attendance{}, errors.Wrap(err, "updating attendance")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return attendance.Attendance{}, attendance.ErrNotFound
	}
	return repo.GetAttendanceByID(ctx, att.ID)
}

func (repo attendanceRepository) DeleteAttendanceByID(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In("DELETE FROM attendance WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err := repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting attendance")
	}
	return nil
}
