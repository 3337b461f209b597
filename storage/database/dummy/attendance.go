package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/jifunze/jifunze/core/attendance"
)

type attendanceRepository struct {
	db    *attendanceTable
	users *userTable
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db.attendance, users: db.user}
}

func (repo *attendanceRepository) annotate(att attendance.Attendance) attendance.Attendance {
	repo.users.RLock()
	defer repo.users.RUnlock()

	if usr, ok := repo.users.table[att.UserID]; ok {
		att.UserPublicID = usr.PublicID
	}
	return att
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func (repo *attendanceRepository) CreateAttendance(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	repo.db.Lock()
	repo.db.seq++
	att.ID = repo.db.seq
	stored := att
	repo.db.table[att.ID] = &stored
	repo.db.Unlock()

	return repo.annotate(att), nil
}

func (repo *attendanceRepository) GetAttendanceByID(ctx context.Context, id int) (attendance.Attendance, error) {
	repo.db.RLock()
	att, ok := repo.db.table[id]
	repo.db.RUnlock()

	if !ok {
		return attendance.Attendance{}, attendance.ErrNotFound
	}
	return repo.annotate(*att), nil
}

func (repo *attendanceRepository) AttendanceExists(ctx context.Context, userID, courseID int, date time.Time) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, att := range repo.db.table {
		if att.UserID == userID && att.CourseID == courseID && sameDay(att.Date, date) {
			return true, nil
		}
	}
	return false, nil
}

func (repo *attendanceRepository) FilterAttendance(ctx context.Context, filter attendance.QueryFilter) ([]attendance.Attendance, error) {
	repo.db.RLock()
	records := make([]attendance.Attendance, 0, len(repo.db.table))
	for _, att := range repo.db.table {
		records = append(records, *att)
	}
	repo.db.RUnlock()

	filtered := records[:0]
	for _, att := range records {
		att = repo.annotate(att)
		if filter.CourseID != 0 && att.CourseID != filter.CourseID {
			continue
		}
		if filter.UserPublicID != "" && att.UserPublicID != filter.UserPublicID {
			continue
		}
		if !filter.DateFrom.IsZero() && att.Date.Before(filter.DateFrom) {
			continue
		}
		if !filter.DateTo.IsZero() && att.Date.After(filter.DateTo) {
			continue
		}
		filtered = append(filtered, att)
	}
	// newest first, like the SQL repository
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Date.After(filtered[j].Date) })
	return filtered, nil
}

func (repo *attendanceRepository) UpdateAttendance(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	repo.db.Lock()
	cur, ok := repo.db.table[att.ID]
	if !ok {
		repo.db.Unlock()
		return attendance.Attendance{}, attendance.ErrNotFound
	}
	if att.Status != "" {
		cur.Status = att.Status
	}
	if att.VerifiedBy != nil {
		cur.VerifiedBy = att.VerifiedBy
	}
	if !att.UpdatedAt.IsZero() {
		cur.UpdatedAt = att.UpdatedAt
	}
	updated := *cur
	repo.db.Unlock()

	return repo.annotate(updated), nil
}

func (repo *attendanceRepository) DeleteAttendanceByID(ctx context.Context, ids ...int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
