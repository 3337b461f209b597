package dummydb

import (
	"context"
	"sort"

	"github.com/jifunze/jifunze/core/course"
)

type courseRepository struct {
	db   *courseTable
	enrs *enrollmentTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db.course, enrs: db.enrollment}
}

func (repo *courseRepository) query() []course.Course {
	courses := make([]course.Course, 0, len(repo.db.table))
	for _, crs := range repo.db.table {
		courses = append(courses, *crs)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Title < courses[j].Title })
	return courses
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.seq++
	crs.ID = repo.db.seq
	repo.db.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id int) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if crs, ok := repo.db.table[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCoursesBySchool(ctx context.Context, schoolID int) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0)
	for _, crs := range repo.query() {
		if crs.SchoolID == schoolID {
			courses = append(courses, crs)
		}
	}
	return courses, nil
}

func (repo *courseRepository) QueryCoursesByEducator(ctx context.Context, educatorID int) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0)
	for _, crs := range repo.query() {
		if crs.EducatorID == educatorID {
			courses = append(courses, crs)
		}
	}
	return courses, nil
}

func (repo *courseRepository) QueryCoursesByStudent(ctx context.Context, userID int) ([]course.Course, error) {
	repo.enrs.RLock()
	enrolled := make(map[int]struct{})
	for _, enr := range repo.enrs.table {
		if enr.UserID == userID {
			enrolled[enr.CourseID] = struct{}{}
		}
	}
	repo.enrs.RUnlock()

	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0, len(enrolled))
	for _, crs := range repo.query() {
		if _, ok := enrolled[crs.ID]; ok {
			courses = append(courses, crs)
		}
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	cur, ok := repo.db.table[crs.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	if crs.Title != "" {
		cur.Title = crs.Title
	}
	if crs.Description != "" {
		cur.Description = crs.Description
	}
	if !crs.UpdatedAt.IsZero() {
		cur.UpdatedAt = crs.UpdatedAt
	}
	return *cur, nil
}

func (repo *courseRepository) DeleteCoursesByID(ctx context.Context, ids ...int) error {
	repo.db.Lock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	repo.db.Unlock()

	// enrollments go with their course
	repo.enrs.Lock()
	defer repo.enrs.Unlock()
	for _, id := range ids {
		for enrID, enr := range repo.enrs.table {
			if enr.CourseID == id {
				delete(repo.enrs.table, enrID)
			}
		}
	}
	return nil
}

func (repo *courseRepository) CreateEnrollment(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	repo.enrs.Lock()
	defer repo.enrs.Unlock()

	repo.enrs.seq++
	enr.ID = repo.enrs.seq
	repo.enrs.table[enr.ID] = &enr
	return enr, nil
}

func (repo *courseRepository) QueryEnrollmentsByCourse(ctx context.Context, courseID int) ([]course.Enrollment, error) {
	repo.enrs.RLock()
	defer repo.enrs.RUnlock()

	enrs := make([]course.Enrollment, 0)
	for _, enr := range repo.enrs.table {
		if enr.CourseID == courseID {
			enrs = append(enrs, *enr)
		}
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].DateEnrolled.Before(enrs[j].DateEnrolled) })
	return enrs, nil
}

func (repo *courseRepository) QueryEnrollmentsByUser(ctx context.Context, userID int) ([]course.Enrollment, error) {
	repo.enrs.RLock()
	defer repo.enrs.RUnlock()

	enrs := make([]course.Enrollment, 0)
	for _, enr := range repo.enrs.table {
		if enr.UserID == userID {
			enrs = append(enrs, *enr)
		}
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].DateEnrolled.Before(enrs[j].DateEnrolled) })
	return enrs, nil
}

func (repo *courseRepository) EnrollmentExists(ctx context.Context, userID, courseID int) (bool, error) {
	repo.enrs.RLock()
	defer repo.enrs.RUnlock()

	for _, enr := range repo.enrs.table {
		if enr.UserID == userID && enr.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *courseRepository) DeleteEnrollment(ctx context.Context, userID, courseID int) error {
	repo.enrs.Lock()
	defer repo.enrs.Unlock()

	for id, enr := range repo.enrs.table {
		if enr.UserID == userID && enr.CourseID == courseID {
			delete(repo.enrs.table, id)
			break
		}
	}
	return nil
}
