// Package dummydb is an in-memory storage implementation used by tests
// and local experiments. It holds everything in maps behind per-table
// locks and mirrors the behaviour of the SQL repositories.
package dummydb

import (
	"sync"

	"github.com/jifunze/jifunze/core/attendance"
	"github.com/jifunze/jifunze/core/course"
	"github.com/jifunze/jifunze/core/message"
	"github.com/jifunze/jifunze/core/notification"
	"github.com/jifunze/jifunze/core/resource"
	"github.com/jifunze/jifunze/core/school"
	"github.com/jifunze/jifunze/core/user"
)

type (
	DB struct {
		user         *userTable
		school       *schoolTable
		course       *courseTable
		enrollment   *enrollmentTable
		message      *messageTable
		notification *notificationTable
		attendance   *attendanceTable
		resource     *resourceTable
	}

	userTable struct {
		sync.RWMutex
		seq   int
		table map[int]*user.User
	}

	schoolTable struct {
		sync.RWMutex
		seq   int
		table map[int]*school.School
	}

	courseTable struct {
		sync.RWMutex
		seq   int
		table map[int]*course.Course
	}

	enrollmentTable struct {
		sync.RWMutex
		seq   int
		table map[int]*course.Enrollment
	}

	messageTable struct {
		sync.RWMutex
		seq   int
		table map[int]*message.Message
	}

	notificationTable struct {
		sync.RWMutex
		seq   int
		table map[int]*notification.Notification
	}

	attendanceTable struct {
		sync.RWMutex
		seq   int
		table map[int]*attendance.Attendance
	}

	resourceTable struct {
		sync.RWMutex
		seq   int
		table map[int]*resource.Resource
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:         &userTable{table: make(map[int]*user.User)},
		school:       &schoolTable{table: make(map[int]*school.School)},
		course:       &courseTable{table: make(map[int]*course.Course)},
		enrollment:   &enrollmentTable{table: make(map[int]*course.Enrollment)},
		message:      &messageTable{table: make(map[int]*message.Message)},
		notification: &notificationTable{table: make(map[int]*notification.Notification)},
		attendance:   &attendanceTable{table: make(map[int]*attendance.Attendance)},
		resource:     &resourceTable{table: make(map[int]*resource.Resource)},
	}
	return db, nil
}
