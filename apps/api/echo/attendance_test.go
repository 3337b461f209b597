package echoapi

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jifunze/jifunze/core/attendance"
	"github.com/jifunze/jifunze/core/user"
)

func Test_attendanceApi_recordAndQuery(t *testing.T) {
	fix := newFixture(t)
	sch := fix.createSchool(t, "Kilimani Primary")
	educator := fix.createUser(t, "Mr. Otieno", "otieno@kilimani.ac", "hunter22", user.RoleEducator, sch.ID)
	asha := fix.createUser(t, "Asha Mwangi", "asha@kilimani.ac", "hunter22", user.RoleStudent, sch.ID)
	zawadi := fix.createUser(t, "Zawadi Juma", "zawadi@kilimani.ac", "hunter22", user.RoleStudent, sch.ID)
	crs := fix.createCourse(t, "Mathematics", educator.ID, sch.ID)
	fix.enroll(t, asha, crs)
	fix.enroll(t, zawadi, crs)

	today := time.Now().UTC().Format(time.RFC3339)

	rec := fix.request(t, http.MethodPost, "/api/attendance", fix.token(t, educator), map[string]interface{}{
		"user_public_id": asha.PublicID,
		"course_id":      crs.ID,
		"date":           today,
		"status":         attendance.StatusPresent,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var att attendance.Attendance
	decodeData(t, rec, &att)
	assert.Equal(t, asha.PublicID, att.UserPublicID)
	assert.Equal(t, attendance.StatusPresent, att.Status)

	rec = fix.request(t, http.MethodPost, "/api/attendance", fix.token(t, educator), map[string]interface{}{
		"user_public_id": zawadi.PublicID,
		"course_id":      crs.ID,
		"date":           today,
		"status":         attendance.StatusAbsent,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// same (student, course, day) twice is refused
	rec = fix.request(t, http.MethodPost, "/api/attendance", fix.token(t, educator), map[string]interface{}{
		"user_public_id": asha.PublicID,
		"course_id":      crs.ID,
		"date":           today,
		"status":         attendance.StatusLate,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	// staff see the whole course
	rec = fix.request(t, http.MethodGet, fmt.Sprintf("/api/attendance?course_id=%d", crs.ID), fix.token(t, educator), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var records []attendance.Attendance
	decodeData(t, rec, &records)
	assert.Len(t, records, 2)

	// students only their own rows
	rec = fix.request(t, http.MethodGet, fmt.Sprintf("/api/attendance?course_id=%d", crs.ID), fix.token(t, asha), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, rec, &records)
	require.Len(t, records, 1)
	assert.Equal(t, asha.PublicID, records[0].UserPublicID)
}

func Test_attendanceApi_studentsCannotRecord(t *testing.T) {
	fix := newFixture(t)
	sch := fix.createSchool(t, "Kilimani Primary")
	educator := fix.createUser(t, "Mr. Otieno", "otieno@kilimani.ac", "hunter22", user.RoleEducator, sch.ID)
	asha := fix.createUser(t, "Asha Mwangi", "asha@kilimani.ac", "hunter22", user.RoleStudent, sch.ID)
	crs := fix.createCourse(t, "Mathematics", educator.ID, sch.ID)
	fix.enroll(t, asha, crs)

	rec := fix.request(t, http.MethodPost, "/api/attendance", fix.token(t, asha), map[string]interface{}{
		"user_public_id": asha.PublicID,
		"course_id":      crs.ID,
		"date":           time.Now().UTC().Format(time.RFC3339),
		"status":         attendance.StatusPresent,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
}

func Test_attendanceApi_updateStatus(t *testing.T) {
	fix := newFixture(t)
	sch := fix.createSchool(t, "Kilimani Primary")
	educator := fix.createUser(t, "Mr. Otieno", "otieno@kilimani.ac", "hunter22", user.RoleEducator, sch.ID)
	manager := fix.createUser(t, "Bahati Omondi", "bahati@kilimani.ac", "hunter22", user.RoleManager, sch.ID)
	asha := fix.createUser(t, "Asha Mwangi", "asha@kilimani.ac", "hunter22", user.RoleStudent, sch.ID)
	crs := fix.createCourse(t, "Mathematics", educator.ID, sch.ID)
	fix.enroll(t, asha, crs)

	rec := fix.request(t, http.MethodPost, "/api/attendance", fix.token(t, educator), map[string]interface{}{
		"user_public_id": asha.PublicID,
		"course_id":      crs.ID,
		"date":           time.Now().UTC().Format(time.RFC3339),
		"status":         attendance.StatusAbsent,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var att attendance.Attendance
	decodeData(t, rec, &att)

	path := fmt.Sprintf("/api/attendance/%d", att.ID)

	rec = fix.request(t, http.MethodPatch, path, fix.token(t, educator), map[string]string{"status": attendance.StatusLate})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, rec, &att)
	assert.Equal(t, attendance.StatusLate, att.Status)

	// an unknown status is refused
	rec = fix.request(t, http.MethodPatch, path, fix.token(t, educator), map[string]string{"status": "vanished"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	// deleting takes a manager
	rec = fix.request(t, http.MethodDelete, path, fix.token(t, educator), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	rec = fix.request(t, http.MethodDelete, path, fix.token(t, manager), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
}
