package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jifunze/jifunze/core/message"
	"github.com/jifunze/jifunze/core/user"
)

func Test_messageApi_postAndQuery(t *testing.T) {
	fix := newFixture(t)
	sch := fix.createSchool(t, "Kilimani Primary")
	educator := fix.createUser(t, "Mr. Otieno", "otieno@kilimani.ac", "hunter22", user.RoleEducator, sch.ID)
	student := fix.createUser(t, "Asha Mwangi", "asha@kilimani.ac", "hunter22", user.RoleStudent, sch.ID)
	crs := fix.createCourse(t, "Mathematics", educator.ID, sch.ID)
	fix.enroll(t, student, crs)

	rec := fix.request(t, http.MethodPost, "/api/messages", fix.token(t, student), map[string]interface{}{
		"course_id": crs.ID,
		"content":   "habari za asubuhi",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var posted message.Message
	decodeData(t, rec, &posted)
	assert.NotZero(t, posted.ID)
	assert.Equal(t, student.PublicID, posted.UserPublicID)
	assert.Equal(t, "habari za asubuhi", posted.Content)
	assert.False(t, posted.Timestamp.IsZero())

	rec = fix.request(t, http.MethodGet, fmt.Sprintf("/api/messages?course_id=%d", crs.ID), fix.token(t, educator), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	msgs, meta := decodeMessagesPage(t, rec)
	require.Len(t, msgs, 1)
	assert.Equal(t, posted.ID, msgs[0].ID)
	assert.Equal(t, 1, meta.Total)
}

func Test_messageApi_queryRequiresCourseID(t *testing.T) {
	fix := newFixture(t)
	sch := fix.createSchool(t, "Kilimani Primary")
	student := fix.createUser(t, "Asha Mwangi", "asha@kilimani.ac", "hunter22", user.RoleStudent, sch.ID)

	rec := fix.request(t, http.MethodGet, "/api/messages", fix.token(t, student), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func Test_messageApi_unenrolledStudentRejected(t *testing.T) {
	fix := newFixture(t)
	sch := fix.createSchool(t, "Kilimani Primary")
	educator := fix.createUser(t, "Mr. Otieno", "otieno@kilimani.ac", "hunter22", user.RoleEducator, sch.ID)
	student := fix.createUser(t, "Asha Mwangi", "asha@kilimani.ac", "hunter22", user.RoleStudent, sch.ID)
	crs := fix.createCourse(t, "Mathematics", educator.ID, sch.ID)

	rec := fix.request(t, http.MethodPost, "/api/messages", fix.token(t, student), map[string]interface{}{
		"course_id": crs.ID,
		"content":   "naomba kujiunga",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	rec = fix.request(t, http.MethodGet, fmt.Sprintf("/api/messages?course_id=%d", crs.ID), fix.token(t, student), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
}

func Test_messageApi_contentTooShort(t *testing.T) {
	fix := newFixture(t)
	sch := fix.createSchool(t, "Kilimani Primary")
	educator := fix.createUser(t, "Mr. Otieno", "otieno@kilimani.ac", "hunter22", user.RoleEducator, sch.ID)
	crs := fix.createCourse(t, "Mathematics", educator.ID, sch.ID)

	rec := fix.request(t, http.MethodPost, "/api/messages", fix.token(t, educator), map[string]interface{}{
		"course_id": crs.ID,
		"content":   "a",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func Test_messageApi_crossSchoolHidden(t *testing.T) {
	fix := newFixture(t)
	schA := fix.createSchool(t, "Kilimani Primary")
	schB := fix.createSchool(t, "Mbezi Secondary")
	educatorA := fix.createUser(t, "Mr. Otieno", "otieno@kilimani.ac", "hunter22", user.RoleEducator, schA.ID)
	outsider := fix.createUser(t, "Chiku Hassan", "chiku@mbezi.ac", "hunter22", user.RoleManager, schB.ID)
	crs := fix.createCourse(t, "Mathematics", educatorA.ID, schA.ID)

	rec := fix.request(t, http.MethodGet, fmt.Sprintf("/api/messages?course_id=%d", crs.ID), fix.token(t, outsider), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}

func Test_messageApi_queryAscendingWithPagination(t *testing.T) {
	fix := newFixture(t)
	sch := fix.createSchool(t, "Kilimani Primary")
	educator := fix.createUser(t, "Mr. Otieno", "otieno@kilimani.ac", "hunter22", user.RoleEducator, sch.ID)
	crs := fix.createCourse(t, "Mathematics", educator.ID, sch.ID)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		_, err := fix.messageRepo.CreateMessage(context.Background(), message.Message{
			CourseID:  crs.ID,
			UserID:    educator.ID,
			Content:   fmt.Sprintf("post %d", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	rec := fix.request(t, http.MethodGet,
		fmt.Sprintf("/api/messages?course_id=%d&page=1&per_page=3", crs.ID), fix.token(t, educator), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	msgs, meta := decodeMessagesPage(t, rec)
	require.Len(t, msgs, 3)
	assert.Equal(t, 5, meta.Total)
	assert.Equal(t, 2, meta.Pages)
	for i := 1; i < len(msgs); i++ {
		assert.True(t, msgs[i].Timestamp.After(msgs[i-1].Timestamp), "messages must come back oldest first")
	}
}

func Test_messageApi_updateOwnPostOnly(t *testing.T) {
	fix := newFixture(t)
	sch := fix.createSchool(t, "Kilimani Primary")
	educator := fix.createUser(t, "Mr. Otieno", "otieno@kilimani.ac", "hunter22", user.RoleEducator, sch.ID)
	student := fix.createUser(t, "Asha Mwangi", "asha@kilimani.ac", "hunter22", user.RoleStudent, sch.ID)
	manager := fix.createUser(t, "Bahati Omondi", "bahati@kilimani.ac", "hunter22", user.RoleManager, sch.ID)
	crs := fix.createCourse(t, "Mathematics", educator.ID, sch.ID)
	fix.enroll(t, student, crs)

	msg, err := fix.messageRepo.CreateMessage(context.Background(), message.Message{
		CourseID:  crs.ID,
		UserID:    student.ID,
		Content:   "asante sana",
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)

	path := fmt.Sprintf("/api/messages/%d", msg.ID)

	// the educator did not write it
	rec := fix.request(t, http.MethodPut, path, fix.token(t, educator), map[string]string{"content": "edited"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	// the author may edit it
	rec = fix.request(t, http.MethodPut, path, fix.token(t, student), map[string]string{"content": "asante kabisa"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated message.Message
	decodeData(t, rec, &updated)
	assert.Equal(t, "asante kabisa", updated.Content)

	// managers may delete anything in their school
	rec = fix.request(t, http.MethodDelete, path, fix.token(t, manager), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
}
