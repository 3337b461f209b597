package echoapi

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jifunze/jifunze/core/notification"
	"github.com/jifunze/jifunze/core/user"
)

type notificationsBody struct {
	Notifications []notification.Notification `json:"notifications"`
	UnreadCount   int                         `json:"unread_count"`
}

func Test_notificationApi_fanOutOnMessage(t *testing.T) {
	fix := newFixture(t)
	sch := fix.createSchool(t, "Kilimani Primary")
	educator := fix.createUser(t, "Mr. Otieno", "otieno@kilimani.ac", "hunter22", user.RoleEducator, sch.ID)
	asha := fix.createUser(t, "Asha Mwangi", "asha@kilimani.ac", "hunter22", user.RoleStudent, sch.ID)
	zawadi := fix.createUser(t, "Zawadi Juma", "zawadi@kilimani.ac", "hunter22", user.RoleStudent, sch.ID)
	crs := fix.createCourse(t, "Mathematics", educator.ID, sch.ID)
	fix.enroll(t, asha, crs)
	fix.enroll(t, zawadi, crs)

	rec := fix.request(t, http.MethodPost, "/api/messages", fix.token(t, asha), map[string]interface{}{
		"course_id": crs.ID,
		"content":   "kesho kuna mtihani",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// the classmate is notified
	rec = fix.request(t, http.MethodGet, "/api/notifications", fix.token(t, zawadi), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body notificationsBody
	decodeData(t, rec, &body)
	require.Len(t, body.Notifications, 1)
	assert.Equal(t, 1, body.UnreadCount)
	assert.Equal(t, "New message in Mathematics", body.Notifications[0].Title)
	assert.Equal(t, "kesho kuna mtihani", body.Notifications[0].Message)
	assert.False(t, body.Notifications[0].IsRead)

	// the author is not
	rec = fix.request(t, http.MethodGet, "/api/notifications", fix.token(t, asha), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &body)
	assert.Empty(t, body.Notifications)
	assert.Zero(t, body.UnreadCount)
}

func Test_notificationApi_markReadAndDelete(t *testing.T) {
	fix := newFixture(t)
	sch := fix.createSchool(t, "Kilimani Primary")
	educator := fix.createUser(t, "Mr. Otieno", "otieno@kilimani.ac", "hunter22", user.RoleEducator, sch.ID)
	asha := fix.createUser(t, "Asha Mwangi", "asha@kilimani.ac", "hunter22", user.RoleStudent, sch.ID)
	zawadi := fix.createUser(t, "Zawadi Juma", "zawadi@kilimani.ac", "hunter22", user.RoleStudent, sch.ID)
	crs := fix.createCourse(t, "Mathematics", educator.ID, sch.ID)
	fix.enroll(t, asha, crs)
	fix.enroll(t, zawadi, crs)

	for _, content := range []string{"ujumbe wa kwanza", "ujumbe wa pili"} {
		rec := fix.request(t, http.MethodPost, "/api/messages", fix.token(t, asha), map[string]interface{}{
			"course_id": crs.ID,
			"content":   content,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	token := fix.token(t, zawadi)
	rec := fix.request(t, http.MethodGet, "/api/notifications", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body notificationsBody
	decodeData(t, rec, &body)
	require.Len(t, body.Notifications, 2)
	require.Equal(t, 2, body.UnreadCount)

	// mark one read
	rec = fix.request(t, http.MethodPatch, fmt.Sprintf("/api/notifications/%d", body.Notifications[0].ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = fix.request(t, http.MethodGet, "/api/notifications?unread_only=true", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &body)
	assert.Len(t, body.Notifications, 1)
	assert.Equal(t, 1, body.UnreadCount)

	// mark all read
	rec = fix.request(t, http.MethodPost, "/api/notifications/mark-all-read", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = fix.request(t, http.MethodGet, "/api/notifications", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &body)
	assert.Zero(t, body.UnreadCount)

	// delete one
	rec = fix.request(t, http.MethodDelete, fmt.Sprintf("/api/notifications/%d", body.Notifications[0].ID), token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = fix.request(t, http.MethodGet, "/api/notifications", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &body)
	assert.Len(t, body.Notifications, 1)
}

func Test_notificationApi_scopedToOwner(t *testing.T) {
	fix := newFixture(t)
	sch := fix.createSchool(t, "Kilimani Primary")
	educator := fix.createUser(t, "Mr. Otieno", "otieno@kilimani.ac", "hunter22", user.RoleEducator, sch.ID)
	asha := fix.createUser(t, "Asha Mwangi", "asha@kilimani.ac", "hunter22", user.RoleStudent, sch.ID)
	zawadi := fix.createUser(t, "Zawadi Juma", "zawadi@kilimani.ac", "hunter22", user.RoleStudent, sch.ID)
	crs := fix.createCourse(t, "Mathematics", educator.ID, sch.ID)
	fix.enroll(t, asha, crs)
	fix.enroll(t, zawadi, crs)

	rec := fix.request(t, http.MethodPost, "/api/messages", fix.token(t, asha), map[string]interface{}{
		"course_id": crs.ID,
		"content":   "jioni njema",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = fix.request(t, http.MethodGet, "/api/notifications", fix.token(t, zawadi), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body notificationsBody
	decodeData(t, rec, &body)
	require.Len(t, body.Notifications, 1)

	// another user cannot touch it
	rec = fix.request(t, http.MethodPatch, fmt.Sprintf("/api/notifications/%d", body.Notifications[0].ID), fix.token(t, asha), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	rec = fix.request(t, http.MethodDelete, fmt.Sprintf("/api/notifications/%d", body.Notifications[0].ID), fix.token(t, asha), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}
