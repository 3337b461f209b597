package echoapi

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jifunze/jifunze/core/resource"
	"github.com/jifunze/jifunze/core/user"
)

func Test_resourceApi_shareAndList(t *testing.T) {
	fix := newFixture(t)
	sch := fix.createSchool(t, "Kilimani Primary")
	educator := fix.createUser(t, "Mr. Otieno", "otieno@kilimani.ac", "hunter22", user.RoleEducator, sch.ID)
	student := fix.createUser(t, "Asha Mwangi", "asha@kilimani.ac", "hunter22", user.RoleStudent, sch.ID)
	crs := fix.createCourse(t, "Mathematics", educator.ID, sch.ID)
	fix.enroll(t, student, crs)

	body := map[string]interface{}{
		"course_id": crs.ID,
		"title":     "Fractions worksheet",
		"url":       "https://files.kilimani.ac/fractions.pdf",
		"type":      "pdf",
	}

	// students cannot share
	rec := fix.request(t, http.MethodPost, "/api/resources", fix.token(t, student), body)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	rec = fix.request(t, http.MethodPost, "/api/resources", fix.token(t, educator), body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res resource.Resource
	decodeData(t, rec, &res)
	assert.Equal(t, "Fractions worksheet", res.Title)
	assert.Equal(t, "pdf", res.Type)

	// anyone in the school can list them
	rec = fix.request(t, http.MethodGet, fmt.Sprintf("/api/courses/%d/resources", crs.ID), fix.token(t, student), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resources []resource.Resource
	decodeData(t, rec, &resources)
	require.Len(t, resources, 1)
	assert.Equal(t, res.ID, resources[0].ID)
}

func Test_resourceApi_shareRequiresValidURL(t *testing.T) {
	fix := newFixture(t)
	sch := fix.createSchool(t, "Kilimani Primary")
	educator := fix.createUser(t, "Mr. Otieno", "otieno@kilimani.ac", "hunter22", user.RoleEducator, sch.ID)
	crs := fix.createCourse(t, "Mathematics", educator.ID, sch.ID)

	rec := fix.request(t, http.MethodPost, "/api/resources", fix.token(t, educator), map[string]interface{}{
		"course_id": crs.ID,
		"title":     "Fractions worksheet",
		"url":       "not-a-url",
		"type":      "pdf",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func Test_resourceApi_updateAndDelete(t *testing.T) {
	fix := newFixture(t)
	sch := fix.createSchool(t, "Kilimani Primary")
	educator := fix.createUser(t, "Mr. Otieno", "otieno@kilimani.ac", "hunter22", user.RoleEducator, sch.ID)
	crs := fix.createCourse(t, "Mathematics", educator.ID, sch.ID)

	rec := fix.request(t, http.MethodPost, "/api/resources", fix.token(t, educator), map[string]interface{}{
		"course_id": crs.ID,
		"title":     "Fractions worksheet",
		"url":       "https://files.kilimani.ac/fractions.pdf",
		"type":      "pdf",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res resource.Resource
	decodeData(t, rec, &res)

	path := fmt.Sprintf("/api/resources/%d", res.ID)

	rec = fix.request(t, http.MethodPut, path, fix.token(t, educator), map[string]string{"title": "Fractions worksheet v2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, rec, &res)
	assert.Equal(t, "Fractions worksheet v2", res.Title)
	assert.Equal(t, "https://files.kilimani.ac/fractions.pdf", res.URL, "unset fields keep their value")

	rec = fix.request(t, http.MethodDelete, path, fix.token(t, educator), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = fix.request(t, http.MethodPut, path, fix.token(t, educator), map[string]string{"title": "gone"})
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}
