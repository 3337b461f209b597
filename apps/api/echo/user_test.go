package echoapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jifunze/jifunze/core/user"
	emailsvc "github.com/jifunze/jifunze/services/email"
)

func Test_authApi_register(t *testing.T) {
	fix := newFixture(t)
	sch := fix.createSchool(t, "Kilimani Primary")

	body := map[string]interface{}{
		"name":             "Neema Joseph",
		"email":            "neema@kilimani.ac",
		"role":             "student",
		"school_id":        sch.ID,
		"password":         "hunter22",
		"password_confirm": "hunter22",
	}
	rec := fix.request(t, http.MethodPost, "/api/auth/register", "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var usr user.User
	decodeData(t, rec, &usr)
	assert.NotEmpty(t, usr.PublicID)
	assert.Equal(t, "neema@kilimani.ac", usr.Email)
	assert.Equal(t, user.RoleStudent, usr.Role)
	assert.Equal(t, sch.ID, usr.SchoolID)

	// duplicate email is refused
	rec = fix.request(t, http.MethodPost, "/api/auth/register", "", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func Test_authApi_registerUnknownSchool(t *testing.T) {
	fix := newFixture(t)

	rec := fix.request(t, http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"name":             "Neema Joseph",
		"email":            "neema@kilimani.ac",
		"role":             "student",
		"school_id":        999,
		"password":         "hunter22",
		"password_confirm": "hunter22",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func Test_authApi_loginAndMe(t *testing.T) {
	fix := newFixture(t)
	sch := fix.createSchool(t, "Kilimani Primary")
	usr := fix.createUser(t, "Asha Mwangi", "asha@kilimani.ac", "hunter22", user.RoleStudent, sch.ID)

	rec := fix.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    usr.Email,
		"password": "hunter22",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var payload struct {
		Token        string     `json:"token"`
		RefreshToken string     `json:"refresh_token"`
		User         *user.User `json:"user"`
	}
	decodeData(t, rec, &payload)
	require.NotEmpty(t, payload.Token)
	require.NotEmpty(t, payload.RefreshToken)
	require.NotNil(t, payload.User)
	assert.Equal(t, usr.PublicID, payload.User.PublicID)

	rec = fix.request(t, http.MethodGet, "/api/users/me", payload.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var me user.User
	decodeData(t, rec, &me)
	assert.Equal(t, usr.Email, me.Email)
}

func Test_authApi_loginBadCredentials(t *testing.T) {
	fix := newFixture(t)
	sch := fix.createSchool(t, "Kilimani Primary")
	usr := fix.createUser(t, "Asha Mwangi", "asha@kilimani.ac", "hunter22", user.RoleStudent, sch.ID)

	rec := fix.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    usr.Email,
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func Test_authApi_loginDeactivatedAccount(t *testing.T) {
	fix := newFixture(t)
	sch := fix.createSchool(t, "Kilimani Primary")
	usr := fix.createUser(t, "Asha Mwangi", "asha@kilimani.ac", "hunter22", user.RoleStudent, sch.ID)

	inactive := false
	_, err := fix.userRepo.UpdateUser(context.Background(), user.User{ID: usr.ID}, &inactive)
	require.NoError(t, err)

	rec := fix.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    usr.Email,
		"password": "hunter22",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
}

func Test_authApi_tokenRefresh(t *testing.T) {
	fix := newFixture(t)
	sch := fix.createSchool(t, "Kilimani Primary")
	usr := fix.createUser(t, "Asha Mwangi", "asha@kilimani.ac", "hunter22", user.RoleStudent, sch.ID)

	rec := fix.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    usr.Email,
		"password": "hunter22",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var payload struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refresh_token"`
	}
	decodeData(t, rec, &payload)

	// the refresh token buys a fresh pair
	rec = fix.request(t, http.MethodPost, "/api/auth/token-refresh", payload.RefreshToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var refreshed struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refresh_token"`
	}
	decodeData(t, rec, &refreshed)
	assert.NotEmpty(t, refreshed.Token)
	assert.NotEmpty(t, refreshed.RefreshToken)

	// an access token is not accepted as a refresh token
	rec = fix.request(t, http.MethodPost, "/api/auth/token-refresh", payload.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
}

func Test_authApi_passwordReset(t *testing.T) {
	fix := newFixture(t)
	sch := fix.createSchool(t, "Kilimani Primary")
	usr := fix.createUser(t, "Asha Mwangi", "asha@kilimani.ac", "hunter22", user.RoleStudent, sch.ID)

	emailsvc.ClearSentMessages()

	rec := fix.request(t, http.MethodPost, "/api/auth/password-reset", "", map[string]string{"email": usr.Email})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, emailsvc.SentMessages, 1)

	// unknown emails get the same response and no mail
	emailsvc.ClearSentMessages()
	rec = fix.request(t, http.MethodPost, "/api/auth/password-reset", "", map[string]string{"email": "nobody@kilimani.ac"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, emailsvc.SentMessages)
}

func Test_userApi_queryRequiresManager(t *testing.T) {
	fix := newFixture(t)
	sch := fix.createSchool(t, "Kilimani Primary")
	student := fix.createUser(t, "Asha Mwangi", "asha@kilimani.ac", "hunter22", user.RoleStudent, sch.ID)
	manager := fix.createUser(t, "Bahati Omondi", "bahati@kilimani.ac", "hunter22", user.RoleManager, sch.ID)

	rec := fix.request(t, http.MethodGet, "/api/users", fix.token(t, student), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	rec = fix.request(t, http.MethodGet, "/api/users", fix.token(t, manager), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var users []user.User
	decodeData(t, rec, &users)
	assert.Len(t, users, 2)
}

func Test_userApi_querySchoolScoped(t *testing.T) {
	fix := newFixture(t)
	schA := fix.createSchool(t, "Kilimani Primary")
	schB := fix.createSchool(t, "Mbezi Secondary")
	manager := fix.createUser(t, "Bahati Omondi", "bahati@kilimani.ac", "hunter22", user.RoleManager, schA.ID)
	fix.createUser(t, "Chiku Hassan", "chiku@mbezi.ac", "hunter22", user.RoleStudent, schB.ID)

	rec := fix.request(t, http.MethodGet, "/api/users", fix.token(t, manager), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []user.User
	decodeData(t, rec, &users)
	require.Len(t, users, 1, "managers only see their own school")
	assert.Equal(t, schA.ID, users[0].SchoolID)
}

func Test_userApi_retrieveOtherUser(t *testing.T) {
	fix := newFixture(t)
	sch := fix.createSchool(t, "Kilimani Primary")
	student := fix.createUser(t, "Asha Mwangi", "asha@kilimani.ac", "hunter22", user.RoleStudent, sch.ID)
	other := fix.createUser(t, "Chiku Hassan", "chiku@kilimani.ac", "hunter22", user.RoleStudent, sch.ID)
	manager := fix.createUser(t, "Bahati Omondi", "bahati@kilimani.ac", "hunter22", user.RoleManager, sch.ID)

	// students cannot read each other's profiles
	rec := fix.request(t, http.MethodGet, "/api/users/"+other.PublicID, fix.token(t, student), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	// but may read their own
	rec = fix.request(t, http.MethodGet, "/api/users/"+student.PublicID, fix.token(t, student), nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// managers may read anyone in their school
	rec = fix.request(t, http.MethodGet, "/api/users/"+other.PublicID, fix.token(t, manager), nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func Test_userApi_selfDeleteBlocked(t *testing.T) {
	fix := newFixture(t)
	sch := fix.createSchool(t, "Kilimani Primary")
	manager := fix.createUser(t, "Bahati Omondi", "bahati@kilimani.ac", "hunter22", user.RoleManager, sch.ID)

	rec := fix.request(t, http.MethodDelete, "/api/users/"+manager.PublicID, fix.token(t, manager), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
}

func Test_api_requiresToken(t *testing.T) {
	fix := newFixture(t)

	for _, path := range []string{"/api/users/me", "/api/courses", "/api/messages", "/api/notifications"} {
		rec := fix.request(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}
