package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jifunze/jifunze/core"
	"github.com/jifunze/jifunze/core/attendance"
	"github.com/jifunze/jifunze/core/course"
	"github.com/jifunze/jifunze/core/message"
	"github.com/jifunze/jifunze/core/notification"
	"github.com/jifunze/jifunze/core/resource"
	"github.com/jifunze/jifunze/core/school"
	"github.com/jifunze/jifunze/core/user"
	emailsvc "github.com/jifunze/jifunze/services/email"
	dummydb "github.com/jifunze/jifunze/storage/database/dummy"
)

type fixture struct {
	conf *core.Config
	app  Server

	userRepo    user.Repository
	schoolRepo  school.Repository
	courseRepo  course.Repository
	messageRepo message.Repository

	userSvc   *user.Service
	courseSvc *course.Service
	notifSvc  *notification.Service
}

func testConfig() *core.Config {
	return &core.Config{
		AppName:                   "jifunze",
		Env:                       "TEST",
		TestMode:                  true,
		SecretKey:                 []byte("test-secret-key-not-for-production"),
		FrontendBaseURL:           "http://localhost:3000",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: core.ServerConfig{
			JWTExpirationDelta:        4 * time.Hour,
			JWTRefreshExpirationDelta: 7 * 24 * time.Hour,
		},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conf := testConfig()
	db, err := dummydb.Open()
	require.NoError(t, err)

	userRepo := dummydb.NewUserRepository(db)
	schoolRepo := dummydb.NewSchoolRepository(db)
	courseRepo := dummydb.NewCourseRepository(db)
	messageRepo := dummydb.NewMessageRepository(db)

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(userRepo, mailSvc, conf)
	schoolSvc := school.NewService(schoolRepo)
	courseSvc := course.NewService(courseRepo, usrSvc)
	notifSvc := notification.NewService(dummydb.NewNotificationRepository(db), courseSvc, nil, core.NopLogger{})
	messageSvc := message.NewService(messageRepo, courseSvc, notifSvc)
	attendanceSvc := attendance.NewService(dummydb.NewAttendanceRepository(db), usrSvc, courseSvc)
	resourceSvc := resource.NewService(dummydb.NewResourceRepository(db), courseSvc)

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)

	app := NewServer(ServerDeps{
		Conf:          conf,
		Logger:        core.NopLogger{},
		Validate:      validate,
		Translator:    translator,
		UserSvc:       usrSvc,
		SchoolSvc:     schoolSvc,
		CourseSvc:     courseSvc,
		MessageSvc:    messageSvc,
		NotifSvc:      notifSvc,
		AttendanceSvc: attendanceSvc,
		ResourceSvc:   resourceSvc,
	})

	return &fixture{
		conf:        conf,
		app:         app,
		userRepo:    userRepo,
		schoolRepo:  schoolRepo,
		courseRepo:  courseRepo,
		messageRepo: messageRepo,
		userSvc:     usrSvc,
		courseSvc:   courseSvc,
		notifSvc:    notifSvc,
	}
}

func (fix *fixture) createSchool(t *testing.T, name string) school.School {
	t.Helper()
	now := time.Now().UTC()
	sch, err := fix.schoolRepo.CreateSchool(context.Background(), school.School{
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	return sch
}

func (fix *fixture) createUser(t *testing.T, name, email, pwd, role string, schoolID int) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		PublicID:  uuid.New().String(),
		Name:      name,
		Email:     email,
		Role:      role,
		SchoolID:  schoolID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(true)
	if pwd != "" {
		require.NoError(t, usr.SetPassword(pwd))
	}
	usr, err := fix.userRepo.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

func (fix *fixture) createCourse(t *testing.T, title string, educatorID, schoolID int) course.Course {
	t.Helper()
	now := time.Now().UTC()
	crs, err := fix.courseRepo.CreateCourse(context.Background(), course.Course{
		Title:      title,
		EducatorID: educatorID,
		SchoolID:   schoolID,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	require.NoError(t, err)
	return crs
}

func (fix *fixture) enroll(t *testing.T, usr user.User, crs course.Course) {
	t.Helper()
	_, err := fix.courseRepo.CreateEnrollment(context.Background(), course.Enrollment{
		UserID:       usr.ID,
		UserPublicID: usr.PublicID,
		CourseID:     crs.ID,
		DateEnrolled: time.Now().UTC(),
	})
	require.NoError(t, err)
}

func (fix *fixture) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(GetUserClaims(usr, fix.conf), fix.conf)
	require.NoError(t, err)
	return token
}

// request performs one request against the app and returns the recorder.
func (fix *fixture) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buff bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buff).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buff)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	fix.app.ServeHTTP(rec, req)
	return rec
}

// decodeData unwraps the response envelope's data into out.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Message json.RawMessage `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	require.True(t, env.Success, "body: %s", rec.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
}

// decodeMessagesPage unwraps the nested messages list response.
func decodeMessagesPage(t *testing.T, rec *httptest.ResponseRecorder) ([]message.Message, core.PageMeta) {
	t.Helper()
	var body MessagesResponse
	decodeData(t, rec, &body)
	return body.Messages, body.Meta
}
