package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/jifunze/jifunze/core"
	"github.com/jifunze/jifunze/core/course"
	"github.com/jifunze/jifunze/core/message"
	"github.com/jifunze/jifunze/core/notification"
	"github.com/jifunze/jifunze/core/user"
)

// Client is the REST client behind the SDK. It attaches the session's
// bearer token to every request, unwraps the server's response envelope
// and clears the session on a 401.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session
	logger  core.Logger
}

func NewClient(conf *core.Config, session *Session, logger core.Logger) *Client {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Client{
		baseURL: strings.TrimRight(conf.Client.BaseURL, "/"),
		http:    &http.Client{Timeout: conf.Client.RequestTimeout},
		session: session,
		logger:  logger,
	}
}

// Session exposes the session backing this client.
func (c *Client) Session() *Session { return c.session }

// wireEnvelope mirrors the server's response body. Paged endpoints
// nest their paging block inside data, so the envelope itself has none.
type wireEnvelope struct {
	Success bool            `json:"success"`
	Message json.RawMessage `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		reqBody = bytes.NewReader(raw)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusUnauthorized {
		c.session.ClearSession()
		return ErrUnauthorized
	}
	if res.StatusCode == http.StatusNoContent {
		return nil
	}

	raw, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}

	var env wireEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &APIError{StatusCode: res.StatusCode, Message: "unreadable response"}
	}

	if res.StatusCode >= http.StatusBadRequest {
		return newAPIError(res.StatusCode, env.Message)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return errors.Wrap(err, "decoding response data")
		}
	}
	return nil
}

// newAPIError splits the envelope's message into a string or a
// field-error map.
func newAPIError(code int, rawMsg json.RawMessage) *APIError {
	apiErr := &APIError{StatusCode: code}
	if len(rawMsg) == 0 {
		return apiErr
	}
	var msg string
	if err := json.Unmarshal(rawMsg, &msg); err == nil {
		apiErr.Message = msg
		return apiErr
	}
	var fields map[string]string
	if err := json.Unmarshal(rawMsg, &fields); err == nil {
		apiErr.Fields = fields
		parts := make([]string, 0, len(fields))
		for field, text := range fields {
			parts = append(parts, fmt.Sprintf("%s: %s", field, text))
		}
		apiErr.Message = strings.Join(parts, "; ")
	}
	return apiErr
}

// loginPayload mirrors the server's login response data.
type loginPayload struct {
	Token        string     `json:"token"`
	RefreshToken string     `json:"refresh_token"`
	User         *user.User `json:"user,omitempty"`
}

// Login authenticates and stores the session on success.
func (c *Client) Login(ctx context.Context, email, password string) (user.User, error) {
	var payload loginPayload
	err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, map[string]string{
		"email":    email,
		"password": password,
	}, &payload)
	if err != nil {
		return user.User{}, err
	}
	if payload.User == nil {
		return user.User{}, &APIError{StatusCode: http.StatusOK, Message: "login response missing user"}
	}
	c.session.SetSession(payload.Token, payload.RefreshToken, *payload.User)
	return *payload.User, nil
}

// Register creates an account. It does not sign the user in.
func (c *Client) Register(ctx context.Context, nu user.NewUser) (user.User, error) {
	var usr user.User
	err := c.do(ctx, http.MethodPost, "/api/auth/register", nil, nu, &usr)
	return usr, err
}

// RefreshToken swaps the stored refresh token for a fresh pair.
func (c *Client) RefreshToken(ctx context.Context) error {
	refresh := c.session.RefreshToken()
	if refresh == "" {
		return ErrUnauthorized
	}

	// the refresh token authenticates this one call
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/token-refresh", nil)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+refresh)

	res, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		c.session.ClearSession()
		return ErrUnauthorized
	}

	raw, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}
	var env wireEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &APIError{StatusCode: res.StatusCode, Message: "unreadable response"}
	}
	if res.StatusCode >= http.StatusBadRequest {
		return newAPIError(res.StatusCode, env.Message)
	}

	var payload loginPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return errors.Wrap(err, "decoding response data")
	}
	usr, _ := c.session.User()
	c.session.SetSession(payload.Token, payload.RefreshToken, usr)
	return nil
}

// Logout drops the local session. There is no server-side session to end.
func (c *Client) Logout() {
	c.session.ClearSession()
}

// Me fetches the signed-in user's profile.
func (c *Client) Me(ctx context.Context) (user.User, error) {
	var usr user.User
	err := c.do(ctx, http.MethodGet, "/api/users/me", nil, nil, &usr)
	return usr, err
}

// Courses lists the courses visible to the signed-in user, serving a
// fresh cache copy when one exists.
func (c *Client) Courses(ctx context.Context) ([]course.Course, error) {
	var courses []course.Course
	if c.session.CacheGet("courses", &courses) {
		return courses, nil
	}
	if err := c.do(ctx, http.MethodGet, "/api/courses", nil, nil, &courses); err != nil {
		return nil, err
	}
	c.session.CacheSet("courses", courses)
	return courses, nil
}

// EnrolledLocally checks the cached course list for membership without
// touching the network. With no cached list it reports true and leaves
// the verdict to the server.
func (c *Client) EnrolledLocally(courseID int) bool {
	var courses []course.Course
	if !c.session.CacheGet("courses", &courses) {
		return true
	}
	for _, crs := range courses {
		if crs.ID == courseID {
			return true
		}
	}
	return false
}

// messagesPayload mirrors the server's messages response data.
type messagesPayload struct {
	Messages []message.Message `json:"messages"`
	Meta     core.PageMeta     `json:"meta"`
}

// Messages fetches one page of a course's messages in ascending
// timestamp order.
func (c *Client) Messages(ctx context.Context, courseID, page, perPage int) ([]message.Message, core.PageMeta, error) {
	query := url.Values{}
	query.Set("course_id", strconv.Itoa(courseID))
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		query.Set("per_page", strconv.Itoa(perPage))
	}

	var payload messagesPayload
	if err := c.do(ctx, http.MethodGet, "/api/messages", query, nil, &payload); err != nil {
		return nil, core.PageMeta{}, err
	}
	meta := payload.Meta
	if meta.Pages == 0 {
		meta = core.PageMeta{Page: 1, Pages: 1, Total: len(payload.Messages)}
	}
	return payload.Messages, meta, nil
}

// PostMessage posts to a course's board. A 403 is mapped to
// ErrNotEnrolled.
func (c *Client) PostMessage(ctx context.Context, courseID int, parentID *int, content string) (message.Message, error) {
	var msg message.Message
	err := c.do(ctx, http.MethodPost, "/api/messages", nil, message.NewMessage{
		CourseID: courseID,
		ParentID: parentID,
		Content:  content,
	}, &msg)
	if err != nil {
		if apiErr, ok := errors.Cause(err).(*APIError); ok && apiErr.StatusCode == http.StatusForbidden {
			return message.Message{}, ErrNotEnrolled
		}
		return message.Message{}, err
	}
	return msg, nil
}

// notificationsPayload mirrors the server's notifications response data.
type notificationsPayload struct {
	Notifications []notification.Notification `json:"notifications"`
	UnreadCount   int                         `json:"unread_count"`
}

// Notifications fetches the user's notifications plus the unread count.
func (c *Client) Notifications(ctx context.Context, unreadOnly bool, limit int) ([]notification.Notification, int, error) {
	query := url.Values{}
	if unreadOnly {
		query.Set("unread_only", "true")
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var payload notificationsPayload
	if err := c.do(ctx, http.MethodGet, "/api/notifications", query, nil, &payload); err != nil {
		return nil, 0, err
	}
	return payload.Notifications, payload.UnreadCount, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id int) error {
	err := c.do(ctx, http.MethodPatch, "/api/notifications/"+strconv.Itoa(id), nil, nil, nil)
	return err
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/notifications/mark-all-read", nil, nil, nil)
	return err
}

func (c *Client) DeleteNotification(ctx context.Context, id int) error {
	err := c.do(ctx, http.MethodDelete, "/api/notifications/"+strconv.Itoa(id), nil, nil, nil)
	return err
}

// Enroll enrolls the signed-in student into a course.
func (c *Client) Enroll(ctx context.Context, courseID int) error {
	err := c.do(ctx, http.MethodPost, "/api/courses/"+strconv.Itoa(courseID)+"/enroll", nil, struct{}{}, nil)
	return err
}

// Unenroll removes the signed-in student from a course.
func (c *Client) Unenroll(ctx context.Context, courseID int) error {
	err := c.do(ctx, http.MethodPost, "/api/courses/"+strconv.Itoa(courseID)+"/unenroll", nil, struct{}{}, nil)
	return err
}
