package client

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jifunze/jifunze/core"
	"github.com/jifunze/jifunze/core/message"
	"github.com/jifunze/jifunze/core/notification"
)

func threadFixture(t *testing.T) []message.Message {
	t.Helper()
	base := time.Date(2021, 3, 14, 9, 0, 0, 0, time.UTC)
	return []message.Message{
		{ID: 1, CourseID: 7, UserPublicID: "educator-1", UserName: "Mr. Otieno", Content: "Karibuni class", Timestamp: base},
		{ID: 2, CourseID: 7, UserPublicID: "student-2", UserName: "Zawadi", Content: "Asante!", Timestamp: base.Add(time.Minute)},
	}
}

func collectEvents(bus *Bus) <-chan Event {
	events := make(chan Event, 16)
	bus.Subscribe(func(e Event) { events <- e })
	return events
}

func waitEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case e := <-events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an event")
		return nil
	}
}

func Test_MessagePoller_announcesOnlyUnseen(t *testing.T) {
	msgs := threadFixture(t)
	extra := message.Message{
		ID: 3, CourseID: 7, UserPublicID: "student-3", UserName: "Baraka",
		Content: "Nimefika", Timestamp: msgs[1].Timestamp.Add(time.Minute),
	}

	var calls int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		out := msgs
		if n > 1 {
			out = append(out, extra)
		}
		writeMessagesPage(w, out, core.PageMeta{Page: 1, Pages: 1, Total: len(out)})
	}))
	c.Session().SetSession("tok", "", testUser())

	bus := NewBus()
	events := collectEvents(bus)

	p := NewMessagePoller(c, bus, testConf(), 7, nil)
	p.Seed(msgs)
	p.Start(context.Background())
	defer p.Stop()

	e := waitEvent(t, events)
	got, ok := e.(NewMessagesEvent)
	require.True(t, ok, "unexpected event %T", e)
	assert.Equal(t, 7, got.CourseID)
	require.Len(t, got.Messages, 1, "seeded messages must not be re-announced")
	assert.Equal(t, 3, got.Messages[0].ID)
}

func Test_MessagePoller_skipsOwnMessages(t *testing.T) {
	usr := testUser()
	base := time.Date(2021, 3, 14, 9, 0, 0, 0, time.UTC)
	msgs := []message.Message{
		{ID: 1, CourseID: 7, UserPublicID: usr.PublicID, Content: "my own note", Timestamp: base},
		{ID: 2, CourseID: 7, UserPublicID: "student-2", Content: "from a classmate", Timestamp: base.Add(time.Second)},
	}

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMessagesPage(w, msgs, core.PageMeta{Page: 1, Pages: 1, Total: len(msgs)})
	}))
	c.Session().SetSession("tok", "", usr)

	bus := NewBus()
	events := collectEvents(bus)

	p := NewMessagePoller(c, bus, testConf(), 7, nil)
	p.Start(context.Background())
	defer p.Stop()

	e := waitEvent(t, events)
	got := e.(NewMessagesEvent)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, 2, got.Messages[0].ID, "the session user's messages are never announced")
}

func Test_MessagePoller_ascendingOrder(t *testing.T) {
	base := time.Date(2021, 3, 14, 9, 0, 0, 0, time.UTC)
	// server returns them newest first
	msgs := []message.Message{
		{ID: 3, CourseID: 7, UserPublicID: "u3", Content: "third", Timestamp: base.Add(2 * time.Minute)},
		{ID: 1, CourseID: 7, UserPublicID: "u1", Content: "first", Timestamp: base},
		{ID: 2, CourseID: 7, UserPublicID: "u2", Content: "second", Timestamp: base.Add(time.Minute)},
	}

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMessagesPage(w, msgs, core.PageMeta{Page: 1, Pages: 1, Total: len(msgs)})
	}))
	c.Session().SetSession("tok", "", testUser())

	bus := NewBus()
	events := collectEvents(bus)

	p := NewMessagePoller(c, bus, testConf(), 7, nil)
	p.Start(context.Background())
	defer p.Stop()

	got := waitEvent(t, events).(NewMessagesEvent)
	require.Len(t, got.Messages, 3)
	for i := 1; i < len(got.Messages); i++ {
		prev, cur := got.Messages[i-1], got.Messages[i]
		assert.False(t, cur.Timestamp.Before(prev.Timestamp),
			"message %d out of order after %d", cur.ID, prev.ID)
	}
	assert.Equal(t, []int{1, 2, 3}, []int{got.Messages[0].ID, got.Messages[1].ID, got.Messages[2].ID})
}

func Test_MessagePoller_skipsTickWhileBusy(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		writeMessagesPage(w, nil, core.PageMeta{Page: 1, Pages: 1})
	}))
	c.Session().SetSession("tok", "", testUser())

	p := NewMessagePoller(c, NewBus(), testConf(), 7, nil)
	p.Start(context.Background())
	defer p.Stop()

	// several tick intervals pass while the first fetch is stuck
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "ticks during a running cycle must be skipped")

	close(release)
}

func Test_MessagePoller_stopDiscardsLateResult(t *testing.T) {
	fetching := make(chan struct{}, 1)
	release := make(chan struct{})
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case fetching <- struct{}{}:
		default:
		}
		<-release
		writeMessagesPage(w, threadFixture(t), core.PageMeta{Page: 1, Pages: 1, Total: 2})
	}))
	c.Session().SetSession("tok", "", testUser())

	bus := NewBus()
	events := collectEvents(bus)

	p := NewMessagePoller(c, bus, testConf(), 7, nil)
	p.Start(context.Background())

	<-fetching
	p.Stop()
	close(release)

	select {
	case e := <-events:
		t.Fatalf("stopped poller still announced %T", e)
	case <-time.After(150 * time.Millisecond):
	}
}

func Test_MessagePoller_startTwiceIsNoop(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeMessagesPage(w, nil, core.PageMeta{Page: 1, Pages: 1})
	}))
	c.Session().SetSession("tok", "", testUser())

	p := NewMessagePoller(c, NewBus(), testConf(), 7, nil)
	ctx := context.Background()
	p.Start(ctx)
	p.Start(ctx)
	defer p.Stop()

	time.Sleep(100 * time.Millisecond)
	got := atomic.LoadInt32(&calls)
	assert.LessOrEqual(t, got, int32(3), "a second Start must not double the poll rate")
}

func Test_MessagePoller_eventCarriesCourseTitle(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/courses":
			writeEnvelope(w, http.StatusOK, []map[string]interface{}{
				{"id": 3, "title": "History"},
				{"id": 7, "title": "Mathematics"},
			})
		default:
			writeMessagesPage(w, threadFixture(t), core.PageMeta{Page: 1, Pages: 1, Total: 2})
		}
	}))
	c.Session().SetSession("tok", "", testUser())

	bus := NewBus()
	events := collectEvents(bus)

	p := NewMessagePoller(c, bus, testConf(), 7, nil)
	p.Start(context.Background())
	defer p.Stop()

	got := waitEvent(t, events).(NewMessagesEvent)
	assert.Equal(t, 7, got.CourseID)
	assert.Equal(t, "Mathematics", got.CourseTitle)
}

func Test_MessagePoller_recoversAfterFailedFetch(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeMessagesPage(w, threadFixture(t), core.PageMeta{Page: 1, Pages: 1, Total: 2})
	}))
	c.Session().SetSession("tok", "", testUser())

	bus := NewBus()
	events := collectEvents(bus)

	p := NewMessagePoller(c, bus, testConf(), 7, nil)
	p.Start(context.Background())
	defer p.Stop()

	got := waitEvent(t, events).(NewMessagesEvent)
	require.Len(t, got.Messages, 2, "polling must resume after a failed fetch")
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(3))
}

func Test_MessagePoller_failingPollerDoesNotBlockOthers(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("course_id") == "1" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		msgs := []message.Message{
			{ID: 9, CourseID: 2, UserPublicID: "student-5", Content: "bado tupo", Timestamp: time.Date(2021, 3, 14, 9, 0, 0, 0, time.UTC)},
		}
		writeMessagesPage(w, msgs, core.PageMeta{Page: 1, Pages: 1, Total: 1})
	}))
	c.Session().SetSession("tok", "", testUser())

	bus := NewBus()
	events := collectEvents(bus)

	p1 := NewMessagePoller(c, bus, testConf(), 1, nil)
	p2 := NewMessagePoller(c, bus, testConf(), 2, nil)
	p1.Start(context.Background())
	p2.Start(context.Background())
	defer p1.Stop()
	defer p2.Stop()

	got := waitEvent(t, events).(NewMessagesEvent)
	assert.Equal(t, 2, got.CourseID, "one course's failures must not silence the other poller")
	require.Len(t, got.Messages, 1)
	assert.Equal(t, 9, got.Messages[0].ID)
}

func Test_NotificationPoller_announcesChanges(t *testing.T) {
	base := time.Date(2021, 3, 14, 9, 0, 0, 0, time.UTC)
	var calls int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		notifs := []notification.Notification{
			{ID: 1, Title: "Welcome", CreatedAt: base},
		}
		unread := 1
		if n > 2 {
			notifs = append(notifs, notification.Notification{ID: 2, Title: "New assignment", CreatedAt: base.Add(time.Minute)})
			unread = 2
		}
		writeEnvelope(w, http.StatusOK, notificationsPayload{Notifications: notifs, UnreadCount: unread})
	}))
	c.Session().SetSession("tok", "", testUser())

	bus := NewBus()
	events := collectEvents(bus)

	p := NewNotificationPoller(c, bus, testConf(), nil)
	p.Start(context.Background())
	defer p.Stop()

	first := waitEvent(t, events).(NotificationsEvent)
	require.Len(t, first.New, 1)
	assert.Equal(t, 1, first.UnreadCount)

	var second NotificationsEvent
	for {
		e := waitEvent(t, events).(NotificationsEvent)
		if len(e.New) > 0 {
			second = e
			break
		}
	}
	require.Len(t, second.New, 1, "already-known notifications must not be re-announced")
	assert.Equal(t, 2, second.New[0].ID)
	assert.Equal(t, 2, second.UnreadCount)
	assert.Len(t, second.All, 2)
}

func Test_Bus_unsubscribe(t *testing.T) {
	bus := NewBus()
	var got int
	unsub := bus.Subscribe(func(Event) { got++ })

	bus.Publish(NewMessagesEvent{CourseID: 1})
	unsub()
	bus.Publish(NewMessagesEvent{CourseID: 1})

	assert.Equal(t, 1, got)
}
