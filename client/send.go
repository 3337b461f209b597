package client

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/jifunze/jifunze/core/message"
)

// MessageID identifies a thread entry: a server-assigned int once
// confirmed, or a client-side temp tag while the send is pending.
type MessageID struct {
	ID   int    // server ID, 0 while pending
	Temp string // "temp-<unix ms>", empty once confirmed
}

func (id MessageID) Pending() bool { return id.Temp != "" }

func (id MessageID) String() string {
	if id.Pending() {
		return id.Temp
	}
	return fmt.Sprintf("%d", id.ID)
}

// ThreadMessage is one entry of an optimistic thread.
type ThreadMessage struct {
	MessageID
	CourseID     int
	UserPublicID string
	UserName     string
	ParentID     *int
	Content      string
	Timestamp    time.Time
}

// SendCoordinator keeps a course thread consistent across optimistic
// sends: a sent message appears immediately under a temp ID, is
// replaced in place by the confirmed server message, or is rolled back
// when the server refuses it. At most one send is in flight; the
// thread stays in ascending timestamp order with no duplicate IDs.
type SendCoordinator struct {
	client   *Client
	session  *Session
	bus      *Bus
	courseID int

	mu       sync.Mutex
	thread   []ThreadMessage
	inFlight bool

	nowFunc func() time.Time // mockable
}

func NewSendCoordinator(client *Client, bus *Bus, courseID int) *SendCoordinator {
	return &SendCoordinator{
		client:   client,
		session:  client.Session(),
		bus:      bus,
		courseID: courseID,
		nowFunc:  time.Now,
	}
}

// Thread returns a copy of the thread, ascending by timestamp.
func (sc *SendCoordinator) Thread() []ThreadMessage {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	out := make([]ThreadMessage, len(sc.thread))
	copy(out, sc.thread)
	return out
}

// Sending reports whether a send is outstanding.
func (sc *SendCoordinator) Sending() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.inFlight
}

// Merge folds server-fetched messages into the thread. Confirmed
// duplicates are skipped; pending sends are left untouched.
func (sc *SendCoordinator) Merge(msgs []message.Message) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for _, msg := range msgs {
		if sc.hasConfirmed(msg.ID) {
			continue
		}
		sc.insert(confirmedThreadMessage(msg))
	}
}

// Send posts content to the course. The message shows up in the thread
// immediately; the call returns once the server has confirmed or
// refused it. Content under 2 characters, or a course missing from the
// cached course list, is rejected without any network traffic.
func (sc *SendCoordinator) Send(ctx context.Context, content string, parentID *int) (ThreadMessage, error) {
	content = strings.TrimSpace(content)
	if len(content) < 2 {
		return ThreadMessage{}, ErrTooShort
	}
	if !sc.client.EnrolledLocally(sc.courseID) {
		return ThreadMessage{}, ErrNotEnrolled
	}

	usr, _ := sc.session.User()
	now := sc.nowFunc()

	sc.mu.Lock()
	if sc.inFlight {
		sc.mu.Unlock()
		return ThreadMessage{}, ErrSendInFlight
	}
	sc.inFlight = true

	pending := ThreadMessage{
		MessageID:    MessageID{Temp: fmt.Sprintf("temp-%d", now.UnixNano()/int64(time.Millisecond))},
		CourseID:     sc.courseID,
		UserPublicID: usr.PublicID,
		UserName:     usr.Name,
		ParentID:     parentID,
		Content:      content,
		Timestamp:    now.UTC(),
	}
	sc.insert(pending)
	sc.mu.Unlock()

	msg, err := sc.client.PostMessage(ctx, sc.courseID, parentID, content)

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.inFlight = false

	if err != nil {
		// rollback: the optimistic entry disappears
		sc.remove(pending.MessageID)
		return ThreadMessage{}, sc.mapSendError(err)
	}

	confirmed := confirmedThreadMessage(msg)
	sc.replace(pending.MessageID, confirmed)
	return confirmed, nil
}

// mapSendError translates transport and server failures into the
// client error taxonomy.
func (sc *SendCoordinator) mapSendError(err error) error {
	cause := errors.Cause(err)
	switch cause {
	case ErrNotEnrolled, ErrUnauthorized:
		return cause
	}
	if IsNetworkError(err) {
		return err
	}
	if _, ok := cause.(*APIError); ok {
		return err
	}
	return errors.Wrap(err, "sending message")
}

// insert places tm by ascending timestamp. Caller holds sc.mu.
func (sc *SendCoordinator) insert(tm ThreadMessage) {
	i := sort.Search(len(sc.thread), func(i int) bool {
		return sc.thread[i].Timestamp.After(tm.Timestamp)
	})
	sc.thread = append(sc.thread, ThreadMessage{})
	copy(sc.thread[i+1:], sc.thread[i:])
	sc.thread[i] = tm
}

// replace swaps the entry with the given ID for its confirmed form,
// keeping the thread sorted. Caller holds sc.mu.
func (sc *SendCoordinator) replace(id MessageID, confirmed ThreadMessage) {
	if sc.hasConfirmed(confirmed.ID) {
		// the poller merged the server copy first
		sc.remove(id)
		return
	}
	for i := range sc.thread {
		if sc.thread[i].MessageID == id {
			sc.thread[i] = confirmed
			sort.SliceStable(sc.thread, func(a, b int) bool {
				return sc.thread[a].Timestamp.Before(sc.thread[b].Timestamp)
			})
			return
		}
	}
	// entry vanished (e.g. thread reset mid-send); fall back to insert
	sc.insert(confirmed)
}

// remove drops the entry with the given ID. Caller holds sc.mu.
func (sc *SendCoordinator) remove(id MessageID) {
	for i := range sc.thread {
		if sc.thread[i].MessageID == id {
			sc.thread = append(sc.thread[:i], sc.thread[i+1:]...)
			return
		}
	}
}

// hasConfirmed reports whether a confirmed server ID is already in the
// thread. Caller holds sc.mu.
func (sc *SendCoordinator) hasConfirmed(id int) bool {
	for _, tm := range sc.thread {
		if !tm.Pending() && tm.ID == id {
			return true
		}
	}
	return false
}

func confirmedThreadMessage(msg message.Message) ThreadMessage {
	return ThreadMessage{
		MessageID:    MessageID{ID: msg.ID},
		CourseID:     msg.CourseID,
		UserPublicID: msg.UserPublicID,
		UserName:     msg.UserName,
		ParentID:     msg.ParentID,
		Content:      msg.Content,
		Timestamp:    msg.Timestamp,
	}
}
