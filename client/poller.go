package client

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jifunze/jifunze/core"
	"github.com/jifunze/jifunze/core/message"
	"github.com/jifunze/jifunze/core/notification"
)

// poller states
const (
	stateIdle int32 = iota
	stateFetching
	stateDiffing
)

// runPoller drives one polling loop: an initial delay, then one tick
// per interval. cycle runs on its own goroutine; a tick that lands
// while the previous cycle is still running is skipped, never queued.
func runPoller(ctx context.Context, initialDelay, interval time.Duration, state *int32, cycle func(context.Context)) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(initialDelay):
	}

	run := func() {
		// skip-on-overlap guard
		if !atomic.CompareAndSwapInt32(state, stateIdle, stateFetching) {
			return
		}
		go cycle(ctx)
	}
	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

// MessagePoller watches one course's board and announces unseen
// messages on the bus. Messages authored by the session user are never
// announced; the send coordinator already accounts for those.
type MessagePoller struct {
	client  *Client
	session *Session
	bus     *Bus
	logger  core.Logger

	courseID     int
	initialDelay time.Duration
	interval     time.Duration

	state  int32
	mu     sync.Mutex
	known  map[int]struct{}
	title  string
	cancel context.CancelFunc
}

func NewMessagePoller(client *Client, bus *Bus, conf *core.Config, courseID int, logger core.Logger) *MessagePoller {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &MessagePoller{
		client:       client,
		session:      client.Session(),
		bus:          bus,
		logger:       logger,
		courseID:     courseID,
		initialDelay: conf.Client.InitialPollDelay,
		interval:     conf.Client.ChatRefresh,
		known:        make(map[int]struct{}),
	}
}

// Seed primes the known set with already-rendered messages so the
// first poll only announces genuinely new arrivals.
func (p *MessagePoller) Seed(msgs []message.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, msg := range msgs {
		p.known[msg.ID] = struct{}{}
	}
}

// Start begins polling until Stop is called or ctx is cancelled.
// Calling Start on a running poller is a no-op.
func (p *MessagePoller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	go runPoller(ctx, p.initialDelay, p.interval, &p.state, p.cycle)
}

// Stop halts polling. A fetch already in flight finishes but its
// result is discarded.
func (p *MessagePoller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *MessagePoller) cycle(ctx context.Context) {
	defer atomic.StoreInt32(&p.state, stateIdle)

	msgs, _, err := p.client.Messages(ctx, p.courseID, 0, 0)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn(fmt.Sprintf("message poller: fetching course %d: %v", p.courseID, err))
		}
		return
	}

	atomic.StoreInt32(&p.state, stateDiffing)
	if ctx.Err() != nil { // stopped while fetching
		return
	}

	selfID := p.session.UserID()

	p.mu.Lock()
	fresh := make([]message.Message, 0)
	for _, msg := range msgs {
		if _, seen := p.known[msg.ID]; seen {
			continue
		}
		if msg.UserPublicID == selfID {
			p.known[msg.ID] = struct{}{} // own messages are seen, never announced
			continue
		}
		fresh = append(fresh, msg)
	}
	p.mu.Unlock()

	if len(fresh) == 0 {
		return
	}
	sort.SliceStable(fresh, func(i, j int) bool { return fresh[i].Timestamp.Before(fresh[j].Timestamp) })

	p.bus.Publish(NewMessagesEvent{CourseID: p.courseID, CourseTitle: p.courseTitle(ctx), Messages: fresh})

	// announced messages become known only after the event is published
	p.mu.Lock()
	for _, msg := range fresh {
		p.known[msg.ID] = struct{}{}
	}
	p.mu.Unlock()
}

// courseTitle resolves the watched course's title, once, from the
// user's course list. Resolution failures leave the label empty and
// are retried on the next announcement.
func (p *MessagePoller) courseTitle(ctx context.Context) string {
	p.mu.Lock()
	title := p.title
	p.mu.Unlock()
	if title != "" {
		return title
	}

	courses, err := p.client.Courses(ctx)
	if err != nil {
		return ""
	}
	for _, crs := range courses {
		if crs.ID == p.courseID {
			p.mu.Lock()
			p.title = crs.Title
			p.mu.Unlock()
			return crs.Title
		}
	}
	return ""
}

// NotificationPoller watches the user's notifications and announces
// state changes on the bus.
type NotificationPoller struct {
	client *Client
	bus    *Bus
	logger core.Logger

	initialDelay time.Duration
	interval     time.Duration

	state      int32
	mu         sync.Mutex
	known      map[int]struct{}
	lastUnread int
	primed     bool
	cancel     context.CancelFunc
}

func NewNotificationPoller(client *Client, bus *Bus, conf *core.Config, logger core.Logger) *NotificationPoller {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &NotificationPoller{
		client:       client,
		bus:          bus,
		logger:       logger,
		initialDelay: conf.Client.InitialPollDelay,
		interval:     conf.Client.NotificationRefresh,
		known:        make(map[int]struct{}),
		lastUnread:   -1,
	}
}

func (p *NotificationPoller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	go runPoller(ctx, p.initialDelay, p.interval, &p.state, p.cycle)
}

func (p *NotificationPoller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *NotificationPoller) cycle(ctx context.Context) {
	defer atomic.StoreInt32(&p.state, stateIdle)

	notifs, unread, err := p.client.Notifications(ctx, false, 0)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn(fmt.Sprintf("notification poller: fetching: %v", err))
		}
		return
	}

	atomic.StoreInt32(&p.state, stateDiffing)
	if ctx.Err() != nil { // stopped while fetching
		return
	}

	p.mu.Lock()
	fresh := make([]notification.Notification, 0)
	for _, n := range notifs {
		if _, seen := p.known[n.ID]; !seen {
			fresh = append(fresh, n)
		}
	}
	changed := len(fresh) > 0 || unread != p.lastUnread || !p.primed
	p.mu.Unlock()

	if !changed {
		return
	}
	sort.SliceStable(fresh, func(i, j int) bool { return fresh[i].CreatedAt.Before(fresh[j].CreatedAt) })

	p.bus.Publish(NotificationsEvent{New: fresh, All: notifs, UnreadCount: unread})

	p.mu.Lock()
	for _, n := range fresh {
		p.known[n.ID] = struct{}{}
	}
	p.lastUnread = unread
	p.primed = true
	p.mu.Unlock()
}
