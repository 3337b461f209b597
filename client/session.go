package client

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jifunze/jifunze/core"
	"github.com/jifunze/jifunze/core/user"
)

// storage keys
const (
	keyToken        = "token"
	keyRefreshToken = "refresh_token"
	keyUser         = "user"
	keyUserID       = "user_id"
	keyRole         = "role"

	cacheKeyPrefix    = "cache_"
	lastReadKeyPrefix = "lastRead_course_"
)

// cacheEntry wraps a cached payload with its write time and TTL.
type cacheEntry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"` // unix ms
	Duration  int64           `json:"duration"`  // ms
}

// Session holds the signed-in user's credentials plus a TTL'd response
// cache and per-course read markers, all on top of a Storage.
//
// Every method is best-effort: a broken Storage degrades the session to
// "signed out" and the cache to "always miss", it never panics and
// never surfaces storage errors to callers.
type Session struct {
	store  Storage
	ttl    time.Duration
	logger core.Logger

	nowFunc func() time.Time // mockable
}

func NewSession(store Storage, conf *core.Config, logger core.Logger) *Session {
	if store == nil {
		store = NewMemoryStorage()
	}
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Session{
		store:   store,
		ttl:     conf.Client.CacheTTL,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// SetSession stores the token pair and the signed-in user.
func (s *Session) SetSession(token, refreshToken string, usr user.User) {
	s.set(keyToken, token)
	s.set(keyRefreshToken, refreshToken)
	s.set(keyUserID, usr.PublicID)
	s.set(keyRole, usr.Role)
	raw, err := json.Marshal(usr)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("session: encoding user: %v", err))
		return
	}
	s.set(keyUser, string(raw))
}

// ClearSession removes the credentials and the cache. Read markers
// survive so reads are not re-announced after the next login.
func (s *Session) ClearSession() {
	for _, key := range []string{keyToken, keyRefreshToken, keyUser, keyUserID, keyRole} {
		s.delete(key)
	}
	s.CacheClear()
}

func (s *Session) Token() string        { v, _ := s.store.Get(keyToken); return v }
func (s *Session) RefreshToken() string { v, _ := s.store.Get(keyRefreshToken); return v }
func (s *Session) UserID() string       { v, _ := s.store.Get(keyUserID); return v }
func (s *Session) Role() string         { v, _ := s.store.Get(keyRole); return v }

func (s *Session) Authenticated() bool { return s.Token() != "" }

// User returns the stored user, or false when signed out or the stored
// payload is unreadable.
func (s *Session) User() (user.User, bool) {
	raw, ok := s.store.Get(keyUser)
	if !ok || raw == "" {
		return user.User{}, false
	}
	var usr user.User
	if err := json.Unmarshal([]byte(raw), &usr); err != nil {
		s.logger.Warn(fmt.Sprintf("session: decoding user: %v", err))
		return user.User{}, false
	}
	return usr, true
}

// CacheSet stores a value under cache_<key> with the session TTL.
func (s *Session) CacheSet(key string, value interface{}) {
	s.CacheSetTTL(key, value, s.ttl)
}

// CacheSetTTL stores a value under cache_<key> with an explicit TTL,
// overwriting any existing entry.
func (s *Session) CacheSetTTL(key string, value interface{}, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("session: encoding cache %q: %v", key, err))
		return
	}
	entry := cacheEntry{
		Data:      raw,
		Timestamp: s.nowMillis(),
		Duration:  ttl.Milliseconds(),
	}
	rawEntry, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("session: encoding cache entry %q: %v", key, err))
		return
	}
	s.set(cacheKeyPrefix+key, string(rawEntry))
}

// CacheGet loads cache_<key> into dest. A missing, unreadable or
// expired entry is a miss; expired entries are evicted on read.
func (s *Session) CacheGet(key string, dest interface{}) bool {
	raw, ok := s.store.Get(cacheKeyPrefix + key)
	if !ok || raw == "" {
		return false
	}

	var entry cacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		s.delete(cacheKeyPrefix + key)
		return false
	}
	if s.nowMillis()-entry.Timestamp > entry.Duration {
		s.delete(cacheKeyPrefix + key)
		return false
	}

	if err := json.Unmarshal(entry.Data, dest); err != nil {
		s.logger.Warn(fmt.Sprintf("session: decoding cache %q: %v", key, err))
		return false
	}
	return true
}

// CacheDelete drops a single cache entry.
func (s *Session) CacheDelete(key string) {
	s.delete(cacheKeyPrefix + key)
}

// CacheClear drops every cache_ entry, leaving the rest of the store alone.
func (s *Session) CacheClear() {
	for _, key := range s.store.Keys() {
		if strings.HasPrefix(key, cacheKeyPrefix) {
			s.delete(key)
		}
	}
}

// LastRead returns the highest message ID marked read for a course.
func (s *Session) LastRead(courseID int) int {
	raw, ok := s.store.Get(lastReadKey(courseID))
	if !ok {
		return 0
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return id
}

// SetLastRead advances a course's read marker. The marker never moves
// backwards.
func (s *Session) SetLastRead(courseID, messageID int) {
	if messageID <= s.LastRead(courseID) {
		return
	}
	s.set(lastReadKey(courseID), strconv.Itoa(messageID))
}

func lastReadKey(courseID int) string {
	return lastReadKeyPrefix + strconv.Itoa(courseID)
}

// SelectedCourse returns the course last chosen on a screen
// ("chat", "attendance", ...), or false when none was recorded.
func (s *Session) SelectedCourse(screen string) (int, bool) {
	raw, ok := s.store.Get(screen + "_course_id")
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return id, true
}

// SetSelectedCourse records a screen's current course so it can be
// restored on the next visit.
func (s *Session) SetSelectedCourse(screen string, courseID int) {
	s.set(screen+"_course_id", strconv.Itoa(courseID))
}

func (s *Session) nowMillis() int64 {
	return s.nowFunc().UnixNano() / int64(time.Millisecond)
}

func (s *Session) set(key, value string) {
	if err := s.store.Set(key, value); err != nil {
		s.logger.Warn(fmt.Sprintf("session: storing %q: %v", key, err))
	}
}

func (s *Session) delete(key string) {
	if err := s.store.Delete(key); err != nil {
		s.logger.Warn(fmt.Sprintf("session: deleting %q: %v", key, err))
	}
}
