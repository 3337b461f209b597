package client

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jifunze/jifunze/core"
	"github.com/jifunze/jifunze/core/user"
)

func testConf() *core.Config {
	return &core.Config{
		Client: core.ClientConfig{
			BaseURL:             "http://localhost:8000",
			RequestTimeout:      2 * time.Second,
			NotificationRefresh: 40 * time.Millisecond,
			ChatRefresh:         40 * time.Millisecond,
			InitialPollDelay:    5 * time.Millisecond,
			CacheTTL:            5 * time.Minute,
		},
	}
}

func testUser() user.User {
	return user.User{
		PublicID: "6f1b0a52-9a6d-4f7e-8a74-6f3f3e6f0a01",
		Name:     "Asha Mwangi",
		Email:    "asha@kilimani.ac",
		Role:     user.RoleStudent,
		SchoolID: 1,
	}
}

func Test_Session_lifecycle(t *testing.T) {
	sess := NewSession(NewMemoryStorage(), testConf(), nil)
	usr := testUser()

	assert.False(t, sess.Authenticated())

	sess.SetSession("access-token", "refresh-token", usr)

	assert.True(t, sess.Authenticated())
	assert.Equal(t, "access-token", sess.Token())
	assert.Equal(t, "refresh-token", sess.RefreshToken())
	assert.Equal(t, usr.PublicID, sess.UserID())
	assert.Equal(t, user.RoleStudent, sess.Role())

	stored, ok := sess.User()
	require.True(t, ok)
	assert.Equal(t, usr.Email, stored.Email)
	assert.Equal(t, usr.Name, stored.Name)

	sess.CacheSet("courses", []int{1, 2, 3})
	sess.SetLastRead(7, 42)

	sess.ClearSession()

	assert.False(t, sess.Authenticated())
	assert.Empty(t, sess.Token())
	assert.Empty(t, sess.UserID())
	_, ok = sess.User()
	assert.False(t, ok)

	var cached []int
	assert.False(t, sess.CacheGet("courses", &cached), "cache must be dropped with the session")
	assert.Equal(t, 42, sess.LastRead(7), "read markers must survive sign-out")
}

func Test_Session_cacheExpiry(t *testing.T) {
	sess := NewSession(NewMemoryStorage(), testConf(), nil)
	now := time.Now()
	sess.nowFunc = func() time.Time { return now }

	sess.CacheSet("courses", []string{"algebra", "chemistry"})

	var cached []string
	require.True(t, sess.CacheGet("courses", &cached))
	assert.Equal(t, []string{"algebra", "chemistry"}, cached)

	// still fresh just inside the TTL
	now = now.Add(5*time.Minute - time.Second)
	cached = nil
	assert.True(t, sess.CacheGet("courses", &cached))

	// stale past the TTL; the entry is also evicted
	now = now.Add(2 * time.Second)
	assert.False(t, sess.CacheGet("courses", &cached))
	_, ok := sess.store.Get("cache_courses")
	assert.False(t, ok, "expired entry must be evicted on read")
}

func Test_Session_cachePerEntryTTL(t *testing.T) {
	sess := NewSession(NewMemoryStorage(), testConf(), nil)
	now := time.Now()
	sess.nowFunc = func() time.Time { return now }

	sess.CacheSetTTL("stats", map[string]int{"classes": 5}, 5*time.Second)
	sess.CacheSet("courses", []int{1, 2})

	var stats map[string]int
	now = now.Add(time.Second)
	require.True(t, sess.CacheGet("stats", &stats))
	assert.Equal(t, 5, stats["classes"])

	// the short entry expires while the default-TTL entry stays fresh
	now = now.Add(5 * time.Second)
	assert.False(t, sess.CacheGet("stats", &stats))
	var courses []int
	assert.True(t, sess.CacheGet("courses", &courses))

	sess.CacheDelete("courses")
	assert.False(t, sess.CacheGet("courses", &courses))
}

func Test_Session_cacheClearLeavesSessionKeys(t *testing.T) {
	sess := NewSession(NewMemoryStorage(), testConf(), nil)
	sess.SetSession("tok", "ref", testUser())
	sess.CacheSet("a", 1)
	sess.CacheSet("b", 2)

	sess.CacheClear()

	var v int
	assert.False(t, sess.CacheGet("a", &v))
	assert.False(t, sess.CacheGet("b", &v))
	assert.Equal(t, "tok", sess.Token())
}

func Test_Session_lastReadNeverDecreases(t *testing.T) {
	sess := NewSession(NewMemoryStorage(), testConf(), nil)

	assert.Equal(t, 0, sess.LastRead(3))

	sess.SetLastRead(3, 10)
	assert.Equal(t, 10, sess.LastRead(3))

	sess.SetLastRead(3, 7) // stale marker, ignored
	assert.Equal(t, 10, sess.LastRead(3))

	sess.SetLastRead(3, 11)
	assert.Equal(t, 11, sess.LastRead(3))

	// markers are per course
	assert.Equal(t, 0, sess.LastRead(4))
}

func Test_Session_selectedCourse(t *testing.T) {
	sess := NewSession(NewMemoryStorage(), testConf(), nil)

	_, ok := sess.SelectedCourse("chat")
	assert.False(t, ok)

	sess.SetSelectedCourse("chat", 9)
	sess.SetSelectedCourse("attendance", 4)

	id, ok := sess.SelectedCourse("chat")
	require.True(t, ok)
	assert.Equal(t, 9, id)
	id, _ = sess.SelectedCourse("attendance")
	assert.Equal(t, 4, id)
}

// brokenStorage fails every write and remembers nothing.
type brokenStorage struct{}

func (brokenStorage) Get(string) (string, bool) { return "", false }
func (brokenStorage) Set(string, string) error  { return errors.New("disk full") }
func (brokenStorage) Delete(string) error       { return errors.New("disk full") }
func (brokenStorage) Keys() []string            { return nil }

func Test_Session_brokenStorageDegradesQuietly(t *testing.T) {
	sess := NewSession(brokenStorage{}, testConf(), nil)

	assert.NotPanics(t, func() {
		sess.SetSession("tok", "ref", testUser())
		sess.CacheSet("courses", []int{1})
		sess.SetLastRead(1, 5)
		sess.ClearSession()
	})

	assert.False(t, sess.Authenticated())
	var v []int
	assert.False(t, sess.CacheGet("courses", &v))
	assert.Equal(t, 0, sess.LastRead(1))
}

func Test_FileStorage_roundTrip(t *testing.T) {
	path := t.TempDir() + "/session.json"

	store, err := NewFileStorage(path)
	require.NoError(t, err)
	require.NoError(t, store.Set("token", "abc"))
	require.NoError(t, store.Set("role", "student"))
	require.NoError(t, store.Delete("role"))

	// a fresh handle sees the persisted state
	reopened, err := NewFileStorage(path)
	require.NoError(t, err)
	val, ok := reopened.Get("token")
	assert.True(t, ok)
	assert.Equal(t, "abc", val)
	_, ok = reopened.Get("role")
	assert.False(t, ok)
}
