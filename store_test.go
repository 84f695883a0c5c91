package cookie

import (
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/publicsuffix"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func mustParse(t *testing.T, raw string) Cookie {
	t.Helper()
	c, err := Parse(raw)
	require.NoError(t, err)
	return c
}

func TestInsertAndMatch(t *testing.T) {
	t.Parallel()
	s := NewStore()
	c := mustParse(t, "session=abc123; Domain=example.com; Path=/; Secure")
	require.NoError(t, s.Insert(c, mustURL(t, "https://example.com/login")))

	matches := s.Matches(mustURL(t, "https://example.com/app"))
	require.Len(t, matches, 1)
	assert.True(t, c.Equal(matches[0]))

	assert.Empty(t, s.Matches(mustURL(t, "http://example.com/app")))
}

func TestDomainMatch(t *testing.T) {
	t.Parallel()
	s := NewStore()
	c := mustParse(t, "a=1; Domain=example.com; Path=/")
	require.NoError(t, s.Insert(c, mustURL(t, "https://example.com/")))

	assert.Len(t, s.Matches(mustURL(t, "https://sub.example.com/")), 1)
	assert.Empty(t, s.Matches(mustURL(t, "https://otherexample.com/")))
}

func TestHostOnly(t *testing.T) {
	t.Parallel()
	s := NewStore()
	require.NoError(t, s.Insert(mustParse(t, "a=1; Path=/"), mustURL(t, "https://example.com/")))

	assert.Len(t, s.Matches(mustURL(t, "https://example.com/")), 1)
	assert.Empty(t, s.Matches(mustURL(t, "https://sub.example.com/")))
	assert.True(t, s.Contains("example.com", "/", "a"))
}

func TestInsertRejectsForeignDomain(t *testing.T) {
	t.Parallel()
	s := NewStore()
	err := s.Insert(mustParse(t, "a=1; Domain=other.com"), mustURL(t, "https://example.com/"))
	assert.ErrorIs(t, err, ErrInvalidDomain)
	assert.Zero(t, s.Len())

	// a parent domain may not set a cookie for a sibling
	err = s.Insert(mustParse(t, "a=1; Domain=sub.example.com"), mustURL(t, "https://example.com/"))
	assert.ErrorIs(t, err, ErrInvalidDomain)

	// but a subdomain may set one for its parent
	err = s.Insert(mustParse(t, "a=1; Domain=example.com"), mustURL(t, "https://sub.example.com/"))
	assert.NoError(t, err)
}

func TestInsertNoHost(t *testing.T) {
	t.Parallel()
	s := NewStore()
	err := s.Insert(mustParse(t, "a=1"), &url.URL{Scheme: "file", Path: "/tmp/x"})
	assert.ErrorIs(t, err, ErrNoHost)
}

func TestPublicSuffixGuard(t *testing.T) {
	t.Parallel()
	s := NewStore(WithPublicSuffixList(publicsuffix.List))
	err := s.Insert(mustParse(t, "a=1; Domain=com"), mustURL(t, "https://example.com/"))
	assert.ErrorIs(t, err, ErrInvalidDomain)

	err = s.Insert(mustParse(t, "a=1; Domain=example.com"), mustURL(t, "https://example.com/"))
	assert.NoError(t, err)
}

func TestPathMatch(t *testing.T) {
	t.Parallel()
	s := NewStore()
	require.NoError(t, s.Insert(mustParse(t, "a=1; Path=/api"), mustURL(t, "https://x.com/")))

	assert.Len(t, s.Matches(mustURL(t, "https://x.com/api")), 1)
	assert.Len(t, s.Matches(mustURL(t, "https://x.com/api/v1/x")), 1)
	assert.Empty(t, s.Matches(mustURL(t, "https://x.com/apiextra")))
}

func TestDefaultPath(t *testing.T) {
	t.Parallel()
	s := NewStore()
	require.NoError(t, s.Insert(mustParse(t, "a=1"), mustURL(t, "https://x.com/docs/web/cookies")))

	assert.True(t, s.Contains("x.com", "/docs/web", "a"))
	assert.Len(t, s.Matches(mustURL(t, "https://x.com/docs/web/other")), 1)
	assert.Empty(t, s.Matches(mustURL(t, "https://x.com/docs")))

	require.NoError(t, s.Insert(mustParse(t, "b=1"), mustURL(t, "https://x.com/top")))
	assert.True(t, s.Contains("x.com", "/", "b"))
}

func TestSecureGating(t *testing.T) {
	t.Parallel()
	s := NewStore()
	require.NoError(t, s.Insert(mustParse(t, "a=1; Secure; Path=/"), mustURL(t, "https://x.com/")))

	assert.Empty(t, s.Matches(mustURL(t, "http://x.com/")))
	assert.Len(t, s.Matches(mustURL(t, "https://x.com/")), 1)
	assert.Len(t, s.Matches(mustURL(t, "wss://x.com/")), 1)
	assert.Empty(t, s.Matches(mustURL(t, "ws://x.com/")))
}

func TestHTTPOnlyNotFiltered(t *testing.T) {
	t.Parallel()
	s := NewStore()
	require.NoError(t, s.Insert(mustParse(t, "a=1; HttpOnly; Path=/"), mustURL(t, "http://x.com/")))

	matches := s.Matches(mustURL(t, "http://x.com/"))
	require.Len(t, matches, 1)
	assert.True(t, matches[0].HTTPOnly())
}

func TestOverwrite(t *testing.T) {
	t.Parallel()
	s := NewStore()
	u := mustURL(t, "https://x.com/")
	require.NoError(t, s.Insert(mustParse(t, "a=old; Path=/"), u))
	require.NoError(t, s.Insert(mustParse(t, "a=new; Path=/; HttpOnly"), u))

	assert.Equal(t, 1, s.Len())
	c, ok := s.Get("x.com", "/", "a")
	require.True(t, ok)
	assert.Equal(t, "new", c.Value())
	assert.True(t, c.HTTPOnly())
}

func TestExpireOnInsertDeletes(t *testing.T) {
	t.Parallel()
	s := NewStore()
	u := mustURL(t, "https://x.com/")
	require.NoError(t, s.Insert(mustParse(t, "a=1; Domain=x.com; Path=/; Max-Age=3600"), u))
	require.True(t, s.ContainsAny("x.com", "/", "a"))

	require.NoError(t, s.Insert(mustParse(t, "a=; Domain=x.com; Path=/; Max-Age=-1"), u))
	assert.False(t, s.ContainsAny("x.com", "/", "a"))
	assert.Zero(t, s.Len())
}

func TestLazyExpiry(t *testing.T) {
	t.Parallel()
	s := NewStore()
	c, err := NewBuilder("a", "1").Path("/").Expires(time.Now().Add(30 * time.Millisecond)).Build()
	require.NoError(t, err)
	require.NoError(t, s.Insert(c, mustURL(t, "https://x.com/")))

	time.Sleep(50 * time.Millisecond)

	// expired but still physically present
	assert.False(t, s.Contains("x.com", "/", "a"))
	assert.True(t, s.ContainsAny("x.com", "/", "a"))
	_, ok := s.Get("x.com", "/", "a")
	assert.False(t, ok)
	got, ok := s.GetAny("x.com", "/", "a")
	assert.True(t, ok)
	assert.Equal(t, "1", got.Value())

	assert.Empty(t, s.Matches(mustURL(t, "https://x.com/")))
	assert.Empty(t, s.AllUnexpired())
	assert.Len(t, s.All(), 1)
	assert.Equal(t, 1, s.Len())
}

func TestRemove(t *testing.T) {
	t.Parallel()
	s := NewStore()
	require.NoError(t, s.Insert(mustParse(t, "a=1; Path=/"), mustURL(t, "https://x.com/")))

	c, ok := s.Remove("x.com", "/", "a")
	require.True(t, ok)
	assert.Equal(t, "1", c.Value())
	assert.Zero(t, s.Len())

	_, ok = s.Remove("x.com", "/", "a")
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	t.Parallel()
	s := NewStore()
	u := mustURL(t, "https://x.com/")
	require.NoError(t, s.Insert(mustParse(t, "a=1; Path=/"), u))
	require.NoError(t, s.Insert(mustParse(t, "b=2; Path=/"), u))

	s.Clear()
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Matches(u))
	assert.Empty(t, s.All())
}

func TestMatchesOrdering(t *testing.T) {
	t.Parallel()
	s := NewStore()
	u := mustURL(t, "https://x.com/api/v1/users")
	require.NoError(t, s.Insert(mustParse(t, "root=1; Path=/"), u))
	require.NoError(t, s.Insert(mustParse(t, "api=1; Path=/api"), u))
	require.NoError(t, s.Insert(mustParse(t, "deep=1; Path=/api/v1"), u))

	matches := s.Matches(u)
	require.Len(t, matches, 3)
	assert.Equal(t, "deep", matches[0].Name())
	assert.Equal(t, "api", matches[1].Name())
	assert.Equal(t, "root", matches[2].Name())
}

func TestMatchesTieBreak(t *testing.T) {
	t.Parallel()
	s := NewStore()
	u := mustURL(t, "https://sub.example.com/")
	require.NoError(t, s.Insert(mustParse(t, "b=1; Domain=sub.example.com; Path=/"), u))
	require.NoError(t, s.Insert(mustParse(t, "a=1; Domain=example.com; Path=/"), u))

	matches := s.Matches(u)
	require.Len(t, matches, 2)
	// equal path length: domain, then name
	assert.Equal(t, "a", matches[0].Name())
	assert.Equal(t, "b", matches[1].Name())
}

func TestHostNormalization(t *testing.T) {
	t.Parallel()
	s := NewStore()
	require.NoError(t, s.Insert(mustParse(t, "a=1; Path=/"), mustURL(t, "https://Example.COM:8443/")))

	assert.True(t, s.Contains("example.com", "/", "a"))
	assert.Len(t, s.Matches(mustURL(t, "https://example.com./")), 1)
}

func TestConcurrentInsert(t *testing.T) {
	t.Parallel()
	s := NewStore()
	u := mustURL(t, "https://x.com/")

	const n = 64
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			c, err := NewBuilder(fmt.Sprintf("c%d", i), "v").Path("/").Build()
			assert.NoError(t, err)
			assert.NoError(t, s.Insert(c, u))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n, s.Len())
	assert.Len(t, s.Matches(u), n)
}
