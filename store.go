package cookie

import (
	"errors"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNoHost the request URL carries no host.
	ErrNoHost = errors.New("request URL has no host")
	// ErrInvalidDomain the Domain attribute does not cover the request
	// host that set the cookie.
	ErrInvalidDomain = errors.New("cookie domain does not match request host")
)

// PublicSuffixList declares the part of a host under which registering
// a cookie domain must be refused, e.g. "co.uk". It has the same shape
// as the net/http/cookiejar list so golang.org/x/net/publicsuffix plugs
// in directly. Implementations must be safe for concurrent use.
type PublicSuffixList interface {
	// PublicSuffix returns the public suffix of domain.
	PublicSuffix(domain string) string
	// String returns a description of the source of the list.
	String() string
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithPublicSuffixList makes Insert reject a Domain attribute that is
// itself a public suffix, unless it equals the setting host.
func WithPublicSuffixList(list PublicSuffixList) StoreOption {
	return func(s *Store) { s.psl = list }
}

type storeKey struct {
	domain, path, name string
}

// Store is a mutable collection of cookies keyed by
// (domain, path, name). Domain keys are lower-cased; path and name are
// case-sensitive. At most one entry lives per key. Expired entries are
// removed lazily: they stay until queried or overwritten and the
// non-Any accessors treat them as absent. A Store is safe for
// concurrent use without caller-side locking.
type Store struct {
	mu      sync.RWMutex
	entries map[storeKey]Cookie
	psl     PublicSuffixList
}

// NewStore returns an empty Store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{entries: make(map[storeKey]Cookie)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert stores c scoped by the URL that set it. An absent Path
// resolves to the default path of u; an absent Domain scopes the
// cookie to exactly the host of u. A Domain attribute that does not
// domain-match the host of u is rejected with ErrInvalidDomain, as is
// one equal to a configured public suffix. Inserting an already
// expired cookie deletes any entry at the resolved key instead of
// storing it.
func (s *Store) Insert(c Cookie, u *url.URL) error {
	host := CanonicalHost(u.Host)
	if host == "" {
		return ErrNoHost
	}

	hostOnly := c.domain == ""
	domain := c.domain
	if hostOnly {
		domain = host
	} else {
		if s.psl != nil && host != domain && s.psl.PublicSuffix(domain) == domain {
			return ErrInvalidDomain
		}
		if !domainMatch(domain, hostOnly, host) {
			return ErrInvalidDomain
		}
	}
	if c.path == "" || !strings.HasPrefix(c.path, "/") {
		c.path = DefaultPath(u.Path)
	}

	key := storeKey{domain: domain, path: c.path, name: c.name}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Expired(time.Now()) {
		delete(s.entries, key)
		return nil
	}
	s.entries[key] = c
	return nil
}

// Contains reports whether an unexpired cookie lives at the exact
// (domain, path, name) key.
func (s *Store) Contains(domain, path, name string) bool {
	_, ok := s.Get(domain, path, name)
	return ok
}

// ContainsAny is Contains ignoring expiry.
func (s *Store) ContainsAny(domain, path, name string) bool {
	_, ok := s.GetAny(domain, path, name)
	return ok
}

// Get returns the unexpired cookie at the exact key. An expired entry
// is reported as absent but not purged.
func (s *Store) Get(domain, path, name string) (Cookie, bool) {
	c, ok := s.GetAny(domain, path, name)
	if !ok || c.Expired(time.Now()) {
		return Cookie{}, false
	}
	return c, true
}

// GetAny returns the cookie at the exact key regardless of expiry.
func (s *Store) GetAny(domain, path, name string) (Cookie, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.entries[storeKey{domain: normalizeDomain(domain), path: path, name: name}]
	return c, ok
}

// Remove deletes and returns the entry at the exact key, expired or
// not.
func (s *Store) Remove(domain, path, name string) (Cookie, bool) {
	key := storeKey{domain: normalizeDomain(domain), path: path, name: name}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.entries[key]
	if ok {
		delete(s.entries, key)
	}
	return c, ok
}

// Matches returns every unexpired cookie that applies to u: its domain
// covers the host of u, its path covers the path of u and, when Secure
// is set, u uses a TLS scheme (https or wss). HttpOnly does not filter
// here; it is carried as metadata. Cookies with longer paths come
// first; ties are broken by domain, then name.
func (s *Store) Matches(u *url.URL) []Cookie {
	host := CanonicalHost(u.Host)
	path := u.Path
	if path == "" {
		path = "/"
	}
	tls := u.Scheme == "https" || u.Scheme == "wss"
	now := time.Now()

	s.mu.RLock()
	type match struct {
		key storeKey
		c   Cookie
	}
	found := make([]match, 0, len(s.entries))
	for key, c := range s.entries {
		if c.Expired(now) {
			continue
		}
		if !domainMatch(key.domain, c.domain == "", host) {
			continue
		}
		if !pathMatch(key.path, path) {
			continue
		}
		if c.secure && !tls {
			continue
		}
		found = append(found, match{key, c})
	}
	s.mu.RUnlock()

	sort.Slice(found, func(i, j int) bool {
		a, b := found[i].key, found[j].key
		if len(a.path) != len(b.path) {
			return len(a.path) > len(b.path)
		}
		if a.domain != b.domain {
			return a.domain < b.domain
		}
		return a.name < b.name
	})

	cookies := make([]Cookie, len(found))
	for i, m := range found {
		cookies[i] = m.c
	}
	return cookies
}

// AllUnexpired returns a snapshot of every unexpired cookie.
func (s *Store) AllUnexpired() []Cookie {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	cookies := make([]Cookie, 0, len(s.entries))
	for _, c := range s.entries {
		if !c.Expired(now) {
			cookies = append(cookies, c)
		}
	}
	return cookies
}

// All returns a snapshot of every cookie, expired entries included.
func (s *Store) All() []Cookie {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cookies := make([]Cookie, 0, len(s.entries))
	for _, c := range s.entries {
		cookies = append(cookies, c)
	}
	return cookies
}

// Len returns the number of physically stored entries, lazily expired
// ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear removes all entries.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[storeKey]Cookie)
}

// CanonicalHost lower-cases host, strips any port and trims a trailing
// dot.
func CanonicalHost(host string) string {
	if i := strings.IndexByte(host, ']'); i >= 0 {
		// bracketed IPv6 literal, keep up to the bracket
		return strings.ToLower(strings.TrimPrefix(host[:i], "["))
	}
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return strings.TrimSuffix(strings.ToLower(host), ".")
}

// DefaultPath derives the default cookie path from a request path: the
// path with its last segment removed, or "/" when that leaves nothing.
func DefaultPath(path string) string {
	if path == "" || path[0] != '/' {
		return "/"
	}
	i := strings.LastIndexByte(path, '/')
	if i == 0 {
		return "/"
	}
	return path[:i]
}

// domainMatch implements domain-match of RFC 6265 section 5.1.3: the
// host equals the cookie domain, or is a proper subdomain of a
// non-host-only cookie domain.
func domainMatch(domain string, hostOnly bool, host string) bool {
	if host == domain {
		return true
	}
	return !hostOnly && strings.HasSuffix(host, "."+domain)
}

// pathMatch implements path-match of RFC 6265 section 5.1.4: prefix
// with a "/" boundary, so "/foo" covers "/foo/bar" but not "/foobar".
func pathMatch(cookiePath, requestPath string) bool {
	if requestPath == cookiePath {
		return true
	}
	if strings.HasPrefix(requestPath, cookiePath) {
		if cookiePath[len(cookiePath)-1] == '/' {
			return true
		}
		if requestPath[len(cookiePath)] == '/' {
			return true
		}
	}
	return false
}
