package bolt

import (
	"net/url"
	"strings"
	"time"

	"github.com/ohler55/ojg/oj"
	"github.com/shiroyk/cookie"
	"github.com/shiroyk/cookie/logger"
)

// CookieStore is a cookie.Store with write-through persistence in a
// bbolt database. Reads are served from memory; Insert, Remove and
// Clear mirror to disk. Only persistent cookies are written out:
// session cookies live in memory and lapse with the process, matching
// client behavior. Persistence failures are logged and never fail the
// in-memory operation.
type CookieStore struct {
	*cookie.Store
	db *DB
}

// New opens or creates the database at path and loads every surviving
// persistent cookie into a fresh store.
func New(path string, opts ...cookie.StoreOption) (*CookieStore, error) {
	db, err := NewDB(path, "cookie")
	if err != nil {
		return nil, err
	}
	s := &CookieStore{Store: cookie.NewStore(opts...), db: db}
	if err = s.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// record the serialized form of one stored entry. Key is the resolved
// key domain, which differs from the Domain attribute for host-only
// cookies.
type record struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Key         string `json:"key"`
	HostOnly    bool   `json:"hostOnly"`
	Path        string `json:"path"`
	Secure      bool   `json:"secure,omitempty"`
	HTTPOnly    bool   `json:"httpOnly,omitempty"`
	Partitioned bool   `json:"partitioned,omitempty"`
	SameSite    string `json:"sameSite,omitempty"`
	ExpiresAt   int64  `json:"expiresAt"`
}

// Insert stores c scoped by the URL that set it and mirrors the result
// to disk under the resolved (domain, path, name) key.
func (s *CookieStore) Insert(c cookie.Cookie, u *url.URL) error {
	if err := s.Store.Insert(c, u); err != nil {
		return err
	}

	domain := c.Domain()
	hostOnly := domain == ""
	if hostOnly {
		domain = cookie.CanonicalHost(u.Host)
	}
	path := c.Path()
	if path == "" || !strings.HasPrefix(path, "/") {
		path = cookie.DefaultPath(u.Path)
	}
	key := recordKey(domain, path, c.Name())

	deadline, persistent := c.ExpiresAt()
	if !persistent || c.Expired(time.Now()) {
		if err := s.db.Delete(key); err != nil {
			logger.Errorf("failed to delete cookie %s: %s", c.Name(), err)
		}
		return nil
	}

	rec := record{
		Name:        c.Name(),
		Value:       c.Value(),
		Key:         domain,
		HostOnly:    hostOnly,
		Path:        path,
		Secure:      c.Secure(),
		HTTPOnly:    c.HTTPOnly(),
		Partitioned: c.Partitioned(),
		SameSite:    c.SameSite().String(),
		ExpiresAt:   deadline.Unix(),
	}
	data, err := oj.Marshal(&rec)
	if err == nil {
		err = s.db.PutUntil(key, data, deadline)
	}
	if err != nil {
		logger.Errorf("failed to persist cookie %s: %s", c.Name(), err)
	}
	return nil
}

// Remove deletes the entry at the exact key from memory and disk.
func (s *CookieStore) Remove(domain, path, name string) (cookie.Cookie, bool) {
	c, ok := s.Store.Remove(domain, path, name)
	key := recordKey(cookie.CanonicalHost(strings.TrimPrefix(domain, ".")), path, name)
	if err := s.db.Delete(key); err != nil {
		logger.Errorf("failed to delete cookie %s: %s", name, err)
	}
	return c, ok
}

// Clear removes all entries from memory and disk.
func (s *CookieStore) Clear() {
	s.Store.Clear()
	if err := s.db.Clear(); err != nil {
		logger.Errorf("failed to clear cookies: %s", err)
	}
}

// Close closes the database. The in-memory store stays usable.
func (s *CookieStore) Close() error {
	return s.db.Close()
}

func (s *CookieStore) load() error {
	return s.db.ForEach(func(_, value []byte) error {
		var rec record
		if err := oj.Unmarshal(value, &rec); err != nil {
			logger.Errorf("failed to decode cookie record: %s", err)
			return nil
		}
		b := cookie.NewBuilder(rec.Name, rec.Value).
			Path(rec.Path).
			Secure(rec.Secure).
			HTTPOnly(rec.HTTPOnly).
			Partitioned(rec.Partitioned).
			Expires(time.Unix(rec.ExpiresAt, 0))
		if !rec.HostOnly {
			b.Domain(rec.Key)
		}
		switch rec.SameSite {
		case "Strict":
			b.SameSite(cookie.SameSiteStrict)
		case "Lax":
			b.SameSite(cookie.SameSiteLax)
		case "None":
			b.SameSite(cookie.SameSiteNone)
		}
		c, err := b.Build()
		if err != nil {
			return nil
		}
		u := &url.URL{Scheme: "https", Host: rec.Key, Path: rec.Path}
		if err = s.Store.Insert(c, u); err != nil {
			logger.Errorf("failed to restore cookie %s: %s", rec.Name, err)
		}
		return nil
	})
}

func recordKey(domain, path, name string) []byte {
	return []byte(domain + ";" + path + ";" + name)
}
