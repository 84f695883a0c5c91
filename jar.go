package cookie

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shiroyk/cookie/logger"
)

// Jar adapts a Store to the net/http CookieJar contract plus the
// string-level helpers an HTTP client uses to build headers.
// Implementations of http.CookieJar must be safe for concurrent use by
// multiple goroutines; Jar inherits that from Store.
type Jar struct {
	store *Store
}

// NewJar returns a Jar over a fresh Store.
func NewJar(opts ...StoreOption) *Jar {
	return &Jar{store: NewStore(opts...)}
}

// Store returns the underlying Store.
func (j *Jar) Store() *Store { return j.store }

// SetCookies handles the receipt of the cookies in a reply for the
// given URL. Cookies rejected by the store (cross-domain Domain
// attributes) are skipped.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	for _, hc := range cookies {
		if hc == nil || hc.Name == "" {
			continue
		}
		if err := j.store.Insert(FromHTTP(hc), u); err != nil {
			logger.Debugf("cookie %s rejected for %s: %s", hc.Name, u.Host, err)
		}
	}
}

// Cookies returns the cookies to send in a request for the given URL.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	matches := j.store.Matches(u)
	if len(matches) == 0 {
		return nil
	}
	cookies := make([]*http.Cookie, len(matches))
	for i, c := range matches {
		cookies[i] = c.HTTP()
	}
	return cookies
}

// SetCookieString handles the receipt of a ";"-separated cookie string
// in a reply for the given URL.
func (j *Jar) SetCookieString(u *url.URL, cookies string) {
	parsed, err := SplitParse(cookies)
	if err != nil {
		logger.Debugf("cookie string rejected for %s: %s", u.Host, err)
		return
	}
	for _, c := range parsed {
		if err = j.store.Insert(c, u); err != nil {
			logger.Debugf("cookie %s rejected for %s: %s", c.Name(), u.Host, err)
		}
	}
}

// CookieString returns the Cookie header value to send in a request
// for the given URL: the matching name=value pairs joined with "; ".
func (j *Jar) CookieString(u *url.URL) string {
	matches := j.store.Matches(u)
	if len(matches) == 0 {
		return ""
	}
	pairs := make([]string, len(matches))
	for i, c := range matches {
		pairs[i] = c.Stripped()
	}
	return strings.Join(pairs, "; ")
}

// RemoveCookie deletes every cookie currently matching the given URL.
func (j *Jar) RemoveCookie(u *url.URL) {
	for _, c := range j.store.Matches(u) {
		removal := c
		removal.value = ""
		removal.hasMaxAge = true
		removal.maxAge = 0
		removal.expiresAt = time.Unix(0, 0).UTC()
		// resolved scope of the match reproduces the stored key
		if err := j.store.Insert(removal, u); err != nil {
			logger.Debugf("cookie %s not removed for %s: %s", c.Name(), u.Host, err)
		}
	}
}

// FromHTTP converts an http.Cookie, carrying the net/http Max-Age
// convention over: 0 means unset, negative means delete now.
func FromHTTP(hc *http.Cookie) Cookie {
	c := Cookie{
		name:     hc.Name,
		value:    hc.Value,
		domain:   normalizeDomain(hc.Domain),
		path:     hc.Path,
		secure:   hc.Secure,
		httpOnly: hc.HttpOnly,
	}
	switch hc.SameSite {
	case http.SameSiteStrictMode:
		c.sameSite = SameSiteStrict
	case http.SameSiteLaxMode:
		c.sameSite = SameSiteLax
	case http.SameSiteNoneMode:
		c.sameSite = SameSiteNone
	}
	if hc.MaxAge > 0 {
		c.maxAge = time.Duration(hc.MaxAge) * time.Second
		c.hasMaxAge = true
	} else if hc.MaxAge < 0 {
		c.hasMaxAge = true
	}
	if !hc.Expires.IsZero() {
		c.expires = hc.Expires.UTC()
	}
	return c.resolveExpiry(time.Now())
}

// HTTP converts c to an http.Cookie.
func (c Cookie) HTTP() *http.Cookie {
	hc := &http.Cookie{
		Name:     c.name,
		Value:    c.value,
		Domain:   c.domain,
		Path:     c.path,
		Secure:   c.secure,
		HttpOnly: c.httpOnly,
		Expires:  c.expires,
	}
	switch c.sameSite {
	case SameSiteStrict:
		hc.SameSite = http.SameSiteStrictMode
	case SameSiteLax:
		hc.SameSite = http.SameSiteLaxMode
	case SameSiteNone:
		hc.SameSite = http.SameSiteNoneMode
	}
	if c.hasMaxAge {
		if secs := int(c.maxAge / time.Second); secs > 0 {
			hc.MaxAge = secs
		} else {
			hc.MaxAge = -1
		}
	}
	return hc
}
