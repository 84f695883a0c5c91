// Package cookie models HTTP cookies and provides a concurrency-safe
// store that scopes them by (domain, path, name) and matches them
// against request URLs.
package cookie

import (
	"hash/fnv"
	"strings"
	"time"
)

// SameSite controls when a cookie is sent with cross-site requests.
type SameSite int

const (
	SameSiteUnset SameSite = iota
	SameSiteStrict
	SameSiteLax
	SameSiteNone
)

// String returns the attribute value form of s, empty when unset.
func (s SameSite) String() string {
	switch s {
	case SameSiteStrict:
		return "Strict"
	case SameSiteLax:
		return "Lax"
	case SameSiteNone:
		return "None"
	}
	return ""
}

// Cookie is a single HTTP cookie with its attributes. The zero value is
// not useful; obtain one from New, Parse or a Builder. A Cookie is
// immutable once constructed and safe to share between goroutines.
type Cookie struct {
	name  string
	value string

	domain string // empty means host-only
	path   string // empty means default-path at insert time

	secure      bool
	httpOnly    bool
	partitioned bool
	sameSite    SameSite

	maxAge    time.Duration
	hasMaxAge bool
	expires   time.Time // Expires attribute as given, zero when absent

	// expiresAt is the resolved absolute expiry, computed when the
	// cookie is finalized. Zero for session cookies.
	expiresAt time.Time
}

// New returns a session cookie with the given name and value and no
// other attributes.
func New(name, value string) Cookie {
	return Cookie{name: name, value: value}
}

// Name returns the cookie name.
func (c Cookie) Name() string { return c.name }

// Value returns the raw cookie value, surrounding whitespace and quotes
// included.
func (c Cookie) Value() string { return c.value }

// ValueTrimmed returns the cookie value with surrounding whitespace and
// one matching pair of double quotes removed.
func (c Cookie) ValueTrimmed() string {
	v := strings.TrimSpace(c.value)
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		v = v[1 : len(v)-1]
	}
	return v
}

// Domain returns the Domain attribute, empty for a host-only cookie.
func (c Cookie) Domain() string { return c.domain }

// Path returns the Path attribute, empty when the default path of the
// setting request applies.
func (c Cookie) Path() string { return c.path }

// Secure reports whether the Secure attribute is set.
func (c Cookie) Secure() bool { return c.secure }

// HTTPOnly reports whether the HttpOnly attribute is set.
func (c Cookie) HTTPOnly() bool { return c.httpOnly }

// Partitioned reports whether the Partitioned attribute is set.
func (c Cookie) Partitioned() bool { return c.partitioned }

// SameSite returns the SameSite attribute.
func (c Cookie) SameSite() SameSite { return c.sameSite }

// MaxAge returns the Max-Age attribute and whether it was set.
func (c Cookie) MaxAge() (time.Duration, bool) { return c.maxAge, c.hasMaxAge }

// Expires returns the Expires attribute and whether it was set.
func (c Cookie) Expires() (time.Time, bool) { return c.expires, !c.expires.IsZero() }

// ExpiresAt returns the resolved absolute expiry instant and whether
// the cookie is persistent. Max-Age is resolved against the wall clock
// at the moment the cookie was finalized (parsed or built) and takes
// precedence over Expires.
func (c Cookie) ExpiresAt() (time.Time, bool) { return c.expiresAt, !c.expiresAt.IsZero() }

// Expired reports whether the cookie's resolved expiry is at or before
// now. Session cookies never expire.
func (c Cookie) Expired(now time.Time) bool {
	return !c.expiresAt.IsZero() && !c.expiresAt.After(now)
}

// Equal reports whether c and other carry the same normalized attribute
// set. The resolved expiry instant is derived state and excluded; the
// Max-Age and Expires attributes themselves are compared, Expires at
// second precision in UTC as serialized.
func (c Cookie) Equal(other Cookie) bool {
	if c.name != other.name || c.value != other.value ||
		c.domain != other.domain || c.path != other.path ||
		c.secure != other.secure || c.httpOnly != other.httpOnly ||
		c.partitioned != other.partitioned || c.sameSite != other.sameSite ||
		c.hasMaxAge != other.hasMaxAge || c.maxAge != other.maxAge {
		return false
	}
	return c.expires.UTC().Truncate(time.Second).Equal(other.expires.UTC().Truncate(time.Second))
}

// Hash returns a hash of the canonical serialization, consistent with
// Equal.
func (c Cookie) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(c.String()))
	return h.Sum64()
}

// resolveExpiry computes the absolute expiry from the Max-Age and
// Expires attributes. Called once when the cookie is finalized.
func (c Cookie) resolveExpiry(now time.Time) Cookie {
	switch {
	case c.hasMaxAge:
		c.expiresAt = now.Add(c.maxAge)
	case !c.expires.IsZero():
		c.expiresAt = c.expires
	default:
		c.expiresAt = time.Time{}
	}
	return c
}
