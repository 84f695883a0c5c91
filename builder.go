package cookie

import (
	"errors"
	"time"
)

// ErrBuilderConsumed Build was called on an already consumed Builder.
var ErrBuilderConsumed = errors.New("cookie was already built")

// permanentHorizon the expiry horizon Permanent sets, 20 years.
const permanentHorizon = 20 * 365 * 24 * time.Hour

// Builder assembles a Cookie through chained setters. A Builder is
// single use: Build consumes it, and any later setter or Build call is
// a programming error. Builders are not safe for concurrent use.
type Builder struct {
	c    Cookie
	done bool
}

// NewBuilder returns a Builder for a cookie with the given name and
// value. Inputs are trusted; validation happens at parse time.
func NewBuilder(name, value string) *Builder {
	return &Builder{c: Cookie{name: name, value: value}}
}

// From returns a Builder seeded from an existing cookie.
func From(c Cookie) *Builder {
	c.expiresAt = time.Time{}
	return &Builder{c: c}
}

// FromString returns a Builder seeded from a raw Set-Cookie style
// string, parsed with Parse.
func FromString(raw string) (*Builder, error) {
	c, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return From(c), nil
}

// Domain sets the Domain attribute, overwriting any prior value.
func (b *Builder) Domain(domain string) *Builder {
	b.guard()
	b.c.domain = normalizeDomain(domain)
	return b
}

// Path sets the Path attribute, overwriting any prior value.
func (b *Builder) Path(path string) *Builder {
	b.guard()
	b.c.path = path
	return b
}

// Secure sets the Secure attribute.
func (b *Builder) Secure(secure bool) *Builder {
	b.guard()
	b.c.secure = secure
	return b
}

// HTTPOnly sets the HttpOnly attribute.
func (b *Builder) HTTPOnly(httpOnly bool) *Builder {
	b.guard()
	b.c.httpOnly = httpOnly
	return b
}

// SameSite sets the SameSite attribute.
func (b *Builder) SameSite(sameSite SameSite) *Builder {
	b.guard()
	b.c.sameSite = sameSite
	return b
}

// Partitioned sets the Partitioned attribute.
func (b *Builder) Partitioned(partitioned bool) *Builder {
	b.guard()
	b.c.partitioned = partitioned
	return b
}

// MaxAge sets the Max-Age attribute. It is resolved to an absolute
// expiry when Build executes, not at insert time.
func (b *Builder) MaxAge(maxAge time.Duration) *Builder {
	b.guard()
	b.c.maxAge = maxAge
	b.c.hasMaxAge = true
	return b
}

// Expires sets the Expires attribute. Max-Age, when also set, takes
// precedence.
func (b *Builder) Expires(expires time.Time) *Builder {
	b.guard()
	b.c.expires = expires.UTC()
	return b
}

// Permanent sets the expiry 20 years from now.
func (b *Builder) Permanent() *Builder {
	b.guard()
	b.c.maxAge = permanentHorizon
	b.c.hasMaxAge = true
	b.c.expires = time.Now().Add(permanentHorizon).UTC()
	return b
}

// Removal clears the value and sets the expiry in the past, so that
// inserting the built cookie deletes the entry at its key.
func (b *Builder) Removal() *Builder {
	b.guard()
	b.c.value = ""
	b.c.maxAge = 0
	b.c.hasMaxAge = true
	b.c.expires = time.Unix(0, 0).UTC()
	return b
}

// Build finalizes the cookie, resolving Max-Age against the current
// time, and consumes the Builder. A second call returns
// ErrBuilderConsumed.
func (b *Builder) Build() (Cookie, error) {
	if b.done {
		return Cookie{}, ErrBuilderConsumed
	}
	b.done = true
	return b.c.resolveExpiry(time.Now()), nil
}

func (b *Builder) guard() {
	if b.done {
		panic("cookie: setter called on a consumed Builder")
	}
}
