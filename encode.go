package cookie

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// String returns the canonical Set-Cookie serialization of c with the
// raw name and value. Attribute order is fixed: Domain, Path, Secure,
// HttpOnly, SameSite, Partitioned, Max-Age, Expires.
func (c Cookie) String() string {
	var b strings.Builder
	b.WriteString(c.name)
	b.WriteByte('=')
	b.WriteString(c.value)
	c.writeAttrs(&b)
	return b.String()
}

// Encode returns the serialization of c with the name and value
// percent-encoded. Parsing the result with ParseEncoded restores c.
func (c Cookie) Encode() string {
	var b strings.Builder
	b.WriteString(escape(c.name))
	b.WriteByte('=')
	b.WriteString(escape(c.value))
	c.writeAttrs(&b)
	return b.String()
}

// Stripped returns only the name=value pair of c.
func (c Cookie) Stripped() string {
	return c.name + "=" + c.value
}

func (c Cookie) writeAttrs(b *strings.Builder) {
	if c.domain != "" {
		b.WriteString("; Domain=")
		b.WriteString(c.domain)
	}
	if c.path != "" {
		b.WriteString("; Path=")
		b.WriteString(c.path)
	}
	if c.secure {
		b.WriteString("; Secure")
	}
	if c.httpOnly {
		b.WriteString("; HttpOnly")
	}
	if c.sameSite != SameSiteUnset {
		b.WriteString("; SameSite=")
		b.WriteString(c.sameSite.String())
	}
	if c.partitioned {
		b.WriteString("; Partitioned")
	}
	if c.hasMaxAge {
		b.WriteString("; Max-Age=")
		b.WriteString(strconv.FormatInt(int64(c.maxAge/time.Second), 10))
	}
	if !c.expires.IsZero() {
		b.WriteString("; Expires=")
		b.WriteString(c.expires.UTC().Format(http.TimeFormat))
	}
}

const upperhex = "0123456789ABCDEF"

// escape percent-encodes every byte outside the unreserved set, so the
// result survives any cookie-octet restriction.
func escape(s string) string {
	var hexCount int
	for i := 0; i < len(s); i++ {
		if shouldEscape(s[i]) {
			hexCount++
		}
	}
	if hexCount == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*hexCount)
	for i := 0; i < len(s); i++ {
		if ch := s[i]; shouldEscape(ch) {
			b.WriteByte('%')
			b.WriteByte(upperhex[ch>>4])
			b.WriteByte(upperhex[ch&15])
		} else {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func shouldEscape(ch byte) bool {
	if 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || '0' <= ch && ch <= '9' {
		return false
	}
	switch ch {
	case '-', '.', '_', '~':
		return false
	}
	return true
}
