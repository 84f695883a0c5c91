package cookie

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cast"
)

var (
	// ErrMissingPair the string has no name=value pair.
	ErrMissingPair = errors.New("missing name=value pair")
	// ErrInvalidName the cookie name is empty or contains an invalid character.
	ErrInvalidName = errors.New("invalid cookie name")
	// ErrInvalidValue the cookie value contains an invalid character or
	// an unterminated quote.
	ErrInvalidValue = errors.New("invalid cookie value")
)

// ParseError describes a malformed cookie string.
type ParseError struct {
	Raw string
	err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse cookie %q: %s", e.Raw, e.err)
}

func (e *ParseError) Unwrap() error { return e.err }

// expiresFormats the date layouts accepted for the Expires attribute.
var expiresFormats = []string{
	time.RFC1123,
	time.RFC1123Z,
	"Mon, 02-Jan-2006 15:04:05 MST",
	"Monday, 02-Jan-06 15:04:05 MST",
	"Mon Jan 2 15:04:05 2006",
}

// Parse parses a single Set-Cookie style string into a Cookie. The
// name=value pair is strict; unknown attributes and attribute values
// that cannot be interpreted (a non-numeric Max-Age, an unparseable
// Expires date) are dropped. Max-Age is resolved to an absolute expiry
// against the current time.
func Parse(raw string) (Cookie, error) {
	return parse(raw, false)
}

// ParseEncoded is Parse with the name and value percent-decoded after
// the attribute split.
func ParseEncoded(raw string) (Cookie, error) {
	return parse(raw, true)
}

// SplitParse splits a Cookie header of ";"-separated name=value pairs
// into independent cookies. It aborts on the first malformed segment
// and surfaces its error; empty segments are skipped.
func SplitParse(raw string) ([]Cookie, error) {
	return splitParse(raw, false)
}

// SplitParseEncoded is SplitParse with each name and value
// percent-decoded.
func SplitParseEncoded(raw string) ([]Cookie, error) {
	return splitParse(raw, true)
}

func splitParse(raw string, decode bool) ([]Cookie, error) {
	parts := strings.Split(raw, ";")
	cookies := make([]Cookie, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		c, err := parse(part, decode)
		if err != nil {
			return nil, err
		}
		cookies = append(cookies, c)
	}
	return cookies, nil
}

func parse(raw string, decode bool) (Cookie, error) {
	parts := strings.Split(raw, ";")

	// the name is trimmed, the value keeps its raw whitespace
	name, value, found := strings.Cut(parts[0], "=")
	if !found {
		return Cookie{}, &ParseError{Raw: raw, err: ErrMissingPair}
	}
	name = strings.TrimSpace(name)
	if !validName(name) {
		return Cookie{}, &ParseError{Raw: raw, err: ErrInvalidName}
	}
	if err := checkValue(value); err != nil {
		return Cookie{}, &ParseError{Raw: raw, err: err}
	}
	if decode {
		var err error
		if name, err = url.PathUnescape(name); err != nil {
			return Cookie{}, &ParseError{Raw: raw, err: fmt.Errorf("%w: %s", ErrInvalidName, err)}
		}
		if value, err = url.PathUnescape(value); err != nil {
			return Cookie{}, &ParseError{Raw: raw, err: fmt.Errorf("%w: %s", ErrInvalidValue, err)}
		}
	}

	c := Cookie{name: name, value: value}
	for _, attr := range parts[1:] {
		k, v, _ := strings.Cut(attr, "=")
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		switch k {
		case "domain":
			if v != "" {
				c.domain = normalizeDomain(v)
			}
		case "path":
			if v != "" {
				c.path = v
			}
		case "secure":
			c.secure = true
		case "httponly":
			c.httpOnly = true
		case "partitioned":
			c.partitioned = true
		case "samesite":
			switch strings.ToLower(v) {
			case "strict":
				c.sameSite = SameSiteStrict
			case "lax":
				c.sameSite = SameSiteLax
			case "none":
				c.sameSite = SameSiteNone
			}
		case "max-age":
			if secs, err := cast.ToInt64E(v); err == nil {
				c.maxAge = time.Duration(secs) * time.Second
				c.hasMaxAge = true
			}
		case "expires":
			for _, format := range expiresFormats {
				if t, err := time.Parse(format, v); err == nil {
					c.expires = t.UTC()
					break
				}
			}
		}
	}

	return c.resolveExpiry(time.Now()), nil
}

// validName reports whether name is a non-empty RFC 2616 token.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		ch := name[i]
		if ch <= ' ' || ch >= 0x7f || strings.IndexByte("()<>@,;:\\\"/[]?={}", ch) >= 0 {
			return false
		}
	}
	return true
}

// checkValue rejects control characters and unterminated quotes. Space
// and comma are accepted, matching permissive client parsing.
func checkValue(value string) error {
	v := strings.TrimSpace(value)
	if strings.HasPrefix(v, `"`) && (len(v) < 2 || !strings.HasSuffix(v, `"`)) {
		return fmt.Errorf("%w: unterminated quote", ErrInvalidValue)
	}
	for i := 0; i < len(value); i++ {
		if ch := value[i]; ch < ' ' && ch != '\t' || ch == 0x7f {
			return ErrInvalidValue
		}
	}
	return nil
}

// normalizeDomain lower-cases a Domain attribute and drops the leading
// and trailing dots.
func normalizeDomain(domain string) string {
	domain = strings.TrimPrefix(strings.ToLower(domain), ".")
	return strings.TrimSuffix(domain, ".")
}
