package proxy

import (
	"net/url"
	"strings"
)

// RewriteURLPath replaces a leading prefix of u's path with replacement and
// returns the result in escaped form. An empty replacement keeps the prefix;
// paths that do not start with prefix are returned unchanged.
//
// The prefix is matched against the decoded path, the form route matching
// uses, so an encoded prefix such as /%61pi is rewritten too. The escaping of
// the remainder is kept as sent.
func RewriteURLPath(u *url.URL, prefix, replacement string) string {
	escaped := u.EscapedPath()
	if replacement == "" || !strings.HasPrefix(u.Path, prefix) {
		return escaped
	}
	rest := escaped[escapedOffset(escaped, len(prefix)):]
	return (&url.URL{Path: replacement}).EscapedPath() + rest
}

// escapedOffset returns the index in escaped after n decoded bytes.
func escapedOffset(escaped string, n int) int {
	i := 0
	for ; n > 0 && i < len(escaped); n-- {
		if escaped[i] == '%' && i+2 < len(escaped) {
			i += 3
			continue
		}
		i++
	}
	return i
}

// TargetURL joins origin and an already escaped path, and attaches rawQuery
// verbatim.
func TargetURL(origin, path, rawQuery string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSuffix(origin, "/") + path)
	if err != nil {
		return nil, err
	}
	u.RawQuery = rawQuery
	return u, nil
}
