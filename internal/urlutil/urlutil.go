package urlutil

import (
	"fmt"
	"net/url"
	"strings"
)

// HostKey lowercases a host and strips a leading "www." so that
// hh.ru and www.hh.ru share one rate limiter.
func HostKey(host string) string {
	host = strings.ToLower(host)
	host = strings.TrimPrefix(host, "www.")
	return host
}

// Endpoint joins path segments onto an API base URL and attaches the query.
// Each segment is escaped; the base path is kept.
func Endpoint(base string, query url.Values, segments ...string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("base url %q must be absolute", base)
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	escaped := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = strings.Trim(seg, "/")
		if seg == "" {
			continue
		}
		escaped = append(escaped, url.PathEscape(seg))
	}
	u = u.JoinPath(escaped...)
	u.RawQuery = query.Encode()
	return u.String(), nil
}
