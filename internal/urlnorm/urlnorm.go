// Package urlnorm implements the URL normalization and id-hashing rules
// from spec.md §4.3: two URLs differing only in scheme, a leading "www.",
// or a trailing "/" are the same document for dedup purposes.
package urlnorm

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// Normalize lowercases the host, strips a leading "www.", strips a trailing
// "/" (unless the path is root), keeps the query string, and ignores
// scheme differences (by dropping the scheme entirely from the key).
func Normalize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(rawURL))
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")

	path := u.Path
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}

	key := host + path
	if u.RawQuery != "" {
		key += "?" + u.RawQuery
	}
	return key
}

// Host returns the lowercased, "www."-stripped host of rawURL, or "" if it
// cannot be parsed.
func Host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// ID returns a stable, short hex id derived from the normalized URL. Two
// URLs that normalize to the same key always produce the same id
// (spec.md §3: "SearchHit.id collision ⇔ URL collision under the
// normalization rules of §4.3").
func ID(rawURL string) string {
	sum := sha256.Sum256([]byte(Normalize(rawURL)))
	return hex.EncodeToString(sum[:])[:16]
}
