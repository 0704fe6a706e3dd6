// Package videoid derives stable video identifiers from source URLs.
package videoid

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"

	"github.com/forPelevin/shortsmith/internal/apperr"
)

var youtubeID = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

var youtubeHosts = map[string]struct{}{
	"youtube.com":              {},
	"www.youtube.com":          {},
	"m.youtube.com":            {},
	"music.youtube.com":        {},
	"youtube-nocookie.com":     {},
	"www.youtube-nocookie.com": {},
}

// FromURL returns the YouTube video id when the URL carries one, and
// "url-" plus a short content hash for any other absolute URL.
func FromURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperr.InvalidInput("video id", "url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", apperr.InvalidInput("video id", "invalid url %q", raw)
	}
	if id, ok := youtube(u); ok {
		return id, nil
	}
	return "url-" + hash(raw), nil
}

// Valid reports whether id is safe to use as a file name.
func Valid(id string) bool {
	if id == "" || len(id) > 128 || id == "indice" {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

func youtube(u *url.URL) (string, bool) {
	host := strings.ToLower(u.Hostname())
	if host == "youtu.be" {
		return check(firstPathPart(u.Path))
	}
	if _, ok := youtubeHosts[host]; !ok {
		return "", false
	}
	if strings.TrimRight(u.Path, "/") == "/watch" {
		return check(u.Query().Get("v"))
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) >= 2 {
		switch parts[0] {
		case "shorts", "embed", "live", "v":
			return check(parts[1])
		}
	}
	return "", false
}

func firstPathPart(p string) string {
	p = strings.Trim(p, "/")
	if i := strings.Index(p, "/"); i >= 0 {
		p = p[:i]
	}
	return p
}

func check(id string) (string, bool) {
	if youtubeID.MatchString(id) {
		return id, true
	}
	return "", false
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}
