package notify

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

const masked = "***"

// MaskURL hides credentials in a URL before it is logged: the userinfo
// password, every query value and path segments that look like tokens.
func MaskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "<invalid url>"
	}

	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), masked)
		}
	}

	if u.RawQuery != "" {
		q := u.Query()
		for k := range q {
			q[k] = []string{masked}
		}
		u.RawQuery = q.Encode()
	}

	segments := strings.Split(u.Path, "/")
	for i, s := range segments {
		if looksSecret(s) {
			segments[i] = s[:4] + masked
		}
	}
	u.Path = strings.Join(segments, "/")
	u.RawPath = ""

	// url.URL escapes the mask; keep it readable.
	return strings.NewReplacer("%2A", "*", "%2a", "*").Replace(u.String())
}

// looksSecret matches long mixed segments such as Slack hook keys or
// Telegram bot tokens.
func looksSecret(s string) bool {
	if len(s) < 16 {
		return false
	}

	var digits, letters int
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			letters++
		}
	}

	return digits > 0 && letters > 0
}

// Truncate shortens s to at most n bytes without splitting a rune.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}

	return s[:n] + "..."
}
