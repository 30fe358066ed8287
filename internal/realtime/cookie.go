package realtime

import "strings"

// ParseCookieHeader splits a raw Cookie header into name/value pairs. Pairs are
// separated by ';' and split on the first '='. Names and values are trimmed but
// not decoded. Fragments without '=' are ignored and later duplicates win.
func ParseCookieHeader(header string) map[string]string {
	cookies := map[string]string{}
	if strings.TrimSpace(header) == "" {
		return cookies
	}
	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		cookies[name] = strings.TrimSpace(value)
	}
	return cookies
}
