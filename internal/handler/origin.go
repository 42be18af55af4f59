package handler

import (
	"net/url"
	"strings"
)

// isAllowedOrigin reports whether a browser at origin may open the viewer.
// An empty allow-list admits everyone; loopback origins are always admitted.
// Entries may be written with or without a scheme.
func isAllowedOrigin(origin string, allowed []string) bool {
	if origin == "" {
		return false
	}

	if len(allowed) == 0 {
		return true
	}

	normalized := strings.TrimPrefix(strings.TrimPrefix(origin, "http://"), "https://")
	normalized = strings.TrimSuffix(normalized, "/")

	if isLoopbackOrigin(origin) {
		return true
	}

	for _, entry := range allowed {
		candidate := strings.TrimSpace(entry)
		if candidate == "" {
			continue
		}
		if candidate == origin || candidate == normalized {
			return true
		}
		if strings.TrimPrefix(candidate, "http://") == normalized || strings.TrimPrefix(candidate, "https://") == normalized {
			return true
		}
	}

	return false
}

// isLoopbackOrigin matches the host exactly, so localhost.example.com is not
// loopback.
func isLoopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1":
		return true
	}
	return false
}
