package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DeprecatedRoute marks an endpoint as deprecated with sunset date.
type DeprecatedRoute struct {
	Path        string    // Route pattern; ":name" segments match any value
	SunsetDate  time.Time // Date when endpoint will be removed
	Alternative string    // Recommended alternative endpoint (optional)
}

// LegacySunset is when the unversioned routes are removed.
var LegacySunset = time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC)

// LegacyRoutes lists the unversioned paths kept for existing clients.
var LegacyRoutes = []DeprecatedRoute{
	{Path: "/health", SunsetDate: LegacySunset, Alternative: "/v1/health"},
	{Path: "/api/digipin/encode", SunsetDate: LegacySunset, Alternative: "/v1/digipin/encode"},
	{Path: "/api/digipin/decode", SunsetDate: LegacySunset, Alternative: "/v1/digipin/decode"},
	{Path: "/api/digipin/distance", SunsetDate: LegacySunset, Alternative: "/v1/digipin/distance"},
	{Path: "/api/digipin/nearest", SunsetDate: LegacySunset, Alternative: "/v1/digipin/nearest"},
	{Path: "/api/agent/respond", SunsetDate: LegacySunset, Alternative: "/v1/agent/respond"},
}

// DeprecationMiddleware adds Deprecation, Sunset, Link and Warning headers to
// deprecated endpoints.
func DeprecationMiddleware(deprecated []DeprecatedRoute) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		for _, d := range deprecated {
			if !matchPattern(path, d.Path) {
				continue
			}

			// RFC 8594 Deprecation and Sunset headers
			c.Set("Deprecation", "true")
			c.Set("Sunset", d.SunsetDate.UTC().Format(time.RFC1123))

			// RFC 8288 Link header
			if d.Alternative != "" {
				c.Set("Link", fmt.Sprintf(`<%s>; rel="successor-version"`, d.Alternative))
			}

			days := time.Until(d.SunsetDate).Hours() / 24
			if days < 0 {
				days = 0
			}
			c.Set("Warning", fmt.Sprintf(`299 - "Deprecated API, will sunset in %.0f days"`, days))
			break
		}

		return c.Next()
	}
}

// matchPattern reports whether path matches pattern segment by segment.
// A ":name" pattern segment matches any single non-empty path segment, so
// "/v1/digipin/:pin" matches "/v1/digipin/39J-49L-L8T4". A trailing slash on
// path is ignored.
func matchPattern(path, pattern string) bool {
	if path == pattern {
		return true
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}

	ps := strings.Split(path, "/")
	qs := strings.Split(pattern, "/")
	if len(ps) != len(qs) {
		return false
	}
	for i, q := range qs {
		if strings.HasPrefix(q, ":") {
			if ps[i] == "" {
				return false
			}
			continue
		}
		if ps[i] != q {
			return false
		}
	}
	return true
}
