package middleware

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"attesto/pkg/requestcontext"
)

// Device parses the User-Agent header into a short human-readable label and
// stores it on the context. Lifecycle decisions log the label so an audit
// reader can tell which device accepted or withdrew consent.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithDeviceLabel(r.Context(), ParseUserAgent(r.UserAgent()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ParseUserAgent turns a raw User-Agent string into "Browser on OS".
func ParseUserAgent(raw string) string {
	if raw == "" {
		return "Unknown Device"
	}
	ua := useragent.New(raw)
	name, _ := ua.Browser()
	os := ua.OSInfo().Name
	switch {
	case name != "" && os != "":
		return name + " on " + os
	case name != "":
		return name
	case os != "":
		return os
	default:
		return strings.TrimSpace(raw[:min(len(raw), 40)])
	}
}
