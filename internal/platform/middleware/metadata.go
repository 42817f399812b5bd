package middleware

import (
	"net/http"

	"github.com/mssola/useragent"

	"condoflow/pkg/requestcontext"
)

// ClientMetadata condenses the User-Agent into a short "browser/os" summary
// and stores it in context. Audit events record it alongside the actor so
// compliance reviews can distinguish portal and mobile activity.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("User-Agent")
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		ua := useragent.New(raw)
		name, version := ua.Browser()
		summary := name
		if version != "" {
			summary += " " + version
		}
		if os := ua.OS(); os != "" {
			summary += "/" + os
		}
		ctx := requestcontext.WithDeviceInfo(r.Context(), summary)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
