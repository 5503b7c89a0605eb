package httpapi

import "net/http"

// maxRequestBody caps the size of any request body this API reads, so a
// client can't hold a handler open streaming an unbounded POST payload.
const maxRequestBody = 1 << 20 // 1MiB

// securityHeaders sets a conservative set of response headers on every
// route. Adapted from shield.SecurityHeaders, trimmed to what applies to a
// JSON/SSE API with no served HTML: no CSP script-src policy, since this
// service never renders a page.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// maxBody limits every request body to maxRequestBody, adapted from
// shield.MaxFormBody but applied unconditionally since every write route
// here takes a JSON body rather than a form post.
func maxBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		next.ServeHTTP(w, r)
	})
}
