package middleware

import (
	"context"
	"net/http"
	"net/url"
)

type queryKey struct{}

// RedactQuery masks the given query parameters in the request URL before
// inner handlers (and request loggers) see it. The original values stay
// available to handlers through Query.
func RedactQuery(keys ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			original := r.URL.Query()

			masked := url.Values{}
			for k, vs := range original {
				masked[k] = vs
			}
			changed := false
			for _, k := range keys {
				if masked.Has(k) {
					masked.Set(k, "REDACTED")
					changed = true
				}
			}

			ctx := context.WithValue(r.Context(), queryKey{}, original)
			r = r.WithContext(ctx)
			if changed {
				u := *r.URL
				u.RawQuery = masked.Encode()
				r.URL = &u
				r.RequestURI = u.RequestURI()
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Query returns the unredacted query of the request, falling back to the
// request URL when RedactQuery did not run.
func Query(r *http.Request) url.Values {
	if q, ok := r.Context().Value(queryKey{}).(url.Values); ok {
		return q
	}
	return r.URL.Query()
}
