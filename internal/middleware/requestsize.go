package middleware

import (
	"net/http"
)

// DefaultBodyLimit caps request bodies at 64KB. Requests carry short free
// text and small JSON documents; anything bigger is not a legitimate client.
const DefaultBodyLimit int64 = 64 << 10

// BodyLimit rejects oversized request bodies before a handler reads them.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultBodyLimit
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// A declared Content-Length over the limit fails fast; bodies
			// without one are cut off by MaxBytesReader mid-read.
			if r.ContentLength > maxBytes {
				writeFailure(w, http.StatusRequestEntityTooLarge, "too_large", "Request body exceeds the size limit")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
