package http

import (
	"net/http"
	"strings"

	"github.com/utafrali/PostsGo/pkg/httputil"
	"github.com/utafrali/PostsGo/pkg/logger"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

// ContentTypeJSON enforces Content-Type: application/json on requests that
// carry a body and caps the body size. Bodyless POSTs such as logout pass.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength != 0 && r.Body != nil && r.Body != http.NoBody {
			ct := r.Header.Get("Content-Type")
			if !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:      "UNSUPPORTED_MEDIA_TYPE",
						Message:   "Content-Type must be application/json",
						RequestID: logger.CorrelationIDFromContext(r.Context()),
					},
				})
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}
