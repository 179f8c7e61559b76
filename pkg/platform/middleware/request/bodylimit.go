package request

import (
	"fmt"
	"net/http"

	dErrors "audittrail/pkg/domain-errors"
	"audittrail/pkg/platform/httputil"
)

// BodyLimit caps admin request bodies at maxBytes. A declared Content-Length
// over the cap is refused with 413 before the handler runs; an undeclared
// body is wrapped in http.MaxBytesReader so decoding fails at the cap and
// httputil.DecodeJSON reports the same 413.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > maxBytes {
				httputil.WriteError(w, dErrors.New(dErrors.CodePayloadTooLarge,
					fmt.Sprintf("request body exceeds %d bytes", maxBytes)))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
