// Package http contains HTTP middleware shared by the API handlers.
package http

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// DumpHandler writes the method, path and body of each request to
// output before calling next. next sees the original body.
func DumpHandler(next http.Handler, output io.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		fmt.Fprintf(output, "%s %s %s\n", r.Method, r.URL.Path, body)
		next.ServeHTTP(w, r)
	}
}
