package middleware

import (
	"compress/gzip"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
)

var compressibleTypes = []string{
	"application/json",
	"text/html",
	"text/plain",
}

// GzipMiddleware распаковывает тела запросов с Content-Encoding: gzip и сжимает ответы для клиентов,
// приславших Accept-Encoding: gzip.
func GzipMiddleware(next http.Handler) http.Handler {
	compress := chimw.Compress(gzip.BestSpeed, compressibleTypes...)

	return compress(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.Header.Get("Content-Encoding"), "gzip") {
			zr, err := gzip.NewReader(r.Body)
			if err != nil {
				http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
				return
			}
			defer zr.Close()

			r.Body = zr
			r.Header.Del("Content-Encoding")
			r.ContentLength = -1
		}

		next.ServeHTTP(w, r)
	}))
}
