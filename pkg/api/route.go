package api

import "net/http"

// RoutePattern resolves the mux pattern serving each request before the
// wrapped chain runs, so middlewares that copy the request with WithContext
// still see r.Pattern when labelling logs, spans and metrics.
//
//	handler := api.RoutePattern(mux)(logging.HTTPMiddleware(logger)(mux))
func RoutePattern(mux *http.ServeMux) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Pattern == "" {
				if _, pattern := mux.Handler(r); pattern != "" {
					r2 := new(http.Request)
					*r2 = *r
					r2.Pattern = pattern
					r = r2
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
