// Package httputil provides HTTP handler utilities for consistent error handling,
// JSON encoding/decoding, request parsing and middleware.
//
// JSON helpers:
//
//	var req validateRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return
//	}
//	httputil.WriteSuccess(w, result)
//
// Middleware:
//
//	handler := httputil.Chain(
//		httputil.RecoveryMiddleware(logger),
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.CORSMiddleware([]string{"*"}),
//		httputil.MaxBytesMiddleware(10<<20),
//	)(router)
//
// MetricsMiddleware labels requests by gorilla/mux route template and is
// installed with router.Use so the matched route is available.
package httputil
