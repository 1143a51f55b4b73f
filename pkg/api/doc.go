// Package api provides the HTTP API for validating FlooNoC topology
// configurations and generating RTL from them.
//
// # Routes
//
//	GET  /api/health                     service liveness
//	GET  /api/schemas/current            JSON Schema used by the schema gate
//	POST /api/validate                   {"config": <yaml text | object>}
//	POST /api/generate                   {"config": ..., "job_id": optional}
//	GET  /api/jobs/{job_id}              recorded job
//	GET  /api/jobs/{job_id}/download     <job_id>_rtl.zip
//	GET  /metrics                        Prometheus metrics, when enabled
//
// Handlers are grouped by concern (SystemHandlers, ValidationHandlers,
// GenerationHandlers); each registers its routes on a gorilla/mux router.
//
//	server := api.NewServer(validator, service,
//		api.WithLogger(logger),
//		api.WithMetrics(metrics),
//	)
//	http.ListenAndServe(":5000", server)
package api
