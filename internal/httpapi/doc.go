// Package httpapi exposes the orderly core over HTTP/JSON.
//
// Routes:
//
//	GET  /api/items   page of the filtered order (offset, limit, search, clientId)
//	POST /api/select  add or remove ids from a client's selection
//	POST /api/order   submit the new order of a client's current view
//	GET  /api/state   a client's full selection
//	GET  /healthz     liveness and lifecycle state
//	GET  /metrics     Prometheus exposition
//
// Every other path answers 404 with {"success":false,"message":"Resource not found."}.
//
// Bad input degrades instead of failing: a missing clientId is its own
// client bucket, unparsable offset or limit fall back to their defaults,
// and an undecodable body is acknowledged without effect.
package httpapi
