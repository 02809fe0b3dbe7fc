// Package meterhttp exposes a meter.Engine over HTTP with a chi router.
//
// Routes:
//
//	GET  /healthz                            readiness of the storage backends
//	GET  /v1/capabilities                    schema-dependent features
//	GET  /v1/users/{userID}/usage?tier=      usage next to plan limits
//	POST /v1/users/{userID}/check            {"tier","overage_consent"} -> decision
//	POST /v1/users/{userID}/usage            {"tier","quantity","overage_consent"} -> receipt
//	GET  /v1/users/{userID}/charges?from=&to= overage charges by day range
//	GET  /v1/charges/pending?limit=          charges waiting to be invoiced
//	POST /v1/charges/{chargeID}/status       {"status"} billing provider callback
//
// Errors are JSON objects {"error": "..."}: 400 for bad input, 404 for an
// unknown charge, 409 for a backwards status change and 500 for an unknown
// tier. A usage write that could not be stored answers 202 with the receipt
// marked deferred.
package meterhttp
