// Package devtools serves an HTTP inspector for a hookstore registry.
//
// Endpoints:
//   - GET  /stores                 list of stores with their shape and listener counts
//   - GET  /stores/{name}          one store, with its JSON-encoded state
//   - POST /stores/{name}/dispatch update a store with a JSON payload
//   - GET  /stores/{name}/ws       websocket stream of (state, payload) updates
//   - GET  /metrics                Prometheus metrics, when a handler is configured
//
// Dispatch goes through the store's untyped handle: the body is decoded into
// the store's payload type and handed to SetState or Dispatch, so the usual
// misuse rules apply.
package devtools
