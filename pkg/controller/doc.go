// Package controller contains HTTP middlewares and helper handlers used by the ops server.
//
// Provided middlewares:
//   - WithLogger: Attaches a request-scoped logger and request ID to the context and logs access info.
//
// Provided helpers:
//   - MountPprof: Registers net/http/pprof handlers under a path prefix.
//   - Health: Reports the result of dependency checks as JSON.
package controller
