// Package server provides HTTP routing and middleware for the endpoints served next to the bot.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation registers [http.ServeMux] method patterns, so unknown methods get 405.
//
// # Endpoints
//
//   - GET / : plain-text liveness for hosting platforms that probe $PORT
//   - GET /healthz : JSON status with uptime and stored session count
//   - GET /metrics : Prometheus exposition of the bot's private registry
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
