// Package middleware holds the per-request middleware chain. Every registered
// middleware, plus the built-in catcher that logs `[METHOD] - PATH`, runs as
// its own goroutine; the chain returns only after all of them finished.
// Middlewares do not write to the connection. They stage headers on the
// request's response-header collection, which is flushed once by whoever
// sends the final response.
package middleware
