// Package server hosts the raw-TCP engine: the accept loop, the bounded
// request queue, and the single worker that parses each request, runs the
// middleware chain, and dispatches to the router. Every connection serves
// exactly one request and is closed after the response.
// Routes and middlewares are registered before Start; the registration
// surface is not safe for use while serving.
package server
