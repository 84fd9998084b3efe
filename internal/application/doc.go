// Package application provides application initialization and dependency wiring.
// It builds the render pipeline (load sources, merge, overlay) used by both
// the one-shot apply command and the HTTP server, and encapsulates creation of
// storage, handlers, routers and server instances so the main package stays
// focused on CLI parsing and orchestration.
package application
