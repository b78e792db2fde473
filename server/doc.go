// Package server exposes the document and chat operations over HTTP.
//
// The handlers are thin adapters: they decode requests, call into the
// pipeline, coordinator, and chat service, and map processing errors to
// status codes. All state lives in the underlying components.
package server
