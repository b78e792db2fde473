// Package mock provides test doubles for the ai package interfaces.
//
// Each mock allows behavior injection via function fields and falls back
// to deterministic defaults, so tests can run without any external AI
// service.
package mock
