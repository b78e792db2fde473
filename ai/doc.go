// Package ai defines the external AI capabilities the system depends on:
// text extraction, embedding generation, and chat completion.
//
// The interfaces in this package decouple the ingestion pipeline,
// retrieval engine, and completion service from any concrete model or
// API. Production implementations live in subpackages (ai/openai for
// OpenAI-compatible services, ai/extract for local text extraction);
// ai/mock provides deterministic test doubles.
//
// All implementations must be safe for concurrent use.
package ai
