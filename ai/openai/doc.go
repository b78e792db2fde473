// Package openai provides ai.Embedder and ai.Generator implementations
// backed by OpenAI-compatible HTTP APIs (OpenAI, Ollama, LocalAI, vLLM).
package openai
