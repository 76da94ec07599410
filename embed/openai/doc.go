// Package openai implements the embed contract against OpenAI-compatible
// embedding APIs (OpenAI, Ollama, LocalAI, vLLM).
package openai
