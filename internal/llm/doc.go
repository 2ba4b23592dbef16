// Package llm classifies call transcripts with a remote language model.
// It supports an OpenAI-compatible AI gateway, OpenAI and Anthropic, with
// retry, rate limiting, circuit breaking and response caching. Every remote
// failure resolves to a fixed fallback result rather than an error.
package llm
