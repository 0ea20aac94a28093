// Package llm provides an OpenRouter chat client shared by the lyric lookup,
// transcription and translation providers.
//
// # Entry Points
//
// NewClient / FromSettings: construct a client.
// Client.CompleteJSON: system/user prompts in, JSON payload out.
// Client.CompleteText: system/user prompts in, free text out.
// Client.CompleteJSONWithAudio: prompts plus an audio clip, JSON payload out.
// Client.HealthCheck: verify API key and model availability.
// DecodeLLMJSON: tolerant decoding of fenced or chatty JSON answers.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty answers and network
// timeouts with exponential backoff (base 1s, max 10s, up to 5 attempts by
// default). Retry-After is honoured. Context cancellation aborts retries
// immediately.
package llm
