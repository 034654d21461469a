// Package llm implements the LLM Client Adapter (spec.md §4.3): a thin
// facade over an external chat-completion endpoint, plus a closed set of
// named adapters registered at build time in place of the original
// source's runtime plug-in loading (spec.md §9 REDESIGN FLAGS).
package llm

import "context"

// Client is the universal facade every optimizer component calls through.
// A conforming implementation builds a two-message conversation
// (system, user), invokes the configured endpoint at temperature 0, and
// returns the assistant's text — or the literal sentinel
// "Error processing response" if the reply shape is unexpected.
type Client interface {
	ChatCompletion(ctx context.Context, userPrompt string, systemPrompt string) (string, error)
}

// ErrorSentinelResponse is returned in place of an error when the
// endpoint's reply does not have the expected shape (e.g. zero choices),
// per spec.md §4.3. Adapters return this string with a nil error; callers
// that need to detect it compare against this constant rather than parsing
// prose.
const ErrorSentinelResponse = "Error processing response"
