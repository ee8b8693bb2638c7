// Package openaicompat provides a client for any OpenAI-compatible Chat
// Completions backend. It handles request serialization, response parsing
// and error mapping.
//
// Provider adapters embed the Client from this package and delegate their
// Complete and ListModels calls to it.
package openaicompat
