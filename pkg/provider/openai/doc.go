// Package openai implements the Provider interface for the OpenAI Chat
// Completions API. It delegates all HTTP communication to the shared
// openaicompat.Client and adds model mapping and organization headers.
package openai
