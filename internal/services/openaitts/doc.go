// Package openaitts implements the synthesis backend contract against the
// OpenAI speech API via the go-openai client.
package openaitts
