// Package llm wraps the chat-completion provider used to translate natural
// language questions into SQL. Callers never trust its output directly.
package llm
