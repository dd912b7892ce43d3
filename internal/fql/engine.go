package fql

import "github.com/segmentio/action-destinations-sub030/internal/types"

// Parser turns subscription text into a condition tree.
// Implementations must be safe for concurrent use and report failures as an
// *ErrorNode rather than an error, so callers decide how to treat them.
type Parser interface {
	Parse(text string) Node
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(text string) Node

// Parse calls f(text).
func (f ParserFunc) Parse(text string) Node {
	return f(text)
}

// DefaultParser parses on every call with no caching.
var DefaultParser Parser = ParserFunc(ParseTree)

// Engine matches events against subscription text.
// The parser is injectable so a cache (see fqlcache) can wrap it.
type Engine struct {
	parser Parser
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithParser replaces the engine's parser.
func WithParser(p Parser) EngineOption {
	return func(e *Engine) {
		if p != nil {
			e.parser = p
		}
	}
}

// NewEngine creates a new engine. Without options it uses DefaultParser.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{parser: DefaultParser}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Parse returns the condition tree for subscribe via the engine's parser.
// Callers must treat the result as read-only; it may be shared.
func (e *Engine) Parse(subscribe string) Node {
	return e.parser.Parse(subscribe)
}

// Match parses subscribe and validates event against it.
func (e *Engine) Match(subscribe string, event types.Event) (bool, error) {
	return Validate(e.parser.Parse(subscribe), event)
}
