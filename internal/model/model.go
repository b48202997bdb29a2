// Package model defines the data passed between jimbo's adapters.
package model

import (
	"time"

	"github.com/phobologic/jimbo/internal/snippet"
)

// SymbolKind indicates the syntactic kind of a symbol defined in a snippet.
type SymbolKind string

const (
	Class     SymbolKind = "class"
	Function  SymbolKind = "function"
	Method    SymbolKind = "method"
	Interface SymbolKind = "interface"
	Type      SymbolKind = "type"
	Module    SymbolKind = "module"
)

// Symbol is a definition found in a snippet. Line is 1-based and relative to
// the snippet, not the enclosing file.
type Symbol struct {
	Name string     `json:"name"`
	Kind SymbolKind `json:"kind"`
	Line int        `json:"line"`
}

// Outline is the tree-sitter view of a snippet.
type Outline struct {
	Language     string   `json:"language"`
	Symbols      []Symbol `json:"symbols"`
	SyntaxErrors bool     `json:"syntaxErrors"`
}

// Report is a classified snippet, optionally with its outline.
type Report struct {
	File    string         `json:"file,omitempty"`
	Result  snippet.Result `json:"result"`
	Outline *Outline       `json:"outline,omitempty"`
}

// Insertion is a significant insertion observed by an event source.
type Insertion struct {
	Report
	Snippet string    `json:"snippet"`
	At      time.Time `json:"at"`
}

// ReactionKind distinguishes what triggered a reaction.
type ReactionKind string

const (
	Accepted ReactionKind = "copilot-accepted"
	Click    ReactionKind = "click"
)

// Mood is the quote list a reaction was drawn from.
type Mood string

const (
	Positive  Mood = "positive"
	Sarcastic Mood = "sarcastic"
	Wisdom    Mood = "wisdom"
)

// Reaction is what the mascot says.
type Reaction struct {
	ID    string       `json:"id"`
	Kind  ReactionKind `json:"kind"`
	Mood  Mood         `json:"mood"`
	Quote string       `json:"quote"`
	Gist  string       `json:"gist,omitempty"`
	Lines int          `json:"lines"`
	Text  string       `json:"text"`
	At    time.Time    `json:"at"`
}
