// Package model defines the line and entry values passed between the
// tailing, parsing, and broadcasting stages.
package model

// RawLine is one line of input before classification.
type RawLine struct {
	Text   string
	Source string // originating file path, or "stdin"
}

// Entry is a classified line in wire form, broadcast to dashboard
// subscribers. String-valued so it serializes directly.
type Entry struct {
	Source    string            `json:"source,omitempty"`
	Timestamp string            `json:"timestamp,omitempty"`
	Level     string            `json:"level,omitempty"`
	Message   string            `json:"message,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Raw       string            `json:"raw"`
}
