// Package junitxml turns a JUnit XML document into a flat stream of parse
// events: element starts with their attributes, text nodes, element ends and
// the end of the document.
package junitxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"
)

// EventKind identifies what a parse event describes.
type EventKind int

const (
	StartElement EventKind = iota
	Text
	EndElement
	EndOfDocument
)

func (k EventKind) String() string {
	switch k {
	case StartElement:
		return "start"
	case Text:
		return "text"
	case EndElement:
		return "end"
	case EndOfDocument:
		return "eof"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is a single parse event. Name and Attrs are set for element events,
// Text for text events. Names are local names, namespace prefixes dropped.
type Event struct {
	Kind  EventKind
	Name  string
	Attrs map[string]string
	Text  string
}

// Attr returns the attribute value and whether it was present on the tag.
func (e Event) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// SyntaxError reports a document that could not be tokenized.
type SyntaxError struct {
	Line int
	Err  error
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return e.Err.Error()
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Tokenizer pulls events from an XML document one at a time.
type Tokenizer struct {
	decoder *xml.Decoder
	done    bool
}

// NewTokenizer creates a Tokenizer reading from r. Documents declaring a
// non UTF-8 encoding are transcoded.
func NewTokenizer(r io.Reader) *Tokenizer {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel
	return &Tokenizer{decoder: decoder}
}

// Next returns the next event. Whitespace-only text is skipped and text is
// trimmed, entity references and CDATA are decoded. After EndOfDocument has
// been returned every further call returns it again.
func (t *Tokenizer) Next() (Event, error) {
	if t.done {
		return Event{Kind: EndOfDocument}, nil
	}
	for {
		tok, err := t.decoder.Token()
		if err == io.EOF {
			t.done = true
			return Event{Kind: EndOfDocument}, nil
		}
		if err != nil {
			return Event{}, t.syntaxError(err)
		}

		switch tok := tok.(type) {
		case xml.StartElement:
			attrs := make(map[string]string, len(tok.Attr))
			for _, a := range tok.Attr {
				attrs[a.Name.Local] = a.Value
			}
			return Event{Kind: StartElement, Name: tok.Name.Local, Attrs: attrs}, nil
		case xml.EndElement:
			return Event{Kind: EndElement, Name: tok.Name.Local}, nil
		case xml.CharData:
			text := string(bytes.TrimSpace(tok))
			if text == "" {
				continue
			}
			return Event{Kind: Text, Text: text}, nil
		}
		// comments, processing instructions and directives
	}
}

func (t *Tokenizer) syntaxError(err error) error {
	var xmlErr *xml.SyntaxError
	if errors.As(err, &xmlErr) {
		return &SyntaxError{Line: xmlErr.Line, Err: errors.New(xmlErr.Msg)}
	}
	return &SyntaxError{Err: err}
}
