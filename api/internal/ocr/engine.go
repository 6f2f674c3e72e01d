// Package ocr extracts raw text from exam page images.
package ocr

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

// Recognizer turns an image into raw text. langs are ISO 639-1 hints.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, image []byte, langs []string) (string, error)
}

// Engines holds the configured recognizers; the first registered one is the default.
type Engines struct {
	list []Recognizer
}

// Register appends r; nil recognizers, typed nils included, are skipped.
func (e *Engines) Register(r Recognizer) {
	if r == nil {
		return
	}
	if v := reflect.ValueOf(r); v.Kind() == reflect.Pointer && v.IsNil() {
		return
	}
	e.list = append(e.list, r)
}

// Get returns the recognizer named name, or the default for "".
func (e *Engines) Get(name string) (Recognizer, error) {
	if len(e.list) == 0 {
		return nil, fmt.Errorf("ocr: no engines configured")
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return e.list[0], nil
	}
	for _, r := range e.list {
		if r.Name() == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("ocr: unknown engine %q", name)
}
