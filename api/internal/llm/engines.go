package llm

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Engines: реестр генераторов по имени (gpt/openai, gemini, http).
type Engines struct {
	byName map[string]Generator
	def    string
}

func NewEngines(def string) *Engines {
	return &Engines{byName: map[string]Generator{}, def: def}
}

// Register adds g under its Name and any aliases. Nil generators, including
// typed nils such as a (*Gemini)(nil), are skipped so that unconfigured
// providers simply do not appear.
func (e *Engines) Register(g Generator, aliases ...string) {
	if g == nil {
		return
	}
	if v := reflect.ValueOf(g); v.Kind() == reflect.Pointer && v.IsNil() {
		return
	}
	e.byName[g.Name()] = g
	for _, a := range aliases {
		e.byName[a] = g
	}
}

// Get returns the generator named name, or the default one for "".
func (e *Engines) Get(name string) (Generator, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = e.def
	}
	if g, ok := e.byName[name]; ok {
		return g, nil
	}
	return nil, fmt.Errorf("unknown llm_name %q; available: %s", name, strings.Join(e.Names(), ", "))
}

func (e *Engines) Names() []string {
	out := make([]string, 0, len(e.byName))
	for n := range e.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
