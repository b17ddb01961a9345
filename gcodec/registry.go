package gcodec

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownFormat is returned by ForFormat for unregistered names.
var ErrUnknownFormat = errors.New("gcodec: unknown format")

// Registry maps output format names to codecs.
type Registry struct {
	codecs sync.Map // map[string]Codec
}

// NewRegistry creates a Registry with the json and yaml codecs registered.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register("json", NewJSONCodec())
	r.Register("yaml", NewYAMLCodec())
	r.Register("yml", NewYAMLCodec())
	return r
}

// Register registers a codec for a format name. Names are case-insensitive.
func (r *Registry) Register(name string, codec Codec) {
	r.codecs.Store(normalizeFormat(name), codec)
}

// Lookup returns the codec registered for name.
func (r *Registry) Lookup(name string) (Codec, bool) {
	if codec, ok := r.codecs.Load(normalizeFormat(name)); ok {
		return codec.(Codec), true
	}
	return nil, false
}

// Formats lists the registered names in sorted order.
func (r *Registry) Formats() []string {
	var names []string
	r.codecs.Range(func(key, _ interface{}) bool {
		names = append(names, key.(string))
		return true
	})
	sort.Strings(names)
	return names
}

var defaultRegistry = NewRegistry()

// ForFormat returns the default codec for name, e.g. "json" or "yaml".
func ForFormat(name string) (Codec, error) {
	if codec, ok := defaultRegistry.Lookup(name); ok {
		return codec, nil
	}
	return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownFormat, name, strings.Join(defaultRegistry.Formats(), ", "))
}

func normalizeFormat(name string) string {
	return strings.TrimSpace(strings.ToLower(name))
}
