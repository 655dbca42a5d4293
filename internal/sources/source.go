// file: internal/sources/source.go
// version: 1.1.0
// guid: 6b3e9d5a-2f8c-4a7e-b1d4-7c5f9e2a8b6d

package sources

import (
	"context"
	"fmt"
	"sort"

	"github.com/pedramholi/iran-memorial/internal/fetch"
	"github.com/pedramholi/iran-memorial/internal/models"
)

// Source is one external memorial database. Fetch streams every record
// through emit; returning an error from emit stops the stream.
type Source interface {
	// Name is the short unique identifier: "iranmonitor", "boroumand".
	Name() string
	// FullName is the human-readable source name used in attributions.
	FullName() string
	// BaseURL is the public URL recorded on attributions.
	BaseURL() string
	Fetch(ctx context.Context, emit func(*models.ExternalVictim) error) error
}

// Factory builds a source from the shared HTTP client and its config
// section (adapter-specific keys, may be nil).
type Factory func(client *fetch.Client, cfg map[string]string) (Source, error)

// factories is the fixed adapter set, composed here at startup. No
// global mutable registry: adapters are plain constructors and the
// table is rebuilt per call.
func factories() map[string]Factory {
	return map[string]Factory{
		"yamlfile":    NewYAMLFileSource,
		"iranmonitor": NewIranMonitorSource,
		"htmltable":   NewHTMLTableSource,
	}
}

// New builds a known source by name.
func New(name string, client *fetch.Client, cfg map[string]string) (Source, error) {
	factory, ok := factories()[name]
	if !ok {
		return nil, fmt.Errorf("unknown source %q (known: %v)", name, List())
	}
	return factory(client, cfg)
}

// List returns all known source names, sorted.
func List() []string {
	table := factories()
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
