package kind

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

type fileKind struct {
	ID           string   `yaml:"id"`
	Capabilities []string `yaml:"capabilities"`
}

type fileAlias struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

type registryFile struct {
	Kinds   []fileKind  `yaml:"kinds"`
	Aliases []fileAlias `yaml:"aliases"`
}

// Parse reads a YAML registry document.
func Parse(r io.Reader) (*Registry, error) {
	var doc registryFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode kind registry: %w", err)
	}

	kinds := make([]Kind, 0, len(doc.Kinds))
	for _, k := range doc.Kinds {
		caps := make([]Capability, 0, len(k.Capabilities))
		for _, c := range k.Capabilities {
			caps = append(caps, Capability(c))
		}
		kinds = append(kinds, Kind{ID: k.ID, Capabilities: caps})
	}
	aliases := make([]Alias, 0, len(doc.Aliases))
	for _, a := range doc.Aliases {
		aliases = append(aliases, Alias{Name: a.Name, Kind: a.Kind})
	}
	return NewRegistry(kinds, aliases)
}

// LoadFile reads the registry at path. A missing file yields an empty
// registry, under which every kind filter is rejected.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewRegistry(nil, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("read kind registry: %w", err)
	}
	return Parse(bytes.NewReader(data))
}
