package script

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/krauseinafrica/leadchat/pkg/domain"
)

// rawScript is the on-disk shape of a script file. Nodes stay untyped at the
// YAML layer; mapstructure turns each entry into a domain.Node so unknown
// keys surface as authoring errors instead of being dropped silently.
type rawScript struct {
	Start      string           `yaml:"start"`
	Completion string           `yaml:"completion"`
	Nodes      []map[string]any `yaml:"nodes"`
}

// FromYAML parses and compiles a script document.
func FromYAML(data []byte) (*Graph, error) {
	var raw rawScript
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("script: failed to parse yaml: %w", err)
	}

	nodes := make([]domain.Node, 0, len(raw.Nodes))
	for i, entry := range raw.Nodes {
		var node domain.Node
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:      &node,
			ErrorUnused: true,
		})
		if err != nil {
			return nil, fmt.Errorf("script: decoder setup: %w", err)
		}
		if err := dec.Decode(entry); err != nil {
			return nil, fmt.Errorf("script: node %d: %w", i, err)
		}
		nodes = append(nodes, node)
	}

	return Compile(nodes, raw.Start, raw.Completion)
}

// LoadFile reads and compiles a script from a YAML file.
func LoadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("script: failed to read %s: %w", path, err)
	}
	return FromYAML(data)
}
