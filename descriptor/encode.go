package descriptor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a descriptor serialization format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat maps a format name or file extension to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format: %s, must be 'yaml' or 'json'", s)
	}
}

// Encode writes the descriptor to w. Accounts are written as declared, so
// secret references stay references.
func (d *Descriptor) Encode(w io.Writer, format Format) error {
	doc := document{
		Zksolc:         d.zksolc,
		DefaultNetwork: d.defaultNetwork,
		Networks:       make(map[string]*networkDocument, len(d.networks)),
		Paths:          d.paths,
		Solidity:       d.solidity,
	}
	for name, n := range d.networks {
		doc.Networks[name] = n.document()
	}

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(&doc); err != nil {
			return fmt.Errorf("error encoding descriptor: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(&doc); err != nil {
			return fmt.Errorf("error encoding descriptor: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// Marshal returns the encoded descriptor.
func (d *Descriptor) Marshal(format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Encode(&buf, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
