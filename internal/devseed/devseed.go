// Package devseed loads fixtures for the in-memory SocialDB contract used in
// mock mode. Seeds are JSON or YAML, chosen by file extension.
package devseed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SocialDBSeed is the initial state of a mock contract.
type SocialDBSeed struct {
	// PricePerByte is a yoctoNEAR amount; empty keeps the mock default.
	PricePerByte string        `json:"price_per_byte"`
	Accounts     []AccountSeed `json:"accounts"`
}

// AccountSeed is one account's storage balance and stored document.
type AccountSeed struct {
	ID      string          `json:"id"`
	Balance string          `json:"balance"`
	Data    json.RawMessage `json:"data"`
}

type yamlSeed struct {
	PricePerByte string        `yaml:"price_per_byte"`
	Accounts     []yamlAccount `yaml:"accounts"`
}

type yamlAccount struct {
	ID      string    `yaml:"id"`
	Balance string    `yaml:"balance"`
	Data    yaml.Node `yaml:"data"`
}

// LoadSocialDBSeed reads a seed file.
func LoadSocialDBSeed(path string) (*SocialDBSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("devseed: read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON decodes a JSON seed.
func ParseJSON(data []byte) (*SocialDBSeed, error) {
	var seed SocialDBSeed
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("devseed: decode JSON seed: %w", err)
	}
	return &seed, seed.validate()
}

// ParseYAML decodes a YAML seed. Mapping order inside account data is kept.
func ParseYAML(data []byte) (*SocialDBSeed, error) {
	var raw yamlSeed
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("devseed: decode YAML seed: %w", err)
	}
	seed := &SocialDBSeed{PricePerByte: raw.PricePerByte}
	for _, acc := range raw.Accounts {
		entry := AccountSeed{ID: acc.ID, Balance: acc.Balance}
		if acc.Data.Kind != 0 {
			buf := &bytes.Buffer{}
			if err := writeJSON(buf, &acc.Data); err != nil {
				return nil, fmt.Errorf("devseed: account %s data: %w", acc.ID, err)
			}
			entry.Data = buf.Bytes()
		}
		seed.Accounts = append(seed.Accounts, entry)
	}
	return seed, seed.validate()
}

func (s *SocialDBSeed) validate() error {
	seen := make(map[string]bool, len(s.Accounts))
	for i, acc := range s.Accounts {
		if strings.TrimSpace(acc.ID) == "" {
			return fmt.Errorf("devseed: account %d is missing an id", i)
		}
		if seen[acc.ID] {
			return fmt.Errorf("devseed: account %s listed twice", acc.ID)
		}
		seen[acc.ID] = true
	}
	return nil
}

func writeJSON(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeJSON(buf, n.Content[0])
	case yaml.AliasNode:
		return writeJSON(buf, n.Alias)
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, n.Content[i].Value); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeJSON(buf, n.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case yaml.ScalarNode:
		return writeScalar(buf, n)
	default:
		return fmt.Errorf("unsupported YAML node kind %d at line %d", n.Kind, n.Line)
	}
}

func writeScalar(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.ShortTag() {
	case "!!null":
		buf.WriteString("null")
	case "!!bool", "!!int", "!!float":
		var v any
		if err := n.Decode(&v); err != nil {
			return err
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("scalar %q at line %d: %w", n.Value, n.Line, err)
		}
		buf.Write(encoded)
	default:
		return writeString(buf, n.Value)
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}
