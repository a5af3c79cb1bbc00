package bos_sdk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// ErrUnknownNetwork is returned for networks without a SocialDB contract.
var ErrUnknownNetwork = errors.New("network does not have a SocialDB contract")

// Network is the RPC endpoint and SocialDB contract of one NEAR network.
type Network struct {
	Name     string `yaml:"-"`
	RPCURL   string `yaml:"rpc_url"`
	Contract string `yaml:"contract"`
}

// Networks maps network names to their parameters.
type Networks map[string]Network

// DefaultNetworks returns the public mainnet and testnet deployments.
func DefaultNetworks() Networks {
	return Networks{
		"mainnet": {Name: "mainnet", RPCURL: "https://rpc.mainnet.near.org", Contract: "social.near"},
		"testnet": {Name: "testnet", RPCURL: "https://rpc.testnet.near.org", Contract: "v1.social08.testnet"},
	}
}

type networksFile struct {
	Networks map[string]Network `yaml:"networks"`
}

// ParseNetworks reads a YAML network table of the form
//
//	networks:
//	  local:
//	    rpc_url: http://127.0.0.1:3030
//	    contract: social.test.near
//
// and overlays it on the defaults. Entries override defaults field by field.
func ParseNetworks(data []byte) (Networks, error) {
	var file networksFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("bos_sdk: parse networks: %w", err)
	}

	out := DefaultNetworks()
	for name, n := range file.Networks {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("bos_sdk: parse networks: empty network name")
		}
		merged := out[name]
		merged.Name = name
		if v := strings.TrimSpace(n.RPCURL); v != "" {
			merged.RPCURL = v
		}
		if v := strings.TrimSpace(n.Contract); v != "" {
			merged.Contract = v
		}
		out[name] = merged
	}
	return out, nil
}

// LoadNetworks reads the network table at path. An empty path yields the defaults.
func LoadNetworks(path string) (Networks, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultNetworks(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bos_sdk: read networks file %s: %w", path, err)
	}
	return ParseNetworks(data)
}

// Lookup returns the named network. Networks missing from the table or
// without a contract yield ErrUnknownNetwork.
func (n Networks) Lookup(name string) (Network, error) {
	network, ok := n[name]
	if !ok || strings.TrimSpace(network.Contract) == "" {
		return Network{}, fmt.Errorf("bos_sdk: %q: %w", name, ErrUnknownNetwork)
	}
	network.Name = name
	return network, nil
}

// Names returns the configured network names in order.
func (n Networks) Names() []string {
	names := maps.Keys(n)
	slices.Sort(names)
	return names
}
