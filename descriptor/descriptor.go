package descriptor

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sort"

	"github.com/blang/semver/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

// AcquisitionMode selects how the external runner obtains a compiler.
type AcquisitionMode string

const (
	SourceBinary AcquisitionMode = "binary"
	SourceSource AcquisitionMode = "source"
)

// Descriptor is the validated toolchain configuration.
type Descriptor struct {
	zksolc         CompilerProfile
	defaultNetwork string
	networks       map[string]*NetworkProfile
	paths          PathSet
	solidity       CompilerProfile
}

// NetworkProfile describes one deployment target. It is read-only; every
// accessor returns a copy.
type NetworkProfile struct {
	name     string
	url      string
	accounts []string
	gasPrice *uint64
	chainID  *uint64
	signers  []signer
	resolver SecretResolver
}

// signer is one account entry. secret is empty for literal keys; key is
// nil while the referenced secret is unset.
type signer struct {
	secret  string
	key     []byte
	address common.Address
}

// CompilerProfile holds the settings of one compiler stage.
type CompilerProfile struct {
	Version        string           `yaml:"version" json:"version"`
	CompilerSource AcquisitionMode  `yaml:"compilerSource,omitempty" json:"compilerSource,omitempty"`
	Settings       CompilerSettings `yaml:"settings" json:"settings"`
}

// CompilerSettings mirrors the nested settings block of a compiler section.
type CompilerSettings struct {
	Optimizer Optimizer `yaml:"optimizer" json:"optimizer"`
}

// Optimizer holds optimizer tuning. Runs is carried even when Enabled is
// false but has no effect there.
type Optimizer struct {
	Enabled bool  `yaml:"enabled" json:"enabled"`
	Runs    *uint `yaml:"runs,omitempty" json:"runs,omitempty"`
}

// PathSet holds project directories, possibly relative to the project root.
type PathSet struct {
	Artifacts string `yaml:"artifacts" json:"artifacts"`
	Cache     string `yaml:"cache" json:"cache"`
	Sources   string `yaml:"sources" json:"sources"`
	Tests     string `yaml:"tests" json:"tests"`
}

// DefaultNetworkName returns the default network selector.
func (d *Descriptor) DefaultNetworkName() string {
	return d.defaultNetwork
}

// Network returns the profile declared under name.
func (d *Descriptor) Network(name string) (*NetworkProfile, error) {
	profile, ok := d.networks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}
	return profile, nil
}

// DefaultNetwork returns the profile referenced by the default selector.
func (d *Descriptor) DefaultNetwork() (*NetworkProfile, error) {
	profile, ok := d.networks[d.defaultNetwork]
	if !ok {
		return nil, malformed("defaultNetwork %q does not match any declared network", d.defaultNetwork)
	}
	return profile, nil
}

// NetworkNames returns the declared network names in sorted order.
func (d *Descriptor) NetworkNames() []string {
	names := make([]string, 0, len(d.networks))
	for name := range d.networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Zksolc returns a copy of the zksolc compiler stage.
func (d *Descriptor) Zksolc() CompilerProfile {
	return d.zksolc.clone()
}

// Solidity returns a copy of the solc compiler stage.
func (d *Descriptor) Solidity() CompilerProfile {
	return d.solidity.clone()
}

// Paths returns the project path overrides.
func (d *Descriptor) Paths() PathSet {
	return d.paths
}

// Name returns the key the profile is declared under.
func (n *NetworkProfile) Name() string {
	return n.name
}

// URL returns the RPC endpoint.
func (n *NetworkProfile) URL() string {
	return n.url
}

// Accounts returns the account entries as declared: literal keys or
// "env:NAME" references.
func (n *NetworkProfile) Accounts() []string {
	if n.accounts == nil {
		return nil
	}
	out := make([]string, len(n.accounts))
	copy(out, n.accounts)
	return out
}

// GasPrice returns the gas price override in wei.
func (n *NetworkProfile) GasPrice() (uint64, bool) {
	if n.gasPrice == nil {
		return 0, false
	}
	return *n.gasPrice, true
}

// ChainID returns the declared chain ID.
func (n *NetworkProfile) ChainID() (uint64, bool) {
	if n.chainID == nil {
		return 0, false
	}
	return *n.chainID, true
}

// GasPriceGwei returns the gas price override in gwei. The second result
// is false when no override is declared.
func (n *NetworkProfile) GasPriceGwei() (decimal.Decimal, bool) {
	if n.gasPrice == nil {
		return decimal.Zero, false
	}
	return decimal.NewFromBigInt(new(big.Int).SetUint64(*n.gasPrice), -9), true
}

// UnsetSecrets returns the names of referenced secrets that had no value at
// load time, in declaration order.
func (n *NetworkProfile) UnsetSecrets() []string {
	var names []string
	for _, s := range n.signers {
		if s.key == nil {
			names = append(names, s.secret)
		}
	}
	return names
}

// PrivateKey returns the signing key at index i. A reference that was
// unset at load time is looked up again and fails with ErrSecretNotSet
// while it stays unset.
func (n *NetworkProfile) PrivateKey(i int) (*ecdsa.PrivateKey, error) {
	key, _, err := n.signerAt(i)
	if err != nil {
		return nil, err
	}
	return crypto.ToECDSA(key)
}

// Address returns the address of the account at index i.
func (n *NetworkProfile) Address(i int) (common.Address, error) {
	_, addr, err := n.signerAt(i)
	return addr, err
}

// Addresses returns the account addresses in declaration order. It fails
// if any referenced secret is unset.
func (n *NetworkProfile) Addresses() ([]common.Address, error) {
	out := make([]common.Address, 0, len(n.signers))
	for i := range n.signers {
		addr, err := n.Address(i)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

func (n *NetworkProfile) signerAt(i int) ([]byte, common.Address, error) {
	if i < 0 || i >= len(n.signers) {
		return nil, common.Address{}, fmt.Errorf("network %q has no account at index %d", n.name, i)
	}
	s := n.signers[i]
	if s.key != nil {
		return s.key, s.address, nil
	}
	var (
		value string
		ok    bool
	)
	if n.resolver != nil {
		value, ok = n.resolver.Resolve(s.secret)
	}
	if !ok {
		return nil, common.Address{}, fmt.Errorf("%w: network %q account %d: %s", ErrSecretNotSet, n.name, i, s.secret)
	}
	key, err := parseKey(value)
	if err != nil {
		return nil, common.Address{}, malformed("networks.%s.accounts[%d]: secret %s is not a valid private key", n.name, i, s.secret)
	}
	return crypto.FromECDSA(key), crypto.PubkeyToAddress(key.PublicKey), nil
}

// resolvedAddresses returns the addresses known without a secret lookup.
func (n *NetworkProfile) resolvedAddresses() []common.Address {
	var out []common.Address
	for _, s := range n.signers {
		if s.key != nil {
			out = append(out, s.address)
		}
	}
	return out
}

// Source returns the acquisition mode, binary when none is declared.
func (c CompilerProfile) Source() AcquisitionMode {
	if c.CompilerSource == "" {
		return SourceBinary
	}
	return c.CompilerSource
}

// SemVer parses the compiler version.
func (c CompilerProfile) SemVer() (semver.Version, error) {
	return semver.Parse(c.Version)
}

func (c CompilerProfile) clone() CompilerProfile {
	if c.Settings.Optimizer.Runs != nil {
		runs := *c.Settings.Optimizer.Runs
		c.Settings.Optimizer.Runs = &runs
	}
	return c
}
