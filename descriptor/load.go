package descriptor

import (
	"bytes"
	"crypto/ecdsa"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/blang/semver/v4"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultDocument []byte

// document is the on-disk shape shared by decoding and encoding.
type document struct {
	Zksolc         CompilerProfile             `yaml:"zksolc" json:"zksolc"`
	DefaultNetwork string                      `yaml:"defaultNetwork" json:"defaultNetwork"`
	Networks       map[string]*networkDocument `yaml:"networks" json:"networks"`
	Paths          PathSet                     `yaml:"paths" json:"paths"`
	Solidity       CompilerProfile             `yaml:"solidity" json:"solidity"`
}

type networkDocument struct {
	URL      string   `yaml:"url" json:"url"`
	Accounts []string `yaml:"accounts,omitempty" json:"accounts,omitempty"`
	GasPrice *uint64  `yaml:"gasPrice,omitempty" json:"gasPrice,omitempty"`
	ChainID  *uint64  `yaml:"chainId,omitempty" json:"chainId,omitempty"`
}

type options struct {
	resolver SecretResolver
	logger   *zap.Logger
}

// Option customizes loading.
type Option func(*options)

// WithSecretResolver sets the resolver for "env:" account references.
func WithSecretResolver(r SecretResolver) Option {
	return func(o *options) {
		o.resolver = r
	}
}

// WithLogger sets the logger used to report the loaded descriptor.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// LoadDefault builds the descriptor from the document compiled into the
// binary.
func LoadDefault(opts ...Option) (*Descriptor, error) {
	return Load(defaultDocument, opts...)
}

// LoadFile reads and loads a YAML or JSON descriptor file.
func LoadFile(path string, opts ...Option) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading descriptor file: %w", err)
	}
	return Load(data, opts...)
}

// LoadReader loads a YAML or JSON descriptor from r.
func LoadReader(r io.Reader, opts ...Option) (*Descriptor, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading descriptor: %w", err)
	}
	return Load(data, opts...)
}

// Load parses and validates a YAML or JSON descriptor document. Every
// validation failure wraps ErrMalformedConfig.
func Load(data []byte, opts ...Option) (*Descriptor, error) {
	o := options{
		resolver: NewEnvResolver(""),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.resolver == nil {
		o.resolver = NewEnvResolver("")
	}

	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, malformed("empty document")
		}
		return nil, malformed("%v", err)
	}

	d, err := build(&doc, o.resolver)
	if err != nil {
		return nil, err
	}

	o.logger.Info("descriptor loaded",
		zap.String("default_network", d.defaultNetwork),
		zap.Int("networks", len(d.networks)),
		zap.String("zksolc.version", d.zksolc.Version),
		zap.String("solidity.version", d.solidity.Version),
	)
	for _, name := range d.NetworkNames() {
		n := d.networks[name]
		fields := []zap.Field{
			zap.String("network", name),
			zap.String("url", n.url),
			zap.Stringers("accounts", n.resolvedAddresses()),
		}
		if gwei, ok := n.GasPriceGwei(); ok {
			fields = append(fields, zap.String("gas_price_gwei", gwei.String()))
		}
		o.logger.Debug("network declared", fields...)
		for _, secret := range n.UnsetSecrets() {
			o.logger.Warn("account secret not set, signing unavailable until it is provided",
				zap.String("network", name),
				zap.String("secret", secret),
			)
		}
	}

	return d, nil
}

func build(doc *document, resolver SecretResolver) (*Descriptor, error) {
	if err := validateCompiler("zksolc", doc.Zksolc); err != nil {
		return nil, err
	}
	if err := validateCompiler("solidity", doc.Solidity); err != nil {
		return nil, err
	}
	if err := validatePaths(doc.Paths); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(doc.Networks))
	for name := range doc.Networks {
		names = append(names, name)
	}
	sort.Strings(names)

	networks := make(map[string]*NetworkProfile, len(doc.Networks))
	for _, name := range names {
		nd := doc.Networks[name]
		if name == "" {
			return nil, malformed("networks: empty network name")
		}
		if nd == nil {
			return nil, malformed("networks.%s: empty profile", name)
		}
		if err := validateURL(name, nd.URL); err != nil {
			return nil, err
		}
		profile := &NetworkProfile{
			name:     name,
			url:      nd.URL,
			gasPrice: nd.GasPrice,
			chainID:  nd.ChainID,
			resolver: resolver,
		}
		if err := profile.resolveAccounts(nd.Accounts); err != nil {
			return nil, err
		}
		networks[name] = profile
	}

	if doc.DefaultNetwork == "" {
		return nil, malformed("defaultNetwork is required")
	}
	if _, ok := networks[doc.DefaultNetwork]; !ok {
		return nil, malformed("defaultNetwork %q does not match any declared network", doc.DefaultNetwork)
	}

	return &Descriptor{
		zksolc:         doc.Zksolc,
		defaultNetwork: doc.DefaultNetwork,
		networks:       networks,
		paths:          doc.Paths,
		solidity:       doc.Solidity,
	}, nil
}

func validateCompiler(section string, c CompilerProfile) error {
	if c.Version == "" {
		return malformed("%s.version is required", section)
	}
	if _, err := semver.Parse(c.Version); err != nil {
		return malformed("%s.version %q is not a semantic version: %v", section, c.Version, err)
	}
	switch c.CompilerSource {
	case "", SourceBinary, SourceSource:
	default:
		return malformed("%s.compilerSource %q, must be 'binary' or 'source'", section, c.CompilerSource)
	}
	return nil
}

func validatePaths(p PathSet) error {
	required := []struct {
		key   string
		value string
	}{
		{"artifacts", p.Artifacts},
		{"cache", p.Cache},
		{"sources", p.Sources},
		{"tests", p.Tests},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return malformed("paths.%s is required", field.key)
		}
	}
	return nil
}

func validateURL(network, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return malformed("networks.%s.url: %v", network, err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return malformed("networks.%s.url %q: unsupported scheme %q", network, raw, u.Scheme)
	}
	if u.Host == "" {
		return malformed("networks.%s.url %q: missing host", network, raw)
	}
	return nil
}

// resolveAccounts parses every signing credential. Literal keys and set
// references must be valid keys; unset references are left for PrivateKey
// to report. Secret values never appear in returned errors.
func (n *NetworkProfile) resolveAccounts(accounts []string) error {
	if len(accounts) == 0 {
		return nil
	}
	n.accounts = append([]string(nil), accounts...)
	n.signers = make([]signer, 0, len(accounts))
	for i, account := range accounts {
		raw := account
		var s signer
		if isSecretRef(account) {
			s.secret = strings.TrimPrefix(account, secretRefPrefix)
			if s.secret == "" {
				return malformed("networks.%s.accounts[%d]: empty secret reference", n.name, i)
			}
			value, ok := n.resolver.Resolve(s.secret)
			if !ok {
				n.signers = append(n.signers, s)
				continue
			}
			raw = value
		}
		key, err := parseKey(raw)
		if err != nil {
			return malformed("networks.%s.accounts[%d]: not a valid private key", n.name, i)
		}
		s.key = crypto.FromECDSA(key)
		s.address = crypto.PubkeyToAddress(key.PublicKey)
		n.signers = append(n.signers, s)
	}
	return nil
}

func (n *NetworkProfile) document() *networkDocument {
	return &networkDocument{
		URL:      n.url,
		Accounts: n.accounts,
		GasPrice: n.gasPrice,
		ChainID:  n.chainID,
	}
}

func parseKey(raw string) (*ecdsa.PrivateKey, error) {
	return crypto.HexToECDSA(trimHexPrefix(strings.TrimSpace(raw)))
}

func trimHexPrefix(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}
