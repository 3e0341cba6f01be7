package descriptor

import (
	"strings"

	"github.com/spf13/viper"
)

// secretRefPrefix marks an account entry that names a secret instead of
// carrying a literal key.
const secretRefPrefix = "env:"

// secretKey is the viper key every reference is bound to.
const secretKey = "secret"

// SecretResolver looks up the value of a named secret.
type SecretResolver interface {
	Resolve(name string) (string, bool)
}

// EnvResolver resolves secrets from process environment variables. Names
// are case-sensitive and used verbatim.
type EnvResolver struct {
	prefix string
}

// NewEnvResolver returns a resolver reading environment variables. When
// prefix is not empty, NAME is looked up as prefix_NAME.
func NewEnvResolver(prefix string) EnvResolver {
	return EnvResolver{prefix: prefix}
}

// Resolve returns the variable value. Unset and empty variables are
// reported as missing.
func (r EnvResolver) Resolve(name string) (string, bool) {
	v := viper.New()
	if err := v.BindEnv(secretKey, r.envName(name)); err != nil {
		return "", false
	}
	value := strings.TrimSpace(v.GetString(secretKey))
	return value, value != ""
}

func (r EnvResolver) envName(name string) string {
	if r.prefix == "" {
		return name
	}
	return r.prefix + "_" + name
}

// MapResolver resolves secrets from a fixed map.
type MapResolver map[string]string

func (m MapResolver) Resolve(name string) (string, bool) {
	value, ok := m[name]
	return value, ok && value != ""
}

func isSecretRef(account string) bool {
	return strings.HasPrefix(account, secretRefPrefix)
}
