// Package config provides application configuration management.
//
// The config package loads the settings of the chainconf service itself
// from a YAML file and CHAINCONF_* environment variables: the MCP transport,
// logging, which toolchain descriptor to serve and how endpoint checks
// behave. The toolchain descriptor is handled by the descriptor package.
//
// Usage:
//
//	cfg, err := config.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Server transport: %s\n", cfg.Server.Transport)
package config
