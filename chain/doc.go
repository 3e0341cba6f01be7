// Package chain checks network endpoints declared in a toolchain
// descriptor.
//
// Checks are read-only: they dial the endpoint with go-ethereum's ethclient
// and ask for the chain ID, so a misconfigured URL or chainId can be caught
// before the external runner tries to deploy.
//
// Usage:
//
//	checker := chain.NewChecker(logger, cfg)
//	result, err := chain.Check(ctx, checker, network)
package chain
