// Package descriptor holds the toolchain configuration descriptor.
//
// A Descriptor is built once at startup from a YAML or JSON document that
// uses the section names the external build runner expects: zksolc,
// defaultNetwork, networks, paths and solidity. It is validated on load and
// never mutated afterwards, so it can be shared by any number of readers.
//
// Usage:
//
//	desc, err := descriptor.LoadDefault(descriptor.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	network, err := desc.DefaultNetwork()
//	fmt.Println(network.URL())
//
// Signing credentials may be declared as literal hex keys or as secret
// references of the form "env:NAME". A reference that is unset at load does
// not fail the load; PrivateKey and Address report ErrSecretNotSet for it
// until the variable is provided.
package descriptor
