// Package main is the entry point for the chainconf MCP server.
//
// The server loads a smart-contract toolchain descriptor (compiler stages,
// network profiles, signing credentials and project paths) once at startup
// and serves read-only lookups over the Model Context Protocol, on stdio or
// HTTP. The descriptor is validated on load; a malformed descriptor stops
// the process before any transport starts. Unset account secrets do not.
// When descriptor.export_path is set the descriptor is written into the
// project root before serving.
//
// The application uses Uber's fx framework for dependency injection and lifecycle
// management, with zap for structured logging and viper for configuration.
package main
