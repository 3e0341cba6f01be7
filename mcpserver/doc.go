// Package mcpserver provides the Model Context Protocol (MCP) server implementation.
//
// The mcpserver package exposes the toolchain descriptor to MCP clients
// through the mark3labs/mcp-go library. Tools cover network lookups
// (list_networks, get_network, get_default_network), the compiler and path
// sections, exporting the descriptor for the external build runner and
// read-only endpoint checks.
//
// Signing credentials are never returned; network profiles report the
// derived account addresses instead, plus the names of secrets that are
// not set yet. export_config writes into the project root when given a
// path.
package mcpserver
