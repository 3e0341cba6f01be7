// Package logger provides structured logging capabilities.
//
// The logger package builds the zap logger used across chainconf from the
// logging section of the application config, and adapts it for fx
// lifecycle events. Logs always go to stderr so they never interleave with
// the MCP stdio stream.
//
// Usage:
//
//	log, err := logger.New("production", "info")
//	if err != nil {
//	    panic(err)
//	}
//	log.Info("descriptor loaded", zap.String("default_network", name))
package logger
