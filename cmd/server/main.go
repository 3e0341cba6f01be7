package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/isdmx/chainconf/chain"
	"github.com/isdmx/chainconf/config"
	"github.com/isdmx/chainconf/descriptor"
	"github.com/isdmx/chainconf/logger"
	"github.com/isdmx/chainconf/mcpserver"
	"github.com/isdmx/chainconf/workspace"
)

func main() {
	app := fx.New(
		// Provide dependencies
		fx.Provide(
			config.New,
			logger.NewFromConfig,
			newDescriptor,
			newWorkspace,
			chain.NewChecker,
			mcpserver.New,
		),

		fx.Invoke(
			prepareWorkspace,
			startServer,
		),

		// Use the application logger for fx logs
		fx.WithLogger(logger.FxLogger),
	)

	// Start the application
	app.Run()
}

// newDescriptor loads the toolchain descriptor once; every consumer gets the
// same instance.
func newDescriptor(cfg *config.Config, log *zap.Logger) (*descriptor.Descriptor, error) {
	opts := []descriptor.Option{
		descriptor.WithLogger(log.Named("descriptor")),
		descriptor.WithSecretResolver(descriptor.NewEnvResolver(cfg.Descriptor.SecretPrefix)),
	}
	if cfg.Descriptor.Path == "" {
		return descriptor.LoadDefault(opts...)
	}
	return descriptor.LoadFile(cfg.Descriptor.Path, opts...)
}

func newWorkspace(cfg *config.Config, log *zap.Logger) (*workspace.Workspace, error) {
	return workspace.New(log.Named("workspace"), workspace.RealFileSystem{}, cfg.Descriptor.ProjectRoot)
}

// prepareWorkspace creates the output directories and writes the descriptor
// for the external runner when the configuration asks for it.
func prepareWorkspace(cfg *config.Config, ws *workspace.Workspace, desc *descriptor.Descriptor) error {
	if cfg.Descriptor.PrepareDirs {
		layout, err := ws.Resolve(desc.Paths())
		if err != nil {
			return err
		}
		if err := ws.Prepare(layout); err != nil {
			return err
		}
	}
	if cfg.Descriptor.ExportPath != "" {
		if _, err := ws.Export(desc, cfg.Descriptor.ExportPath); err != nil {
			return fmt.Errorf("failed to export descriptor: %w", err)
		}
	}
	return nil
}

// startServer runs the configured transport in the background
func startServer(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg *config.Config, log *zap.Logger, server *mcpserver.MCPServer) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				var err error
				switch cfg.Server.Transport {
				case "stdio":
					err = server.ServeStdio()
				case "http":
					err = server.ServeHTTP()
				}
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("MCP server stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
					return
				}
				_ = shutdowner.Shutdown()
			}()
			return nil
		},
		OnStop: server.Shutdown,
	})
}
