package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/isdmx/chainconf/chain"
	"github.com/isdmx/chainconf/config"
	"github.com/isdmx/chainconf/descriptor"
	"github.com/isdmx/chainconf/workspace"
)

// MCPServer represents the MCP server
type MCPServer struct {
	config    *config.Config
	logger    *zap.Logger
	desc      *descriptor.Descriptor
	workspace *workspace.Workspace
	checker    chain.Checker
	mcpServer *server.MCPServer
	http      *server.StreamableHTTPServer
}

// networkView is the JSON shape of a network profile returned by tools.
// Secrets are never included.
type networkView struct {
	Name         string   `json:"name"`
	URL          string   `json:"url"`
	Accounts     []string `json:"accounts"`
	UnsetSecrets []string `json:"unset_secrets,omitempty"`
	GasPrice     *uint64  `json:"gas_price,omitempty"`
	GasPriceGwei string   `json:"gas_price_gwei,omitempty"`
	ChainID      *uint64  `json:"chain_id,omitempty"`
	Default      bool     `json:"default"`
}

// New creates a new MCPServer
func New(cfg *config.Config, logger *zap.Logger, desc *descriptor.Descriptor, ws *workspace.Workspace, checker chain.Checker) (*MCPServer, error) {
	s := &MCPServer{
		config:    cfg,
		logger:    logger,
		desc:      desc,
		workspace: ws,
		checker:    checker,
	}

	// Log configuration parameters on startup
	logger.Info("configuration loaded",
		zap.String("server.transport", s.config.Server.Transport),
		zap.Int("server.http_port", s.config.Server.HTTPPort),
		zap.String("descriptor.path", s.config.Descriptor.Path),
		zap.String("descriptor.project_root", s.config.Descriptor.ProjectRoot),
		zap.String("default_network", desc.DefaultNetworkName()),
		zap.Strings("networks", desc.NetworkNames()),
		zap.Int("chain.check_timeout_sec", s.config.Chain.CheckTimeoutSec),
	)

	s.mcpServer = server.NewMCPServer("chainconf", "Toolchain configuration server")

	s.registerTools()

	if cfg.Server.Transport == "http" {
		s.http = server.NewStreamableHTTPServer(s.mcpServer)
	}

	return s, nil
}

// registerTools registers all descriptor tools
func (s *MCPServer) registerTools() {
	nameParam := map[string]any{
		"type":        "string",
		"description": "Network name as declared in the descriptor",
		"enum":        s.desc.NetworkNames(),
	}

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "list_networks",
		Description: "List declared networks and the default network",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]any{}},
	}, s.handleListNetworks)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "get_network",
		Description: "Get the profile of a declared network",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"name": nameParam},
			Required:   []string{"name"},
		},
	}, s.handleGetNetwork)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "get_default_network",
		Description: "Get the profile of the default network",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]any{}},
	}, s.handleGetDefaultNetwork)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "get_compilers",
		Description: "Get the zksolc and solidity compiler settings",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]any{}},
	}, s.handleGetCompilers)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "get_paths",
		Description: "Get the project path overrides",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]any{}},
	}, s.handleGetPaths)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "export_config",
		Description: "Export the descriptor for the external build runner",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"format": map[string]any{
					"type":        "string",
					"description": "Output format when no path is given",
					"enum":        []string{"yaml", "json"},
				},
				"path": map[string]any{
					"type":        "string",
					"description": "File under the project root to write; the format follows its extension",
				},
			},
		},
	}, s.handleExportConfig)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "check_network",
		Description: "Query the chain ID of a network endpoint and compare it with the declared one",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"name": map[string]any{
					"type":        "string",
					"description": "Network name, the default network when omitted",
				},
			},
		},
	}, s.handleCheckNetwork)
}

func (s *MCPServer) handleListNetworks(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{
		"default_network": s.desc.DefaultNetworkName(),
		"networks":        s.desc.NetworkNames(),
	})
}

func (s *MCPServer) handleGetNetwork(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return nil, fmt.Errorf("name parameter is required: %w", err)
	}

	network, err := s.desc.Network(name)
	if err != nil {
		s.logger.Warn("network lookup failed", zap.String("network", name), zap.Error(err))
		return errorResult(err), nil
	}
	return jsonResult(s.view(network))
}

func (s *MCPServer) handleGetDefaultNetwork(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	network, err := s.desc.DefaultNetwork()
	if err != nil {
		s.logger.Error("default network lookup failed", zap.Error(err))
		return errorResult(err), nil
	}
	return jsonResult(s.view(network))
}

func (s *MCPServer) handleGetCompilers(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]descriptor.CompilerProfile{
		"zksolc":   s.desc.Zksolc(),
		"solidity": s.desc.Solidity(),
	})
}

func (s *MCPServer) handleGetPaths(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.desc.Paths())
}

func (s *MCPServer) handleExportConfig(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if path := request.GetString("path", ""); path != "" {
		if s.workspace == nil {
			return errorResult(fmt.Errorf("no workspace configured for export")), nil
		}
		written, err := s.workspace.Export(s.desc, path)
		if err != nil {
			s.logger.Error("descriptor export failed", zap.String("path", path), zap.Error(err))
			return errorResult(err), nil
		}
		return jsonResult(map[string]string{"path": written})
	}

	format, err := descriptor.ParseFormat(request.GetString("format", string(descriptor.FormatJSON)))
	if err != nil {
		return errorResult(err), nil
	}

	data, err := s.desc.Marshal(format)
	if err != nil {
		s.logger.Error("descriptor export failed", zap.Error(err))
		return errorResult(err), nil
	}
	return textResult(string(data)), nil
}

func (s *MCPServer) handleCheckNetwork(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")

	var (
		network *descriptor.NetworkProfile
		err     error
	)
	if name == "" {
		network, err = s.desc.DefaultNetwork()
	} else {
		network, err = s.desc.Network(name)
	}
	if err != nil {
		return errorResult(err), nil
	}

	s.logger.Info("checking network", zap.String("network", network.Name()), zap.String("url", network.URL()))

	result, err := chain.Check(ctx, s.checker, network)
	if err != nil {
		s.logger.Error("network check failed", zap.String("network", network.Name()), zap.Error(err))
		return errorResult(err), nil
	}

	s.logger.Info("network checked",
		zap.String("network", result.Network),
		zap.Uint64("chain_id", result.ChainID),
		zap.Bool("match", result.Match))
	return jsonResult(result)
}

func (s *MCPServer) view(n *descriptor.NetworkProfile) networkView {
	accounts := n.Accounts()
	v := networkView{
		Name:     n.Name(),
		URL:      n.URL(),
		Accounts: make([]string, 0, len(accounts)),
		Default:  n.Name() == s.desc.DefaultNetworkName(),
	}
	for i, account := range accounts {
		addr, err := n.Address(i)
		if errors.Is(err, descriptor.ErrSecretNotSet) {
			v.UnsetSecrets = append(v.UnsetSecrets, strings.TrimPrefix(account, "env:"))
			continue
		}
		if err != nil {
			s.logger.Warn("account unavailable", zap.String("network", n.Name()), zap.Int("index", i), zap.Error(err))
			continue
		}
		v.Accounts = append(v.Accounts, addr.Hex())
	}
	if gasPrice, ok := n.GasPrice(); ok {
		v.GasPrice = &gasPrice
	}
	if chainID, ok := n.ChainID(); ok {
		v.ChainID = &chainID
	}
	if gwei, ok := n.GasPriceGwei(); ok {
		v.GasPriceGwei = gwei.String()
	}
	return v
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return textResult(string(data)), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: text,
			},
		},
	}
}

func errorResult(err error) *mcp.CallToolResult {
	result := textResult(err.Error())
	result.IsError = true
	return result
}

// ServeStdio starts the server on stdio
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP starts the server on HTTP
func (s *MCPServer) ServeHTTP() error {
	port := s.config.Server.HTTPPort
	s.logger.Info("starting MCP server on HTTP", zap.Int("port", port))

	if s.http == nil {
		return fmt.Errorf("http transport is not configured")
	}
	return s.http.Start(fmt.Sprintf(":%d", port))
}

// Shutdown stops the HTTP transport if it is configured
func (s *MCPServer) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	s.logger.Info("stopping MCP HTTP server")
	return s.http.Shutdown(ctx)
}

// GetMCPServer returns the underlying MCP server for fx
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
