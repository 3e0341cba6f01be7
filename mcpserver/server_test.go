package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/isdmx/chainconf/config"
	"github.com/isdmx/chainconf/descriptor"
	"github.com/isdmx/chainconf/workspace"
)

const testKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

const testDocument = `
zksolc:
  version: "1.3.9"
  compilerSource: binary
  settings:
    optimizer:
      enabled: true
defaultNetwork: lisk-sepolia
networks:
  fuse:
    url: https://rpc.fusespark.io/
    accounts:
      - env:FUSE_DEPLOYER_KEY
  lisk-sepolia:
    url: https://rpc.sepolia-api.lisk.com
    chainId: 4202
    gasPrice: 1000000000
    accounts:
      - env:LISK_SEPOLIA_DEPLOYER_KEY
paths:
  artifacts: ./artifacts-zk
  cache: ./cache-zk
  sources: ./contracts
  tests: ./test
solidity:
  version: "0.8.17"
  settings:
    optimizer:
      enabled: true
      runs: 200
`

// MockChecker implements chain.Checker for testing
type MockChecker struct {
	chainID *big.Int
	err     error
	url     string
}

func (m *MockChecker) ChainID(_ context.Context, url string) (*big.Int, error) {
	m.url = url
	return m.chainID, m.err
}

func newTestServer(t *testing.T, checker *MockChecker) *MCPServer {
	t.Helper()
	return newTestServerWithSecrets(t, checker, descriptor.MapResolver{
		"FUSE_DEPLOYER_KEY":         testKey,
		"LISK_SEPOLIA_DEPLOYER_KEY": testKey,
	})
}

func newTestServerWithSecrets(t *testing.T, checker *MockChecker, secrets descriptor.MapResolver) *MCPServer {
	t.Helper()
	log := zaptest.NewLogger(t)
	desc, err := descriptor.Load([]byte(testDocument), descriptor.WithSecretResolver(secrets))
	require.NoError(t, err)

	cfg := &config.Config{
		Server:     config.ServerConfig{Transport: "stdio", HTTPPort: 8080},
		Logging:    config.LoggingConfig{Mode: "production", Level: "info"},
		Descriptor: config.DescriptorConfig{ProjectRoot: t.TempDir()},
		Chain:      config.ChainConfig{CheckTimeoutSec: 10},
	}
	ws, err := workspace.New(log, workspace.RealFileSystem{}, cfg.Descriptor.ProjectRoot)
	require.NoError(t, err)
	server, err := New(cfg, log, desc, ws, checker)
	require.NoError(t, err)
	return server
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	content, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return content.Text
}

func TestNewMCPServer(t *testing.T) {
	checker := &MockChecker{}
	server := newTestServer(t, checker)

	assert.NotNil(t, server.mcpServer)
	assert.NotNil(t, server.GetMCPServer())
	assert.Equal(t, checker, server.checker)
	assert.Nil(t, server.http)
	assert.NoError(t, server.Shutdown(context.Background()))
}

func TestListNetworks(t *testing.T) {
	server := newTestServer(t, &MockChecker{})

	result, err := server.handleListNetworks(context.Background(), callRequest("list_networks", nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out struct {
		DefaultNetwork string   `json:"default_network"`
		Networks       []string `json:"networks"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	assert.Equal(t, "lisk-sepolia", out.DefaultNetwork)
	assert.Equal(t, []string{"fuse", "lisk-sepolia"}, out.Networks)
}

func TestGetNetwork(t *testing.T) {
	server := newTestServer(t, &MockChecker{})

	t.Run("KnownNetwork", func(t *testing.T) {
		result, err := server.handleGetNetwork(context.Background(), callRequest("get_network", map[string]any{"name": "lisk-sepolia"}))
		require.NoError(t, err)
		assert.False(t, result.IsError)

		var view networkView
		require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &view))
		assert.Equal(t, "https://rpc.sepolia-api.lisk.com", view.URL)
		assert.Equal(t, []string{"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"}, view.Accounts)
		assert.Equal(t, "1", view.GasPriceGwei)
		assert.True(t, view.Default)
		assert.Empty(t, view.UnsetSecrets)
		assert.NotContains(t, resultText(t, result), testKey[2:])
	})

	t.Run("UnsetSecret", func(t *testing.T) {
		server := newTestServerWithSecrets(t, &MockChecker{}, descriptor.MapResolver{
			"LISK_SEPOLIA_DEPLOYER_KEY": testKey,
		})

		result, err := server.handleGetNetwork(context.Background(), callRequest("get_network", map[string]any{"name": "fuse"}))
		require.NoError(t, err)
		assert.False(t, result.IsError)

		var view networkView
		require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &view))
		assert.Empty(t, view.Accounts)
		assert.Equal(t, []string{"FUSE_DEPLOYER_KEY"}, view.UnsetSecrets)
	})

	t.Run("UnknownNetwork", func(t *testing.T) {
		result, err := server.handleGetNetwork(context.Background(), callRequest("get_network", map[string]any{"name": "mainnet"}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "unknown network")
	})

	t.Run("MissingName", func(t *testing.T) {
		_, err := server.handleGetNetwork(context.Background(), callRequest("get_network", map[string]any{}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "name parameter is required")
	})
}

func TestGetDefaultNetwork(t *testing.T) {
	server := newTestServer(t, &MockChecker{})

	result, err := server.handleGetDefaultNetwork(context.Background(), callRequest("get_default_network", nil))
	require.NoError(t, err)

	var view networkView
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &view))
	assert.Equal(t, "lisk-sepolia", view.Name)
	require.NotNil(t, view.GasPrice)
	assert.Equal(t, uint64(1000000000), *view.GasPrice)
}

func TestGetCompilersAndPaths(t *testing.T) {
	server := newTestServer(t, &MockChecker{})

	result, err := server.handleGetCompilers(context.Background(), callRequest("get_compilers", nil))
	require.NoError(t, err)
	var compilers map[string]descriptor.CompilerProfile
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &compilers))
	assert.Equal(t, "1.3.9", compilers["zksolc"].Version)
	assert.Equal(t, "0.8.17", compilers["solidity"].Version)

	result, err = server.handleGetPaths(context.Background(), callRequest("get_paths", nil))
	require.NoError(t, err)
	var paths descriptor.PathSet
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &paths))
	assert.Equal(t, "./artifacts-zk", paths.Artifacts)
}

func TestExportConfig(t *testing.T) {
	server := newTestServer(t, &MockChecker{})

	t.Run("DefaultJSON", func(t *testing.T) {
		result, err := server.handleExportConfig(context.Background(), callRequest("export_config", nil))
		require.NoError(t, err)
		text := resultText(t, result)
		assert.True(t, json.Valid([]byte(text)))
		assert.Contains(t, text, "env:LISK_SEPOLIA_DEPLOYER_KEY")
	})

	t.Run("YAML", func(t *testing.T) {
		result, err := server.handleExportConfig(context.Background(), callRequest("export_config", map[string]any{"format": "yaml"}))
		require.NoError(t, err)
		assert.Contains(t, resultText(t, result), "defaultNetwork: lisk-sepolia")
	})

	t.Run("UnsupportedFormat", func(t *testing.T) {
		result, err := server.handleExportConfig(context.Background(), callRequest("export_config", map[string]any{"format": "toml"}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})

	t.Run("ToFile", func(t *testing.T) {
		result, err := server.handleExportConfig(context.Background(), callRequest("export_config", map[string]any{"path": "chain.config.yaml"}))
		require.NoError(t, err)
		require.False(t, result.IsError, resultText(t, result))

		var out struct {
			Path string `json:"path"`
		}
		require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
		assert.Equal(t, filepath.Join(server.workspace.Root(), "chain.config.yaml"), out.Path)

		data, err := os.ReadFile(out.Path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "env:LISK_SEPOLIA_DEPLOYER_KEY")
		assert.NotContains(t, string(data), testKey[2:])
	})

	t.Run("PathOutsideRoot", func(t *testing.T) {
		result, err := server.handleExportConfig(context.Background(), callRequest("export_config", map[string]any{"path": "../chain.config.json"}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "escapes project root")
	})
}

func TestCheckNetwork(t *testing.T) {
	t.Run("DefaultNetwork", func(t *testing.T) {
		checker := &MockChecker{chainID: big.NewInt(4202)}
		server := newTestServer(t, checker)

		result, err := server.handleCheckNetwork(context.Background(), callRequest("check_network", nil))
		require.NoError(t, err)
		assert.False(t, result.IsError)
		assert.Equal(t, "https://rpc.sepolia-api.lisk.com", checker.url)

		var out struct {
			ChainID uint64 `json:"chain_id"`
			Match   bool   `json:"match"`
		}
		require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
		assert.Equal(t, uint64(4202), out.ChainID)
		assert.True(t, out.Match)
	})

	t.Run("NamedNetwork", func(t *testing.T) {
		checker := &MockChecker{chainID: big.NewInt(123)}
		server := newTestServer(t, checker)

		result, err := server.handleCheckNetwork(context.Background(), callRequest("check_network", map[string]any{"name": "fuse"}))
		require.NoError(t, err)
		assert.False(t, result.IsError)
		assert.Equal(t, "https://rpc.fusespark.io/", checker.url)
	})

	t.Run("UnknownNetwork", func(t *testing.T) {
		server := newTestServer(t, &MockChecker{})

		result, err := server.handleCheckNetwork(context.Background(), callRequest("check_network", map[string]any{"name": "mainnet"}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "unknown network")
	})

	t.Run("CheckFailure", func(t *testing.T) {
		server := newTestServer(t, &MockChecker{err: errors.New("connection refused")})

		result, err := server.handleCheckNetwork(context.Background(), callRequest("check_network", nil))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "connection refused")
	})
}
