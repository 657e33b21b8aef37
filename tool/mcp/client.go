package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sweetpotato0/aura/pkg/logging"
)

var (
	// ErrClientClosed is returned when the MCP client has been closed.
	ErrClientClosed = errors.New("mcp client closed")
)

// Option configures optional MCP client behaviour.
type Option func(*clientConfig)

type clientConfig struct {
	implementation   sdkmcp.Implementation
	logger           *slog.Logger
	args             []string
	env              []string
	dir              string
	keepAlive        time.Duration
	terminateTimeout time.Duration
	httpClient       *http.Client
}

// WithClientInfo sets the client metadata advertised to the MCP server.
func WithClientInfo(name, version string) Option {
	return func(cfg *clientConfig) {
		if name != "" {
			cfg.implementation.Name = name
		}
		if version != "" {
			cfg.implementation.Version = version
		}
	}
}

// WithLogger configures logging for the MCP client.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *clientConfig) {
		cfg.logger = logger
	}
}

// WithCommandArgs configures additional arguments when launching an stdio MCP server.
func WithCommandArgs(args ...string) Option {
	return func(cfg *clientConfig) {
		cfg.args = append(cfg.args, args...)
	}
}

// WithCommandEnv appends environment variables when launching an stdio MCP server.
func WithCommandEnv(env ...string) Option {
	return func(cfg *clientConfig) {
		cfg.env = append(cfg.env, env...)
	}
}

// WithCommandDir sets the working directory for the stdio MCP server process.
func WithCommandDir(dir string) Option {
	return func(cfg *clientConfig) {
		cfg.dir = dir
	}
}

// WithKeepAlive configures periodic ping requests to keep the session healthy.
func WithKeepAlive(interval time.Duration) Option {
	return func(cfg *clientConfig) {
		cfg.keepAlive = interval
	}
}

// WithTerminateTimeout sets how long to wait for graceful server shutdown before sending SIGTERM.
func WithTerminateTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) {
		cfg.terminateTimeout = d
	}
}

// WithHTTPClient supplies a custom HTTP client for streamable (SSE/HTTP) transports.
func WithHTTPClient(client *http.Client) Option {
	return func(cfg *clientConfig) {
		cfg.httpClient = client
	}
}

// Client wraps the official MCP Go SDK client and session.
type Client struct {
	sdkClient *sdkmcp.Client
	session   *sdkmcp.ClientSession

	logger *slog.Logger

	toolsChanged chan struct{}
	done         chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// NewStdioClient launches an MCP server command using the stdio transport and performs
// the initialization handshake.
func NewStdioClient(ctx context.Context, command string, opts ...Option) (*Client, error) {
	if command == "" {
		return nil, errors.New("mcp: command cannot be empty")
	}

	cfg := defaultClientConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	cmd := exec.Command(command, cfg.args...)
	if cfg.dir != "" {
		cmd.Dir = cfg.dir
	}
	if len(cfg.env) > 0 {
		cmd.Env = append(os.Environ(), cfg.env...)
	}
	cmd.Stderr = logWriter{logger: cfg.logger}

	client := newClient(cfg)

	transport := &sdkmcp.CommandTransport{
		Command:           cmd,
		TerminateDuration: cfg.terminateTimeout,
	}

	session, err := client.sdkClient.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp: connect failed: %w", err)
	}
	client.session = session

	go client.monitorSession()

	return client, nil
}

// NewStreamableClient connects to an MCP server over the streamable HTTP transport
// (SSE + HTTP POST) as defined by the MCP specification.
func NewStreamableClient(ctx context.Context, endpoint string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("mcp: endpoint cannot be empty")
	}

	cfg := defaultClientConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	client := newClient(cfg)

	transport := &sdkmcp.StreamableClientTransport{
		Endpoint: endpoint,
	}
	if cfg.httpClient != nil {
		transport.HTTPClient = cfg.httpClient
	}

	session, err := client.sdkClient.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp: connect failed: %w", err)
	}
	client.session = session

	go client.monitorSession()

	return client, nil
}

func newClient(cfg clientConfig) *Client {
	client := &Client{
		logger:       cfg.logger,
		toolsChanged: make(chan struct{}, 1),
		done:         make(chan struct{}),
	}

	clientOpts := &sdkmcp.ClientOptions{
		ToolListChangedHandler: func(context.Context, *sdkmcp.ToolListChangedRequest) {
			select {
			case client.toolsChanged <- struct{}{}:
			default:
			}
		},
		LoggingMessageHandler: func(_ context.Context, req *sdkmcp.LoggingMessageRequest) {
			if req != nil && req.Params != nil {
				client.logger.Debug("mcp server log", "level", req.Params.Level, "data", req.Params.Data)
			}
		},
		KeepAlive: cfg.keepAlive,
	}

	client.sdkClient = sdkmcp.NewClient(&cfg.implementation, clientOpts)
	return client
}

// Close terminates the MCP client and underlying transport.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.session != nil {
			c.closeErr = c.session.Close()
		}
		close(c.done)
	})
	return c.closeErr
}

// Done returns a channel that is closed when the client shuts down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// ToolsChanged reports when the server indicates that the tool list has changed.
func (c *Client) ToolsChanged() <-chan struct{} {
	return c.toolsChanged
}

func (c *Client) monitorSession() {
	if c.session == nil {
		close(c.done)
		return
	}
	if err := c.session.Wait(); err != nil && !errors.Is(err, sdkmcp.ErrConnectionClosed) {
		c.logger.Warn("mcp session ended with error", "error", err)
	}
	_ = c.Close()
}

func defaultClientConfig() clientConfig {
	return clientConfig{
		implementation: sdkmcp.Implementation{
			Name:    "aura",
			Version: "0.1.0",
		},
		logger: logging.WithComponent("mcp"),
	}
}

type logWriter struct {
	logger *slog.Logger
}

func (w logWriter) Write(p []byte) (int, error) {
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		w.logger.Debug("mcp server stderr", "message", msg)
	}
	return len(p), nil
}
