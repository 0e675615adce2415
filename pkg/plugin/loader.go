// Package plugin loads and serves out-of-process line writers.
package plugin

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/hashicorp/go-hclog"
	goplugin "github.com/hashicorp/go-plugin"

	domainPlugin "github.com/felixgeelhaar/taskline/pkg/domain/plugin"
)

const writerKey = "writer"

// HandshakeConfig must match between the host and every writer binary.
var HandshakeConfig = goplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "TASKLINE_PLUGIN",
	MagicCookieValue: "taskline",
}

var PluginMap = map[string]goplugin.Plugin{
	writerKey: &domainPlugin.WriterPlugin{},
}

// Loader starts writer binaries and keeps one client per binary.
type Loader struct {
	mu      sync.Mutex
	logger  hclog.Logger
	clients map[string]*goplugin.Client
	writers map[string]domainPlugin.LineWriter
}

func NewLoader() *Loader {
	return &Loader{
		logger: hclog.New(&hclog.LoggerOptions{
			Name:   "taskline-plugin",
			Level:  hclog.Warn,
			Output: os.Stderr,
		}),
		clients: make(map[string]*goplugin.Client),
		writers: make(map[string]domainPlugin.LineWriter),
	}
}

// Load starts the writer at path, or returns the running one if the same
// binary was loaded before.
func (l *Loader) Load(path string) (domainPlugin.LineWriter, error) {
	bin, err := executable(path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok := l.writers[bin]; ok && !l.clients[bin].Exited() {
		return w, nil
	}

	client := goplugin.NewClient(&goplugin.ClientConfig{
		HandshakeConfig:  HandshakeConfig,
		Plugins:          PluginMap,
		Cmd:              exec.Command(bin), // #nosec G204 -- checked by executable
		AllowedProtocols: []goplugin.Protocol{goplugin.ProtocolNetRPC},
		Logger:           l.logger.Named(filepath.Base(bin)),
	})
	w, err := dispense(client)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("plugin %s: %w", bin, err)
	}

	l.clients[bin] = client
	l.writers[bin] = w
	return w, nil
}

func dispense(client *goplugin.Client) (domainPlugin.LineWriter, error) {
	rpcClient, err := client.Client()
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	raw, err := rpcClient.Dispense(writerKey)
	if err != nil {
		return nil, fmt.Errorf("dispense: %w", err)
	}
	w, ok := raw.(domainPlugin.LineWriter)
	if !ok {
		return nil, errors.New("does not serve a line writer")
	}
	return w, nil
}

// executable resolves path and checks that it names a runnable file.
func executable(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid plugin path: %w", err)
	}
	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("plugin not found: %s", abs)
	case err != nil:
		return "", fmt.Errorf("cannot access plugin: %w", err)
	case info.IsDir():
		return "", fmt.Errorf("plugin path is a directory: %s", abs)
	case runtime.GOOS != "windows" && info.Mode()&0o111 == 0:
		return "", fmt.Errorf("plugin is not executable: %s", abs)
	}
	return abs, nil
}

// Cleanup stops every plugin process started by the loader.
func (l *Loader) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for bin, client := range l.clients {
		client.Kill()
		delete(l.clients, bin)
		delete(l.writers, bin)
	}
}

// Serve runs impl as a writer plugin. It blocks until the host disconnects.
func Serve(impl domainPlugin.LineWriter) {
	goplugin.Serve(&goplugin.ServeConfig{
		HandshakeConfig: HandshakeConfig,
		Plugins: map[string]goplugin.Plugin{
			writerKey: &domainPlugin.WriterPlugin{Impl: impl},
		},
	})
}
