// Package plugin defines the contract between taskline and out-of-process
// line writers served with hashicorp/go-plugin.
package plugin

import (
	"net/rpc"

	"github.com/hashicorp/go-plugin"
)

// LineWriter is the interface that writer plugins must implement. Every
// operation reports ok=false when the target line could not be placed or
// found; errors are reserved for transport or I/O failures.
type LineWriter interface {
	// Init configures the plugin before first use.
	Init(config map[string]string) error

	// Create inserts line into the document at path under heading.
	Create(args CreateArgs) (WriteResult, error)

	// Edit replaces the block matching Lookup with NewLine.
	Edit(args EditArgs) (WriteResult, error)

	// Delete removes the block matching Lookup.
	Delete(args DeleteArgs) (WriteResult, error)
}

// CreateArgs carries a create request.
type CreateArgs struct {
	Line    string
	Path    string
	Heading string
}

// EditArgs carries an edit request.
type EditArgs struct {
	NewLine string
	Lookup  string
	Path    string
}

// DeleteArgs carries a delete request.
type DeleteArgs struct {
	Lookup string
	Path   string
}

// WriteResult is the outcome of one write.
type WriteResult struct {
	Line string `json:"line"`
	OK   bool   `json:"ok"`
}

// WriterPlugin is the implementation of plugin.Plugin so we can serve/consume this.
type WriterPlugin struct {
	Impl LineWriter
}

func (p *WriterPlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return &WriterRPCServer{Impl: p.Impl}, nil
}

func (p *WriterPlugin) Client(b *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &WriterRPCClient{Client: c}, nil
}

type WriterRPCClient struct{ Client *rpc.Client }

func (g *WriterRPCClient) Init(config map[string]string) error {
	var resp interface{}
	return g.Client.Call("Plugin.Init", config, &resp)
}

func (g *WriterRPCClient) Create(args CreateArgs) (WriteResult, error) {
	var resp WriteResult
	err := g.Client.Call("Plugin.Create", &args, &resp)
	return resp, err
}

func (g *WriterRPCClient) Edit(args EditArgs) (WriteResult, error) {
	var resp WriteResult
	err := g.Client.Call("Plugin.Edit", &args, &resp)
	return resp, err
}

func (g *WriterRPCClient) Delete(args DeleteArgs) (WriteResult, error) {
	var resp WriteResult
	err := g.Client.Call("Plugin.Delete", &args, &resp)
	return resp, err
}

type WriterRPCServer struct{ Impl LineWriter }

func (s *WriterRPCServer) Init(config map[string]string, resp *interface{}) error {
	return s.Impl.Init(config)
}

func (s *WriterRPCServer) Create(args *CreateArgs, resp *WriteResult) error {
	result, err := s.Impl.Create(*args)
	*resp = result
	return err
}

func (s *WriterRPCServer) Edit(args *EditArgs, resp *WriteResult) error {
	result, err := s.Impl.Edit(*args)
	*resp = result
	return err
}

func (s *WriterRPCServer) Delete(args *DeleteArgs, resp *WriteResult) error {
	result, err := s.Impl.Delete(*args)
	*resp = result
	return err
}
