package unifiedllm

import (
	"context"
	"fmt"
	"sync"
)

// Handler completes a request. It is the shape of both a provider call and
// the remainder of a middleware chain.
type Handler func(ctx context.Context, req Request) (*Response, error)

// Middleware wraps a provider call. It receives the request and the next
// handler in the chain.
type Middleware func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error)

// Client routes requests to registered provider adapters by name and runs
// them through the middleware chain. It satisfies agentloop.Model.
type Client struct {
	mu              sync.RWMutex
	adapters        map[string]ProviderAdapter
	defaultProvider string
	middleware      []Middleware
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithProvider registers a provider adapter.
func WithProvider(name string, adapter ProviderAdapter) ClientOption {
	return func(c *Client) {
		c.adapters[name] = adapter
	}
}

// WithDefaultProvider sets the provider used when a request names none.
func WithDefaultProvider(name string) ClientOption {
	return func(c *Client) {
		c.defaultProvider = name
	}
}

// WithMiddleware appends middleware. The first registered runs outermost.
func WithMiddleware(mw ...Middleware) ClientOption {
	return func(c *Client) {
		c.middleware = append(c.middleware, mw...)
	}
}

// NewClient creates a Client. With exactly one provider and no explicit
// default, that provider becomes the default.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{adapters: make(map[string]ProviderAdapter)}
	for _, opt := range opts {
		opt(c)
	}
	if c.defaultProvider == "" && len(c.adapters) == 1 {
		for name := range c.adapters {
			c.defaultProvider = name
		}
	}
	return c
}

// resolve picks the adapter for req: the named provider, then the client
// default, then the catalog owner of req.Model.
func (c *Client) resolve(req Request) (ProviderAdapter, []Middleware, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	name := req.Provider
	if name == "" {
		name = c.defaultProvider
	}
	if name == "" {
		if info := GetModelInfo(req.Model); info != nil {
			name = info.Provider
		}
	}
	if name == "" {
		return nil, nil, &ConfigurationError{SDKError: SDKError{
			Message: "no provider specified and no default provider configured",
		}}
	}

	adapter, ok := c.adapters[name]
	if !ok {
		return nil, nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("provider %q is not registered", name),
		}}
	}
	mw := make([]Middleware, len(c.middleware))
	copy(mw, c.middleware)
	return adapter, mw, nil
}

// Complete sends a blocking request through the middleware chain to the
// resolved provider. Provider and Model are filled in from the adapter when
// the request leaves them empty, so middleware sees the effective values.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	adapter, mw, err := c.resolve(req)
	if err != nil {
		return nil, err
	}
	if req.Provider == "" {
		req.Provider = adapter.Name()
	}
	if req.Model == "" {
		if m, ok := adapter.(interface{ Model() string }); ok {
			req.Model = m.Model()
		}
	}
	return chain(adapter.Complete, mw)(ctx, req)
}

// chain wraps h so that mw[0] runs first.
func chain(h Handler, mw []Middleware) Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		m, next := mw[i], h
		h = func(ctx context.Context, r Request) (*Response, error) {
			return m(ctx, r, next)
		}
	}
	return h
}

// Close releases resources held by registered adapters and returns the first
// error encountered.
func (c *Client) Close() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var firstErr error
	for _, adapter := range c.adapters {
		closer, ok := adapter.(Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
