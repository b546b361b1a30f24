package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/internal/auth"
	"github.com/Ayushhgit/biomind-nexus/pkg/sdk"
)

// userAgent identifies nexusctl requests in backend audit logs.
const userAgent = "nexusctl"

// Options configures a Provider.
type Options struct {
	ServerURL     string
	CredentialDir string
	Timeout       time.Duration
	Logger        zerolog.Logger
	// HTTPClient overrides the transport; mainly for tests.
	HTTPClient *http.Client
}

// Provider lazily builds the process-wide TokenStore, RequestClient and
// Session. Each is constructed at most once per command invocation.
type Provider struct {
	opts Options

	tokensOnce sync.Once
	tokens     *sdk.TokenStore
	tokensErr  error

	clientOnce sync.Once
	client     *sdk.RequestClient
	clientErr  error

	sessionOnce sync.Once
	session     *sdk.Session
	sessionErr  error
}

// NewProvider constructs a new Provider.
func NewProvider(opts Options) *Provider {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Provider{opts: opts}
}

// Logger returns the logger shared by the SDK components.
func (p *Provider) Logger() zerolog.Logger {
	return p.opts.Logger
}

// Timeout returns the per-request timeout.
func (p *Provider) Timeout() time.Duration {
	return p.opts.Timeout
}

// Tokens returns the TokenStore backed by the profile's credentials file.
func (p *Provider) Tokens() (*sdk.TokenStore, error) {
	p.tokensOnce.Do(func() {
		store, err := auth.NewFileStore(p.opts.CredentialDir)
		if err != nil {
			p.tokensErr = fmt.Errorf("failed to create credential store: %w", err)
			return
		}
		p.tokens = sdk.NewTokenStore(store)
	})
	return p.tokens, p.tokensErr
}

// RequestClient returns the shared RequestClient.
func (p *Provider) RequestClient() (*sdk.RequestClient, error) {
	p.clientOnce.Do(func() {
		tokens, err := p.Tokens()
		if err != nil {
			p.clientErr = err
			return
		}
		httpClient := p.opts.HTTPClient
		if httpClient == nil {
			httpClient = &http.Client{Timeout: p.opts.Timeout}
		}
		p.client, p.clientErr = sdk.NewRequestClient(p.opts.ServerURL, tokens,
			sdk.WithHTTPClient(httpClient),
			sdk.WithLogger(p.opts.Logger),
			sdk.WithUserAgent(userAgent),
		)
	})
	return p.client, p.clientErr
}

// Session returns the shared Session without resolving the user.
func (p *Provider) Session() (*sdk.Session, error) {
	p.sessionOnce.Do(func() {
		rc, err := p.RequestClient()
		if err != nil {
			p.sessionErr = err
			return
		}
		p.session = sdk.NewSession(rc, sdk.WithSessionLogger(p.opts.Logger))
	})
	return p.session, p.sessionErr
}

// InitializedSession returns the shared Session after resolving any stored
// credential. Resolution failures leave it unauthenticated.
func (p *Provider) InitializedSession(ctx context.Context) (*sdk.Session, error) {
	session, err := p.Session()
	if err != nil {
		return nil, err
	}
	ctx, cancel := ensureTimeout(ctx, p.opts.Timeout)
	defer cancel()
	if err := session.Initialize(ctx); err != nil {
		return nil, err
	}
	return session, nil
}

// Agents returns an AgentsClient on the shared RequestClient.
func (p *Provider) Agents() (*sdk.AgentsClient, error) {
	rc, err := p.RequestClient()
	if err != nil {
		return nil, err
	}
	return sdk.NewAgentsClient(rc), nil
}

// Reports returns a ReportsClient on the shared RequestClient.
func (p *Provider) Reports() (*sdk.ReportsClient, error) {
	rc, err := p.RequestClient()
	if err != nil {
		return nil, err
	}
	return sdk.NewReportsClient(rc), nil
}

// Admin returns an AdminClient on the shared RequestClient.
func (p *Provider) Admin() (*sdk.AdminClient, error) {
	rc, err := p.RequestClient()
	if err != nil {
		return nil, err
	}
	return sdk.NewAdminClient(rc), nil
}

// WithTimeout bounds ctx by the configured request timeout unless it already
// carries a deadline.
func (p *Provider) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return ensureTimeout(ctx, p.opts.Timeout)
}

func ensureTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}

	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	return ctxWithTimeout, cancel
}
