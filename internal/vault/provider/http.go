package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vidgate/internal/platform/config"
	dErrors "vidgate/pkg/domain-errors"
	"vidgate/pkg/platform/circuit"
	"vidgate/pkg/requestcontext"
)

// HTTPClient is the production provider client. It posts standard OAuth form
// bodies to the provider's token endpoint. A circuit breaker guards the
// endpoint so a provider outage fails fast instead of tying up every request
// in timeouts.
type HTTPClient struct {
	cfg     config.Provider
	http    *http.Client
	breaker *circuit.Breaker
}

func NewHTTP(cfg config.Provider) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		cfg:     cfg,
		http:    &http.Client{Timeout: timeout},
		breaker: circuit.New("oauth-provider",
			circuit.WithFailureThreshold(5),
			circuit.WithSuccessThreshold(2),
			circuit.WithCooldown(30*time.Second)),
	}
}

// AuthorizeURL builds the provider consent URL for the begin phase.
func (c *HTTPClient) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.cfg.ClientID)
	q.Set("redirect_uri", c.cfg.RedirectURL)
	q.Set("state", state)
	return c.cfg.AuthorizeURL + "?" + q.Encode()
}

func (c *HTTPClient) Exchange(ctx context.Context, code string) (*Tokens, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.cfg.RedirectURL)
	return c.tokenRequest(ctx, form)
}

func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return c.tokenRequest(ctx, form)
}

// tokenResponse is the provider's wire format.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (c *HTTPClient) tokenRequest(ctx context.Context, form url.Values) (*Tokens, error) {
	if c.breaker.IsOpen() {
		return nil, dErrors.New(dErrors.CodeUpstream, "provider circuit open")
	}

	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build provider request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, dErrors.Wrap(err, dErrors.CodeUpstream, "provider unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUpstream, "read provider response")
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		// Server-side trouble counts against the breaker; 4xx is a caller or
		// credential problem and does not.
		c.breaker.RecordFailure()
		return nil, dErrors.Newf(dErrors.CodeUpstream, "provider returned status %d", resp.StatusCode)
	}
	c.breaker.RecordSuccess()
	if resp.StatusCode != http.StatusOK {
		return nil, dErrors.Newf(dErrors.CodeUpstream, "provider returned status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUpstream, "malformed provider response")
	}
	if tr.AccessToken == "" || tr.ExpiresIn <= 0 {
		return nil, dErrors.New(dErrors.CodeUpstream, "provider response missing token or expiry")
	}

	return &Tokens{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    requestcontext.Now(ctx).Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}
