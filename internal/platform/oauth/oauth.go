// Package oauth talks to external identity providers' introspection
// endpoints. Token verification is fully delegated: we never validate
// provider tokens locally.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Identity is the subset of provider profile data the auth workflows need.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

type Provider interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

type GoogleProvider struct {
	tokenInfoURL string
	client       *http.Client
}

func NewGoogleProvider(tokenInfoURL string, timeout time.Duration) *GoogleProvider {
	return &GoogleProvider{
		tokenInfoURL: tokenInfoURL,
		client:       newHTTPClient(timeout),
	}
}

func (p *GoogleProvider) Verify(ctx context.Context, idToken string) (*Identity, error) {
	endpoint := p.tokenInfoURL + "?id_token=" + url.QueryEscape(idToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google tokeninfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google tokeninfo returned status %d", resp.StatusCode)
	}

	var payload struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("google tokeninfo decode failed: %w", err)
	}
	if payload.Email == "" {
		return nil, fmt.Errorf("google tokeninfo response missing email")
	}

	return &Identity{Subject: payload.Sub, Email: payload.Email, Name: payload.Name}, nil
}

type FacebookProvider struct {
	graphURL string
	client   *http.Client
}

func NewFacebookProvider(graphURL string, timeout time.Duration) *FacebookProvider {
	return &FacebookProvider{
		graphURL: graphURL,
		client:   newHTTPClient(timeout),
	}
}

func (p *FacebookProvider) Verify(ctx context.Context, accessToken string) (*Identity, error) {
	endpoint := p.graphURL + "?fields=id,name,email&access_token=" + url.QueryEscape(accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("facebook graph request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("facebook graph returned status %d", resp.StatusCode)
	}

	var payload struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("facebook graph decode failed: %w", err)
	}
	if payload.Email == "" {
		return nil, fmt.Errorf("facebook graph response missing email")
	}

	return &Identity{Subject: payload.ID, Email: payload.Email, Name: payload.Name}, nil
}
