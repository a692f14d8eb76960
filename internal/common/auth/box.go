// internal/common/auth/box.go
package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"box-metadata-workers/internal/common/config"
)

// NewBoxHTTPClient returns an *http.Client that authenticates every request to
// the Box API. A developer token takes precedence; otherwise the client
// credentials grant is used, with tokens cached and refreshed by oauth2.
func NewBoxHTTPClient(ctx context.Context, cfg config.BoxConfig) (*http.Client, error) {
	base := &http.Client{Timeout: config.GetDuration(cfg.Timeout)}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	if cfg.DeveloperToken != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.DeveloperToken,
			TokenType:   "Bearer",
		})
		return oauth2.NewClient(ctx, src), nil
	}

	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("box client credentials are not configured")
	}

	cc := ClientCredentials(cfg)
	return cc.Client(ctx), nil
}

// ClientCredentials builds the Box client-credentials grant configuration.
func ClientCredentials(cfg config.BoxConfig) *clientcredentials.Config {
	return &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
		EndpointParams: url.Values{
			"box_subject_type": {cfg.SubjectType},
			"box_subject_id":   {cfg.SubjectID},
		},
	}
}
