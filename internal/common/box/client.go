// Package box is a small client for the parts of the Box API used to apply
// file metadata.
package box

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	commonhttp "box-metadata-workers/internal/common/http"
)

const DefaultBaseURL = "https://api.box.com/2.0"

type Client struct {
	baseURL    string
	httpClient *commonhttp.Client
}

// NewClient creates a Box client. httpClient must already carry the
// Authorization header (see auth.NewBoxHTTPClient).
func NewClient(baseURL string, httpClient *commonhttp.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// GetCurrentUser returns the account the client is authenticated as.
func (c *Client) GetCurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.get(ctx, "/users/me", &user); err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return &user, nil
}

func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	var file File
	path := fmt.Sprintf("/files/%s?fields=id,name", url.PathEscape(fileID))
	if err := c.get(ctx, path, &file); err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", fileID, err)
	}
	return &file, nil
}

// CreateMetadata creates a metadata instance on a file. A conflict is
// returned as an *APIError for which IsConflict is true.
func (c *Client) CreateMetadata(ctx context.Context, fileID, scope, templateKey string, payload map[string]interface{}) (map[string]interface{}, error) {
	resp, err := c.httpClient.SendJSON(ctx, http.MethodPost, c.metadataURL(fileID, scope, templateKey), jsonContentType, payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp.StatusCode, resp.Body)
	}
	return decodeInstance(resp.Body)
}

// UpdateMetadata applies JSON-Patch operations to an existing instance.
func (c *Client) UpdateMetadata(ctx context.Context, fileID, scope, templateKey string, ops []PatchOperation) (map[string]interface{}, error) {
	resp, err := c.httpClient.SendJSON(ctx, http.MethodPut, c.metadataURL(fileID, scope, templateKey), jsonPatchContentType, ops)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp.StatusCode, resp.Body)
	}
	return decodeInstance(resp.Body)
}

func (c *Client) GetTemplateSchema(ctx context.Context, scope, templateKey string) (*TemplateSchema, error) {
	var schema TemplateSchema
	path := fmt.Sprintf("/metadata_templates/%s/%s/schema", url.PathEscape(scope), url.PathEscape(templateKey))
	if err := c.get(ctx, path, &schema); err != nil {
		return nil, fmt.Errorf("failed to get template schema %s/%s: %w", scope, templateKey, err)
	}
	return &schema, nil
}

func (c *Client) metadataURL(fileID, scope, templateKey string) string {
	return fmt.Sprintf("%s/files/%s/metadata/%s/%s",
		c.baseURL, url.PathEscape(fileID), url.PathEscape(scope), url.PathEscape(templateKey))
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	resp, err := c.httpClient.SendJSON(ctx, http.MethodGet, c.baseURL+path, "", nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return parseAPIError(resp.StatusCode, resp.Body)
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeInstance(body []byte) (map[string]interface{}, error) {
	instance := map[string]interface{}{}
	if len(body) == 0 {
		return instance, nil
	}
	if err := json.Unmarshal(body, &instance); err != nil {
		return nil, fmt.Errorf("failed to decode metadata instance: %w", err)
	}
	return instance, nil
}
