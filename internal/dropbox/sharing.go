package dropbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

const (
	routeCreateSharedLink = "/sharing/create_shared_link_with_settings"
	routeListSharedLinks  = "/sharing/list_shared_links"

	tagLinkAlreadyExists = "shared_link_already_exists"
)

// SharedLink is a provider-issued URL for a file or folder.
type SharedLink struct {
	URL       string `json:"url"`
	Name      string `json:"name"`
	PathLower string `json:"path_lower"`
}

type pathArg struct {
	Path string `json:"path"`
}

type listSharedLinksArg struct {
	Path       string `json:"path"`
	DirectOnly bool   `json:"direct_only"`
}

type listSharedLinksResult struct {
	Links []SharedLink `json:"links"`
}

// linkExistsDetail is the "error" union of a shared_link_already_exists
// response. Metadata is optional; Dropbox omits it for some link types.
type linkExistsDetail struct {
	Existing *struct {
		Metadata *SharedLink `json:"metadata"`
	} `json:"shared_link_already_exists"`
}

// ErrNoSharedLink is returned when Dropbox reports an existing link for a
// path but then lists none.
var ErrNoSharedLink = errors.New("dropbox: shared link reported but not found")

// CreateSharedLink creates a shared link for path and returns its URL. If a
// link already exists, the existing URL is returned instead of an error.
func (c *Client) CreateSharedLink(ctx context.Context, path string) (string, error) {
	var link SharedLink

	err := c.RPC(ctx, routeCreateSharedLink, pathArg{Path: path}, &link)
	if err == nil {
		return link.URL, nil
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || !errors.Is(err, ErrConflict) || !apiErr.HasSummaryPrefix(tagLinkAlreadyExists) {
		return "", err
	}

	if url := existingLinkURL(apiErr.Detail); url != "" {
		c.logger.Info("shared link already exists", slog.String("path", path))
		return url, nil
	}

	links, listErr := c.ListSharedLinks(ctx, path)
	if listErr != nil {
		return "", fmt.Errorf("dropbox: looking up existing shared link: %w", listErr)
	}

	if len(links) == 0 {
		return "", ErrNoSharedLink
	}

	c.logger.Info("shared link already exists", slog.String("path", path))

	return links[0].URL, nil
}

// ListSharedLinks returns the links created directly on path.
func (c *Client) ListSharedLinks(ctx context.Context, path string) ([]SharedLink, error) {
	var res listSharedLinksResult
	if err := c.RPC(ctx, routeListSharedLinks, listSharedLinksArg{Path: path, DirectOnly: true}, &res); err != nil {
		return nil, err
	}

	return res.Links, nil
}

func existingLinkURL(detail json.RawMessage) string {
	if len(detail) == 0 {
		return ""
	}

	var d linkExistsDetail
	if json.Unmarshal(detail, &d) != nil || d.Existing == nil || d.Existing.Metadata == nil {
		return ""
	}

	return d.Existing.Metadata.URL
}
