package dropbox

import (
	"context"
)

const routeCreateFolder = "/files/create_folder_v2"

// FolderMetadata is the subset of Dropbox folder metadata the provisioner uses.
type FolderMetadata struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PathLower   string `json:"path_lower"`
	PathDisplay string `json:"path_display"`
}

type createFolderArg struct {
	Path       string `json:"path"`
	Autorename bool   `json:"autorename"`
}

type createFolderResult struct {
	Metadata FolderMetadata `json:"metadata"`
}

// CreateFolder creates the folder at the absolute Dropbox path (e.g.
// "/Proj1/A"). Autorename is off, so an existing entry at path yields an
// *APIError wrapping ErrConflict.
func (c *Client) CreateFolder(ctx context.Context, path string) (*FolderMetadata, error) {
	var res createFolderResult
	if err := c.RPC(ctx, routeCreateFolder, createFolderArg{Path: path}, &res); err != nil {
		return nil, err
	}

	return &res.Metadata, nil
}
