// Package proto defines the find request and response shared by the HTTP
// API, the RPC endpoint and the CLI's remote mode.
package proto

// FindMethod is the RPC method name served by the finder.
const FindMethod = "FinderService.Find"

// FindRequest asks for the most frequent words of Wordstream in Matrix.
// Strategy is optional; the server default applies when empty.
type FindRequest struct {
	Matrix     []string `json:"matrix"`
	Wordstream []string `json:"wordstream"`
	Strategy   string   `json:"strategy,omitempty"`
}

// FindResponse lists up to ten words, most frequently found first.
type FindResponse struct {
	Words    []string `json:"words"`
	Strategy string   `json:"strategy"`
}
