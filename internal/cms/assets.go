// Package cms builds links into the Directus instance that stores event
// images and organizer logos.
package cms

import (
	"net/url"
	"strconv"
	"strings"
)

// AssetOptions are Directus image transformations. Zero values are omitted.
type AssetOptions struct {
	Width   int
	Height  int
	Fit     string
	Quality int
	Format  string
}

// AssetURL returns base/assets/{fileID} with the transformation query.
// An empty fileID yields "".
func AssetURL(base, fileID string, opts AssetOptions) string {
	if fileID == "" {
		return ""
	}

	u := strings.TrimRight(base, "/") + "/assets/" + url.PathEscape(fileID)

	q := url.Values{}
	if opts.Width > 0 {
		q.Set("width", strconv.Itoa(opts.Width))
	}
	if opts.Height > 0 {
		q.Set("height", strconv.Itoa(opts.Height))
	}
	if opts.Fit != "" {
		q.Set("fit", opts.Fit)
	}
	if opts.Quality > 0 {
		q.Set("quality", strconv.Itoa(opts.Quality))
	}
	if opts.Format != "" {
		q.Set("format", opts.Format)
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}
