// Package sharepoint reads SharePoint document libraries through Microsoft
// Graph, authenticating with the Azure CLI's cached login.
package sharepoint

import (
	"fmt"
	"net/url"
	"strings"
)

// Location is a SharePoint URL split into the parts Graph needs.
type Location struct {
	Host     string
	SitePath string // e.g. /sites/Team
	ItemPath string // library-rooted, e.g. /Shared Documents/specs/a.docx
}

// ParseURL splits a SharePoint URL. Browser links of the form
// .../AllItems.aspx?id=/sites/Team/Library/folder carry the real location in
// the id parameter, which then takes precedence over the path.
func ParseURL(raw string) (Location, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Location{}, fmt.Errorf("invalid SharePoint URL: %w", err)
	}
	if u.Host == "" {
		return Location{}, fmt.Errorf("invalid SharePoint URL %q: missing host", raw)
	}

	loc := Location{Host: u.Host, ItemPath: u.Path}
	if _, rest, ok := strings.Cut(u.Path, "/sites/"); ok {
		site, item, hasItem := strings.Cut(rest, "/")
		loc.SitePath = "/sites/" + site
		loc.ItemPath = ""
		if hasItem {
			loc.ItemPath = "/" + item
		}
	}

	if id := u.Query().Get("id"); strings.HasPrefix(id, "/sites/") {
		parts := strings.SplitN(id, "/", 5)
		if len(parts) >= 4 {
			loc.SitePath = "/" + parts[1] + "/" + parts[2]
			loc.ItemPath = "/" + strings.Join(parts[3:], "/")
		}
	}
	return loc, nil
}

// DriveRelativePath drops the library segment from an item path, yielding
// the path relative to the drive root. For a folder, a path naming only the
// library is the root (""); for a file it is kept whole.
func DriveRelativePath(itemPath string, folder bool) string {
	trimmed := strings.Trim(itemPath, "/")
	_, rest, ok := strings.Cut(trimmed, "/")
	if ok {
		return rest
	}
	if folder {
		return ""
	}
	return trimmed
}

// escapePath escapes each segment of a drive path for use in a Graph URL.
func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
