package sharepoint

import (
	"context"
	"fmt"
	"io"
	"sort"
)

// Session is a resolved site and library, ready for item operations.
type Session struct {
	Client   *Client
	Location Location
	Site     *Site
	Drive    Drive
	Out      io.Writer
}

// Open resolves the site and picks its first library, which is normally
// "Documents" / "Shared Documents".
func Open(ctx context.Context, c *Client, loc Location, out io.Writer) (*Session, error) {
	site, err := c.Site(ctx, loc)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "Site: %s (%s)\n", site.DisplayName, site.Name)

	drives, err := c.Drives(ctx, site.ID)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "Library: %s\n", drives[0].Name)
	return &Session{Client: c, Location: loc, Site: site, Drive: drives[0], Out: out}, nil
}

// List prints the folders and files of the URL's folder.
func (s *Session) List(ctx context.Context) error {
	items, err := s.Client.Children(ctx, s.Drive.ID, DriveRelativePath(s.Location.ItemPath, true))
	if err != nil {
		return err
	}
	RenderListing(s.Out, s.Location.ItemPath, items)
	return nil
}

// Download saves the URL's file into dir.
func (s *Session) Download(ctx context.Context, dir string) (string, error) {
	item, err := s.Client.Item(ctx, s.Drive.ID, DriveRelativePath(s.Location.ItemPath, false))
	if err != nil {
		return "", err
	}
	fmt.Fprintf(s.Out, "Downloading: %s\n", item.Name)
	path, err := s.Client.Download(ctx, item, dir)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(s.Out, "Downloaded to: %s\n", path)
	return path, nil
}

// Metadata prints the URL's item metadata.
func (s *Session) Metadata(ctx context.Context) (*Item, error) {
	item, err := s.Client.Item(ctx, s.Drive.ID, DriveRelativePath(s.Location.ItemPath, false))
	if err != nil {
		return nil, err
	}
	RenderMetadata(s.Out, item)
	return item, nil
}

// RenderListing prints folders then files, each sorted by name.
func RenderListing(w io.Writer, path string, items []Item) {
	fmt.Fprintf(w, "\nFolder: %s\n", path)
	fmt.Fprintf(w, "Items: %d\n\n", len(items))

	var folders, files []Item
	for _, it := range items {
		switch {
		case it.Folder != nil:
			folders = append(folders, it)
		case it.File != nil:
			files = append(files, it)
		}
	}
	byName := func(list []Item) {
		sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	}
	byName(folders)
	byName(files)

	if len(folders) > 0 {
		fmt.Fprintln(w, "Folders:")
		for _, f := range folders {
			fmt.Fprintf(w, "  [dir]  %s (%d items, %.1f MB)\n", f.Name, f.Folder.ChildCount, float64(f.Size)/(1024*1024))
		}
	}
	if len(files) > 0 {
		fmt.Fprintln(w, "\nFiles:")
		for _, f := range files {
			fmt.Fprintf(w, "  [file] %s (%.1f KB, modified: %s)\n", f.Name, float64(f.Size)/1024, dateOnly(f.LastModifiedDateTime))
		}
	}
}

// RenderMetadata prints one item's metadata.
func RenderMetadata(w io.Writer, item *Item) {
	kind := "File"
	if item.IsFolder() {
		kind = "Folder"
	}
	fmt.Fprintln(w, "\nMetadata:")
	fmt.Fprintf(w, "  Name: %s\n", item.Name)
	fmt.Fprintf(w, "  Type: %s\n", kind)
	fmt.Fprintf(w, "  Size: %.1f KB\n", float64(item.Size)/1024)
	fmt.Fprintf(w, "  Created: %s\n", dateOnly(item.CreatedDateTime))
	fmt.Fprintf(w, "  Modified: %s\n", dateOnly(item.LastModifiedDateTime))
	fmt.Fprintf(w, "  Created By: %s\n", displayName(item.CreatedBy))
	fmt.Fprintf(w, "  Modified By: %s\n", displayName(item.LastModifiedBy))
	fmt.Fprintf(w, "  Web URL: %s\n", orUnknown(item.WebURL))
	if item.IsFolder() {
		fmt.Fprintf(w, "  Child Count: %d\n", item.Folder.ChildCount)
	}
}

func dateOnly(ts string) string {
	if ts == "" {
		return "Unknown"
	}
	if len(ts) > 10 {
		return ts[:10]
	}
	return ts
}

func displayName(id *IdentitySet) string {
	if id == nil {
		return "Unknown"
	}
	return orUnknown(id.User.DisplayName)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
