package kml

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bxu-infra/kml-dashboard/internal/logging"
)

// MIMEType is the registered media type for KML documents.
const MIMEType = "application/vnd.google-earth.kml+xml"

// Paths are relative to the public directory and use forward slashes.
const (
	Dir                    = "kml"
	BarangayBoundariesPath = "kml/butuan/bxu_brgy_boundary/bxu_brgy_boundary.kml"
	ZonesPath              = "kml/butuan/bxu_zones.kml"
	LandusePath            = "kml/landuse_KML.kml"
	RoadNetworksPath       = "kml/TNDG_ROADNETWORKS_KML.kml"
)

var ErrNotFound = errors.New("kml file not found")

func init() {
	_ = mime.AddExtensionType(".kml", MIMEType)
	_ = mime.AddExtensionType(".kmz", "application/vnd.google-earth.kmz")
}

// Catalog resolves KML files under a public directory and the public URLs they are served at.
type Catalog struct {
	publicDir string
	baseURL   string
}

func NewCatalog(publicDir, baseURL string) *Catalog {
	return &Catalog{
		publicDir: publicDir,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

// Root is the filesystem directory published at /kml.
func (c *Catalog) Root() string {
	return filepath.Join(c.publicDir, Dir)
}

// URL returns the public URL of a path relative to the public directory.
func (c *Catalog) URL(rel string) string {
	segs := strings.Split(strings.TrimLeft(path.Clean("/"+rel), "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return c.baseURL + "/" + strings.Join(segs, "/")
}

// List returns the public URLs of the .kml files directly inside the kml directory, sorted
// by file name. Hidden files and subdirectories are skipped. A directory that cannot be read
// yields an empty list.
func (c *Catalog) List(ctx context.Context) []string {
	entries, err := os.ReadDir(c.Root())
	if err != nil {
		logging.New(ctx).Warnf("kml_list", "cannot read %s: %v", c.Root(), err)
		return []string{}
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") || !isRegular(c.Root(), e) {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext != ".kml" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	urls := make([]string, 0, len(names))
	for _, n := range names {
		urls = append(urls, c.URL(Dir+"/"+n))
	}
	return urls
}

// Read returns the bytes of a file relative to the public directory. Missing files and
// directories yield ErrNotFound. Nothing is cached; every call hits the filesystem.
func (c *Catalog) Read(rel string) ([]byte, error) {
	full := filepath.Join(c.publicDir, filepath.FromSlash(rel))

	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat %s: %w", rel, err)
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}

	b, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	return b, nil
}

// isRegular follows symlinks so a linked .kml file still counts as a file.
func isRegular(dir string, e fs.DirEntry) bool {
	if e.Type().IsRegular() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, e.Name()))
	return err == nil && info.Mode().IsRegular()
}
