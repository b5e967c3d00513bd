package pages

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// BuildDir is the Vite output directory under the public directory, served at /build.
	BuildDir = "build"

	// ViteEntry is the manifest key of the client entry point.
	ViteEntry = "resources/js/app.ts"

	manifestFile = "manifest.json"
)

type manifestChunk struct {
	File    string   `json:"file"`
	CSS     []string `json:"css"`
	Imports []string `json:"imports"`
}

// Assets are the public URLs the HTML shell must load for an entry point.
type Assets struct {
	Scripts []string
	Styles  []string
}

// LoadAssets resolves entry through <buildDir>/manifest.json. Stylesheets of statically
// imported chunks are included, in import order, after the entry's own.
func LoadAssets(buildDir, entry string) (Assets, error) {
	raw, err := os.ReadFile(filepath.Join(buildDir, manifestFile))
	if err != nil {
		return Assets{}, fmt.Errorf("read vite manifest: %w", err)
	}

	var manifest map[string]manifestChunk
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return Assets{}, fmt.Errorf("decode vite manifest: %w", err)
	}

	chunk, ok := manifest[entry]
	if !ok || chunk.File == "" {
		return Assets{}, fmt.Errorf("vite manifest has no entry %q", entry)
	}

	out := Assets{Scripts: []string{assetURL(chunk.File)}}
	seenCSS := map[string]bool{}
	visited := map[string]bool{entry: true}

	var collect func(c manifestChunk)
	collect = func(c manifestChunk) {
		for _, css := range c.CSS {
			if !seenCSS[css] {
				seenCSS[css] = true
				out.Styles = append(out.Styles, assetURL(css))
			}
		}
		for _, imp := range c.Imports {
			if visited[imp] {
				continue
			}
			visited[imp] = true
			if dep, ok := manifest[imp]; ok {
				collect(dep)
			}
		}
	}
	collect(chunk)

	return out, nil
}

func assetURL(file string) string {
	return "/" + BuildDir + "/" + file
}
