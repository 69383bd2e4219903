package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/adamwoolhether/batchdl/batch"
)

// Manifest is a decoded batch manifest.
type Manifest struct {
	Dir   string          `yaml:"dir"`
	Items []batch.Request `yaml:"items"`
}

// Load reads the manifest at path. Relative paths inside it resolve
// against the manifest's directory.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("resolve manifest path: %w", err)
	}

	return Parse(bytes.NewReader(data), filepath.Dir(abs))
}

// Parse decodes a manifest from r. baseDir anchors a relative Dir and
// must be absolute.
func Parse(r io.Reader, baseDir string) (Manifest, error) {
	if !filepath.IsAbs(baseDir) {
		return Manifest{}, fmt.Errorf("base dir %q must be absolute", baseDir)
	}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}

	switch {
	case m.Dir == "":
		m.Dir = baseDir
	case !filepath.IsAbs(m.Dir):
		m.Dir = filepath.Join(baseDir, m.Dir)
	}

	return m, nil
}

// Requests returns the manifest items in order with every destination
// resolved. Items are not validated here; the batch reports invalid ones
// individually.
func (m Manifest) Requests() []batch.Request {
	reqs := make([]batch.Request, len(m.Items))
	for i, item := range m.Items {
		dest := item.DestinationPath
		if dest == "" {
			dest = nameFromURL(item.SourceURL)
		}
		if dest != "" && !filepath.IsAbs(dest) {
			dest = filepath.Join(m.Dir, dest)
		}

		reqs[i] = batch.Request{
			SourceURL:       item.SourceURL,
			DestinationPath: dest,
		}
	}

	return reqs
}

// nameFromURL returns the last path element of rawURL, or "" when it has
// none usable as a file name.
func nameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	name := path.Base(u.Path)
	switch name {
	case ".", "/", "..":
		return ""
	}

	return name
}
