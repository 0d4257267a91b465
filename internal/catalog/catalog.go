// Package catalog loads the externally maintained product catalog and
// resolves product URLs against it through normalized link keys.
package catalog

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Record is one product row from the catalog. Records are read-only for the
// duration of a single check; the catalog is reloaded fresh each cycle.
type Record struct {
	Link        string `json:"link" yaml:"link"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Brand       string `json:"brand" yaml:"brand"`
	Price       string `json:"price" yaml:"price"`
	Category    string `json:"category" yaml:"category"`
	// Attributes carries free-form compatibility attributes keyed by name:
	// brake type, axle type, bottom-bracket standard, and the like.
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Source provides the full catalog contents. Read wholesale, not streamed.
type Source interface {
	Fetch(ctx context.Context) ([]Record, error)
}

// HTTPSource reads a JSON array of records from a URL.
type HTTPSource struct {
	url  string
	http *http.Client
}

// NewHTTPSource creates an HTTPSource for the given catalog URL.
func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		url: url,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// WithHTTPClient overrides the default http.Client.
func (s *HTTPSource) WithHTTPClient(hc *http.Client) *HTTPSource {
	s.http = hc
	return s
}

// Fetch downloads and decodes the catalog.
func (s *HTTPSource) Fetch(ctx context.Context) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: create request")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("catalog: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: read body")
	}

	var records []Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, eris.Wrap(err, "catalog: decode json")
	}
	return records, nil
}

// FileSource reads records from a local JSON or YAML file.
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource for the given path. The format is
// chosen by extension: .yaml/.yml parse as YAML, everything else as JSON.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Fetch reads and decodes the catalog file.
func (s *FileSource) Fetch(_ context.Context) ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read %s", s.path)
	}

	var records []Record
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, eris.Wrap(err, "catalog: decode yaml")
		}
	default:
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, eris.Wrap(err, "catalog: decode json")
		}
	}
	return records, nil
}

// Index resolves normalized link keys against the catalog source.
type Index struct {
	src Source
}

// NewIndex creates an Index over the given source. A nil source is a valid
// always-empty catalog.
func NewIndex(src Source) *Index {
	return &Index{src: src}
}

// Lookup reloads the catalog and returns the record whose normalized link
// matches key. A load failure degrades to a miss so the pipeline can fall
// through to scraping; the expected catalog size makes a linear scan fine.
func (ix *Index) Lookup(ctx context.Context, key string) (*Record, bool) {
	if ix == nil || ix.src == nil || key == "" {
		return nil, false
	}

	records, err := ix.src.Fetch(ctx)
	if err != nil {
		zap.L().Warn("catalog: load failed, degrading to empty catalog", zap.Error(err))
		return nil, false
	}

	for i := range records {
		if NormalizeKey(records[i].Link) == key {
			return &records[i], true
		}
	}
	return nil, false
}
