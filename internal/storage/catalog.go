package storage

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/valter-silva-au/supportbot/internal/core"
	"github.com/valter-silva-au/supportbot/pkg/models"
)

//go:embed catalog/default.yaml
var defaultCatalog []byte

// DefaultCatalogSource is reported by CatalogStore.Source when no catalog
// file is configured.
const DefaultCatalogSource = "embedded:default"

// CatalogStore loads the knowledge catalog, either from a YAML file or from
// the catalog compiled into the binary.
type CatalogStore interface {
	Load() ([]models.KnowledgeItem, error)
	Source() string
}

type fileCatalogStore struct {
	path string
}

// NewCatalogStore creates a CatalogStore for the catalog file at path. A
// relative path is resolved against basePath; an empty path selects the
// embedded default catalog.
func NewCatalogStore(basePath, path string) CatalogStore {
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(basePath, path)
	}
	return &fileCatalogStore{path: path}
}

func (s *fileCatalogStore) Source() string {
	if s.path == "" {
		return DefaultCatalogSource
	}
	return s.path
}

// Load parses the catalog. An empty catalog is an error wrapping
// core.ErrEmptyCatalog.
func (s *fileCatalogStore) Load() ([]models.KnowledgeItem, error) {
	data := defaultCatalog
	if s.path != "" {
		var err error
		data, err = os.ReadFile(s.path)
		if err != nil {
			return nil, fmt.Errorf("reading catalog: %w", err)
		}
	}
	return parseCatalog(data, s.Source())
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() ([]models.KnowledgeItem, error) {
	return parseCatalog(defaultCatalog, DefaultCatalogSource)
}

func parseCatalog(data []byte, source string) ([]models.KnowledgeItem, error) {
	var file models.CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", source, err)
	}
	if len(file.Items) == 0 {
		return nil, fmt.Errorf("loading catalog %s: %w", source, core.ErrEmptyCatalog)
	}
	return file.Items, nil
}
