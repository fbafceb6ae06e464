package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/commerce-assistant/internal/model"
	"github.com/capitalize-ai/commerce-assistant/pkg/logger"
)

// File names inside a tenant directory.
const (
	ProductsFile = "products.json"
	BusinessFile = "business.json"
)

// FileSource reads <dir>/<tenant>/products.json and business.json.
type FileSource struct {
	dir string
	log *logger.Logger
}

// NewFileSource creates a FileSource rooted at dir.
func NewFileSource(dir string, log *logger.Logger) *FileSource {
	if log == nil {
		log = logger.Nop()
	}
	return &FileSource{dir: dir, log: log.Named("catalog")}
}

func (s *FileSource) Name() string { return "file:" + s.dir }

// Dir returns the catalog root.
func (s *FileSource) Dir() string { return s.dir }

// Products reads and validates the tenant's products.json. The file holds
// either a JSON array or an object with a "products" array.
func (s *FileSource) Products(_ context.Context, tenantID string) ([]model.Product, Report, error) {
	path, err := s.path(tenantID, ProductsFile)
	if err != nil {
		return nil, Report{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Report{}, fmt.Errorf("read catalog: %w", err)
	}
	records, err := decodeRecords(data)
	if err != nil {
		return nil, Report{}, fmt.Errorf("decode %s: %w", path, err)
	}
	products, rep := Ingest(records, s.log.With(zap.String("tenant_id", tenantID)))
	return products, rep, nil
}

func decodeRecords(data []byte) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}
	var wrapped struct {
		Products []Record `json:"products"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Products, nil
}

// BusinessInfo reads business.json. A missing file yields the defaults.
func (s *FileSource) BusinessInfo(_ context.Context, tenantID string) (model.BusinessInfo, error) {
	path, err := s.path(tenantID, BusinessFile)
	if err != nil {
		return model.BusinessInfo{}, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.DefaultBusinessInfo(), nil
	}
	if err != nil {
		return model.BusinessInfo{}, fmt.Errorf("read business info: %w", err)
	}
	var info model.BusinessInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return model.BusinessInfo{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return info.WithDefaults(), nil
}

// ModTime is the modification time of the tenant's products file.
func (s *FileSource) ModTime(tenantID string) (time.Time, error) {
	path, err := s.path(tenantID, ProductsFile)
	if err != nil {
		return time.Time{}, err
	}
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}

// Tenants lists the tenant directories that carry a products file.
func (s *FileSource) Tenants() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.dir, e.Name(), ProductsFile)); err == nil {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *FileSource) path(tenantID, file string) (string, error) {
	if !ValidTenantID(tenantID) {
		return "", fmt.Errorf("invalid tenant id %q", tenantID)
	}
	return filepath.Join(s.dir, tenantID, file), nil
}

// ValidTenantID reports whether id is safe to use as a directory name.
func ValidTenantID(id string) bool {
	if id == "" || id == "." || id == ".." || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}
