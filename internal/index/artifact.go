package index

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Artifact file name prefixes; the tenant id is used as the extension.
const (
	embeddingsFile = "rag_product_embeddings"
	vectorizerFile = "tfidf_vectorizer"
)

// ErrNoArtifact is returned by Load when the artifact files do not exist.
var ErrNoArtifact = errors.New("index artifact not found")

// Paths returns the embeddings and vectorizer file paths for a tenant.
func Paths(dir, tenantID string) (embeddings, vectorizer string) {
	return filepath.Join(dir, embeddingsFile+"."+tenantID),
		filepath.Join(dir, vectorizerFile+"."+tenantID)
}

type embeddingsArtifact struct {
	Documents []Document
	Matrix    []Vector
	BuiltAt   time.Time
	Source    string
}

// Save writes the index to dir as two gob files. Each file is written to a
// temporary name first and renamed into place.
func (ix *Index) Save(dir, tenantID string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create artifact dir: %w", err)
	}
	embPath, vecPath := Paths(dir, tenantID)

	emb := embeddingsArtifact{Documents: ix.docs, Matrix: ix.matrix, BuiltAt: ix.builtAt, Source: ix.source}
	if err := writeGob(embPath, emb); err != nil {
		return fmt.Errorf("failed to save embeddings: %w", err)
	}
	if err := writeGob(vecPath, ix.vec); err != nil {
		return fmt.Errorf("failed to save vectorizer: %w", err)
	}
	return nil
}

// Load reads an index previously written by Save.
func Load(dir, tenantID string) (*Index, error) {
	embPath, vecPath := Paths(dir, tenantID)
	for _, p := range []string{embPath, vecPath} {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoArtifact
		}
	}

	var emb embeddingsArtifact
	if err := readGob(embPath, &emb); err != nil {
		return nil, fmt.Errorf("failed to load embeddings: %w", err)
	}
	var vec Vectorizer
	if err := readGob(vecPath, &vec); err != nil {
		return nil, fmt.Errorf("failed to load vectorizer: %w", err)
	}
	return newIndex(emb.Documents, &vec, emb.Matrix, emb.BuiltAt, emb.Source)
}

func writeGob(path string, v any) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	if err = gob.NewEncoder(tmp).Encode(v); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func readGob(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(v)
}
