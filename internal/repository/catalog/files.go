// Package catalog loads and saves the offline-built catalog artifacts: a
// metadata JSON file and a raw little-endian float32 vectors file, aligned by
// position. The file pair is produced by cmd/indexer and read at startup.
package catalog

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/zoomfind/prodex/internal/domain"
	domcat "github.com/zoomfind/prodex/internal/domain/catalog"
)

// productDTO is the on-disk metadata record.
type productDTO struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Price    json.Number       `json:"price"`
	Category string            `json:"category"`
	Specs    map[string]string `json:"specs,omitempty"`
}

// Load reads the metadata and vectors files and assembles the product set.
// Every vector must have dimension dim; the two files must agree on count.
func Load(metaPath, vectorsPath string, dim int) ([]domcat.Product, error) {
	metaData, err := os.ReadFile(filepath.Clean(metaPath))
	if err != nil {
		return nil, fmt.Errorf("read metadata %s: %w", metaPath, err)
	}

	var dtos []productDTO
	if err := json.Unmarshal(metaData, &dtos); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}

	vecData, err := os.ReadFile(filepath.Clean(vectorsPath))
	if err != nil {
		return nil, fmt.Errorf("read vectors %s: %w", vectorsPath, err)
	}

	want := len(dtos) * dim * 4
	if len(vecData) != want {
		return nil, fmt.Errorf(
			"vectors file holds %d bytes, %d products at dimension %d need %d: %w",
			len(vecData), len(dtos), dim, want, domain.ErrDimensionMismatch)
	}

	products := make([]domcat.Product, len(dtos))
	for i, d := range dtos {
		vec := make([]float32, dim)
		off := i * dim * 4
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(vecData[off+j*4:]))
		}
		products[i] = domcat.New(d.ID, d.Title, d.Price.String(), d.Category, d.Specs, vec)
	}

	return products, nil
}

// Save writes the metadata and vectors file pair for the given products.
func Save(metaPath, vectorsPath string, products []domcat.Product) error {
	dtos := make([]productDTO, len(products))
	var dim int
	for i := range products {
		p := &products[i]
		dtos[i] = productDTO{
			ID:       p.ID(),
			Title:    p.Title(),
			Price:    json.Number(p.Price()),
			Category: p.Category(),
			Specs:    p.Specs(),
		}
		if i == 0 {
			dim = len(p.Vector())
		} else if len(p.Vector()) != dim {
			return fmt.Errorf("product %q has dimension %d, expected %d: %w",
				p.ID(), len(p.Vector()), dim, domain.ErrDimensionMismatch)
		}
	}

	metaData, err := json.MarshalIndent(dtos, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	vecData := make([]byte, len(products)*dim*4)
	for i := range products {
		off := i * dim * 4
		for j, f := range products[i].Vector() {
			binary.LittleEndian.PutUint32(vecData[off+j*4:], math.Float32bits(f))
		}
	}

	if err := os.MkdirAll(filepath.Dir(metaPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(metaPath, metaData, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := os.WriteFile(vectorsPath, vecData, 0o644); err != nil {
		return fmt.Errorf("write vectors: %w", err)
	}
	return nil
}
