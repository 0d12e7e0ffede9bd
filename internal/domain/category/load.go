package category

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// taxonomyFile is the YAML shape of the categories file.
type taxonomyFile struct {
	Categories []Category `yaml:"categories"`
}

// LoadFile reads the category taxonomy from a YAML file.
func LoadFile(path string) ([]Category, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read categories %s: %w", path, err)
	}
	var tf taxonomyFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse categories: %w", err)
	}
	if len(tf.Categories) == 0 {
		return nil, fmt.Errorf("categories file %s holds no categories", path)
	}
	return tf.Categories, nil
}
