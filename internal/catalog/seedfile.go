package catalog

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// seedFile is the on-disk shape of a category seed file:
//
//	[[category]]
//	name = "Fuel"
//	parent = "Transport"
//	keywords = ["petrol"]
//	merchant_patterns = ["adnoc"]
type seedFile struct {
	Categories []Seed `toml:"category"`
}

// LoadSeedFile reads and validates a TOML category seed file.
func LoadSeedFile(path string) ([]Seed, error) {
	var file seedFile
	meta, err := toml.DecodeFile(path, &file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	return finishSeeds(file, meta)
}

// ParseSeeds decodes seeds from TOML text.
func ParseSeeds(data string) ([]Seed, error) {
	var file seedFile
	meta, err := toml.Decode(data, &file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse seeds: %w", err)
	}
	return finishSeeds(file, meta)
}

func finishSeeds(file seedFile, meta toml.MetaData) ([]Seed, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown keys in seed file: %v", undecoded)
	}
	if err := ValidateSeeds(file.Categories); err != nil {
		return nil, err
	}
	return file.Categories, nil
}
