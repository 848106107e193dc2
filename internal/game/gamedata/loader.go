package gamedata

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk shape of the catalog header file.
type catalogFile struct {
	DamageTypes []string `yaml:"damage_types"`
	Stats       []string `yaml:"stats"`
}

// Load reads the catalog header at catalogPath and every item and ability
// definition under itemsDir and abilitiesDir, validating each against the
// catalog and cross-checking references.
//
// Precondition: all three paths must be readable.
// Postcondition: Returns a fully populated Catalog, or the first error encountered.
func Load(catalogPath, itemsDir, abilitiesDir string) (*Catalog, error) {
	var hdr catalogFile
	if err := decodeFile(catalogPath, &hdr); err != nil {
		return nil, err
	}
	cat, err := NewCatalog(hdr.DamageTypes, hdr.Stats)
	if err != nil {
		return nil, fmt.Errorf("loading catalog %q: %w", catalogPath, err)
	}

	var (
		items     []*ItemDef
		abilities []*AbilityDef
	)
	var g errgroup.Group
	g.Go(func() error {
		var err error
		items, err = loadDir[ItemDef](itemsDir)
		return err
	})
	g.Go(func() error {
		var err error
		abilities, err = loadDir[AbilityDef](abilitiesDir)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, it := range items {
		if err := it.Validate(cat); err != nil {
			return nil, err
		}
		cat.RegisterItem(it)
	}
	for _, ab := range abilities {
		if err := ab.Validate(cat); err != nil {
			return nil, err
		}
		cat.RegisterAbility(ab)
	}
	if err := cat.CrossValidate(); err != nil {
		return nil, fmt.Errorf("cross-validating game data: %w", err)
	}
	return cat, nil
}

// loadDir decodes every *.yaml / *.yml file in dir as a T, in lexicographic order.
func loadDir[T any](dir string) ([]*T, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading dir %q: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	out := make([]*T, 0, len(paths))
	for _, path := range paths {
		var v T
		if err := decodeFile(path, &v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, nil
}

func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %q: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("parsing %q: %w", path, err)
	}
	return nil
}
