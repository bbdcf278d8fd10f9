package filetype

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type taxonomyFile struct {
	Categories []categoryEntry `yaml:"categories"`
}

type categoryEntry struct {
	Name         string   `yaml:"name"`
	BucketSuffix string   `yaml:"bucket_suffix"`
	MIMETypes    []string `yaml:"mime_types"`
	MaxSize      int64    `yaml:"max_size"`
	CatchAll     bool     `yaml:"catch_all"`
}

// LoadFile builds a registry from the defaults overlaid with the YAML table at
// path. An empty path returns the defaults.
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy file: %w", err)
	}
	return Parse(raw)
}

// Parse overlays a YAML category table onto the defaults. Entries with a known
// name replace that row in place; new names are inserted ahead of the
// catch-all so they take part in classification.
func Parse(raw []byte) (*Registry, error) {
	var doc taxonomyFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode taxonomy: %w", err)
	}

	table := Default().Descriptors()
	for _, entry := range doc.Categories {
		d := Descriptor{
			Category:     Category(strings.ToUpper(strings.TrimSpace(entry.Name))),
			BucketSuffix: entry.BucketSuffix,
			MIMETypes:    entry.MIMETypes,
			MaxSize:      entry.MaxSize,
			CatchAll:     entry.CatchAll,
		}
		table = overlay(table, d)
	}
	return NewRegistry(table)
}

func overlay(table []Descriptor, d Descriptor) []Descriptor {
	for i := range table {
		if table[i].Category == d.Category {
			if d.BucketSuffix == "" {
				d.BucketSuffix = table[i].BucketSuffix
			}
			if len(d.MIMETypes) == 0 {
				d.MIMETypes = table[i].MIMETypes
			}
			if d.MaxSize == 0 {
				d.MaxSize = table[i].MaxSize
			}
			d.CatchAll = d.CatchAll || table[i].CatchAll
			table[i] = d
			return table
		}
	}
	for i := range table {
		if table[i].AcceptsAll() {
			return append(table[:i], append([]Descriptor{d}, table[i:]...)...)
		}
	}
	return append(table, d)
}
