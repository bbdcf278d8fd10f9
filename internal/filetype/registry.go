package filetype

import (
	"fmt"
	"slices"
	"strings"
)

// Wildcard is the MIME marker that accepts every type.
const Wildcard = "*/*"

// Category names a validation policy, e.g. IMAGE or PDF.
type Category string

const (
	Song     Category = "SONG"
	Image    Category = "IMAGE"
	Photo    Category = "PHOTO"
	Video    Category = "VIDEO"
	PDF      Category = "PDF"
	Document Category = "DOCUMENT"
	Archive  Category = "ARCHIVE"
	File     Category = "FILE"
)

// Descriptor is one row of the category table.
type Descriptor struct {
	Category     Category
	BucketSuffix string
	MIMETypes    []string
	MaxSize      int64
	CatchAll     bool
}

// AcceptsAll reports whether the descriptor admits every MIME type.
func (d Descriptor) AcceptsAll() bool {
	return d.CatchAll || slices.Contains(d.MIMETypes, Wildcard)
}

// IsAllowed reports whether mimeType passes the descriptor's allowed set.
// Matching is case-insensitive and exact.
func IsAllowed(d Descriptor, mimeType string) bool {
	if d.AcceptsAll() {
		return true
	}
	for _, allowed := range d.MIMETypes {
		if strings.EqualFold(allowed, mimeType) {
			return true
		}
	}
	return false
}

// MaxSize returns the byte ceiling for d.
func MaxSize(d Descriptor) int64 {
	return d.MaxSize
}

// Registry is an immutable, ordered category table. Order is classification priority.
type Registry struct {
	descriptors []Descriptor
	index       map[Category]int
}

// NewRegistry validates and freezes the given descriptors.
func NewRegistry(descriptors []Descriptor) (*Registry, error) {
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("registry requires at least one category")
	}
	r := &Registry{
		descriptors: make([]Descriptor, 0, len(descriptors)),
		index:       make(map[Category]int, len(descriptors)),
	}
	for _, d := range descriptors {
		d.Category = Category(strings.ToUpper(strings.TrimSpace(string(d.Category))))
		if err := validateDescriptor(d); err != nil {
			return nil, err
		}
		if _, dup := r.index[d.Category]; dup {
			return nil, fmt.Errorf("duplicate category %s", d.Category)
		}
		d.MIMETypes = slices.Clone(d.MIMETypes)
		r.index[d.Category] = len(r.descriptors)
		r.descriptors = append(r.descriptors, d)
	}
	return r, nil
}

func validateDescriptor(d Descriptor) error {
	if d.Category == "" {
		return fmt.Errorf("category name required")
	}
	if d.BucketSuffix == "" {
		return fmt.Errorf("category %s: bucket suffix required", d.Category)
	}
	if d.MaxSize <= 0 {
		return fmt.Errorf("category %s: max size must be positive", d.Category)
	}
	if d.CatchAll {
		return nil
	}
	if len(d.MIMETypes) == 0 {
		return fmt.Errorf("category %s: allowed MIME types required", d.Category)
	}
	if slices.Contains(d.MIMETypes, Wildcard) {
		return fmt.Errorf("category %s: wildcard only allowed on the catch-all category", d.Category)
	}
	return nil
}

// Lookup resolves a category by name, case-insensitively.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	i, ok := r.index[Category(strings.ToUpper(strings.TrimSpace(name)))]
	if !ok {
		return Descriptor{}, false
	}
	return r.clone(i), true
}

// Classify returns the first descriptor, in priority order, whose allowed set
// contains mimeType. A wildcard category matches anything it is reached for.
func (r *Registry) Classify(mimeType string) (Descriptor, bool) {
	for i, d := range r.descriptors {
		if d.AcceptsAll() {
			return r.clone(i), true
		}
		for _, allowed := range d.MIMETypes {
			if strings.EqualFold(allowed, mimeType) {
				return r.clone(i), true
			}
		}
	}
	return Descriptor{}, false
}

// Descriptors returns a copy of the table in priority order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, len(r.descriptors))
	for i := range r.descriptors {
		out[i] = r.clone(i)
	}
	return out
}

func (r *Registry) clone(i int) Descriptor {
	d := r.descriptors[i]
	d.MIMETypes = slices.Clone(d.MIMETypes)
	return d
}
