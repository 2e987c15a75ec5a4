package utils

import (
	"errors"
	"fmt"
	"os"

	"github.com/netsampler/nfrelay/decoders/netflow"

	"gopkg.in/yaml.v3"
)

// DefaultFilterElements forwards records carrying a post-NAT address.
var DefaultFilterElements = []string{
	"postNATSourceIPv4Address",
	"postNATDestinationIPv4Address",
	"postNATSourceIPv6Address",
	"postNATDestinationIPv6Address",
}

var ErrEmptyFilter = errors.New("filter has no elements")

// Filter keeps the records carrying a value for at least one of its elements.
type Filter struct {
	elements []netflow.Element
}

// NewFilter resolves element names (or numeric ids) once.
func NewFilter(names []string) (*Filter, error) {
	if len(names) == 0 {
		return nil, ErrEmptyFilter
	}
	f := &Filter{}
	seen := make(map[netflow.Element]bool, len(names))
	for _, name := range names {
		element, err := netflow.LookupElement(name)
		if err != nil {
			return nil, err
		}
		if seen[element] {
			continue
		}
		seen[element] = true
		f.elements = append(f.elements, element)
	}
	return f, nil
}

type filterFile struct {
	Elements []string `yaml:"elements"`
}

// LoadFilterFile reads element names from a YAML document with an `elements` list.
func LoadFilterFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read filter file: %w", err)
	}
	var file filterFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse filter file: %w", err)
	}
	return file.Elements, nil
}

// Elements returns the allow-list in resolution order.
func (f *Filter) Elements() []netflow.Element {
	return append([]netflow.Element(nil), f.elements...)
}

// IsForwardable reports whether the record has a non-empty value for an allowed element.
func (f *Filter) IsForwardable(record netflow.Record) bool {
	for _, element := range f.elements {
		if record.Has(element) {
			return true
		}
	}
	return false
}

// Apply returns the forwardable records, preserving their order.
func (f *Filter) Apply(records []netflow.Record) []netflow.Record {
	var forwardable []netflow.Record
	for _, record := range records {
		if f.IsForwardable(record) {
			forwardable = append(forwardable, record)
		}
	}
	return forwardable
}
