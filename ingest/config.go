package ingest

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// LoadSources parses a YAML document into a slice of SourceDescriptor,
// validating each before returning.
//
// Expected shape:
//
//	sources:
//	  - name: english-freq
//	    url: https://example.org/en-freq.txt
//	    format: frequency_list
//	    language: en
//	    is_idiom: false
func LoadSources(data []byte) ([]SourceDescriptor, error) {
	var doc struct {
		Sources []SourceDescriptor `yaml:"sources"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("ingest: parse source config: %w", err)
	}
	for _, d := range doc.Sources {
		if err := d.validate(); err != nil {
			return nil, err
		}
	}
	return doc.Sources, nil
}
