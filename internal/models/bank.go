package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Facet codes for the Likert item bank. Seven entrepreneurial facets plus
// Grit and the Attention facet (which holds the two validity-check items).
const (
	FacetInnovation    = "innovation"
	FacetRiskTolerance = "risk_tolerance"
	FacetProactiveness = "proactiveness"
	FacetAdaptability  = "adaptability"
	FacetSelfEfficacy  = "self_efficacy"
	FacetOpportunity   = "opportunity_recognition"
	FacetAutonomy      = "autonomy"
	FacetGrit          = "grit"
	FacetAttention     = "attention"
)

// EntrepreneurialFacets are the facets that contribute to the global index.
// Grit and Attention are scored separately.
var EntrepreneurialFacets = []string{
	FacetInnovation,
	FacetRiskTolerance,
	FacetProactiveness,
	FacetAdaptability,
	FacetSelfEfficacy,
	FacetOpportunity,
	FacetAutonomy,
}

// Item is a single Likert questionnaire item from the YAML bank.
type Item struct {
	ID      string `yaml:"id"`
	Facet   string `yaml:"facet"`
	Text    string `yaml:"text"`
	Reverse bool   `yaml:"reverse"`
}

// ItemBank holds the full questionnaire plus the designated validity items.
type ItemBank struct {
	Items             []Item `yaml:"items"`
	AttentionItemID   string `yaml:"attention_item"`
	InfrequencyItemID string `yaml:"infrequency_item"`
}

// LoadItemBank reads and parses the items YAML file and validates its shape.
func LoadItemBank(path string) (*ItemBank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read item bank file: %w", err)
	}

	var bank ItemBank
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item bank YAML: %w", err)
	}

	if err := bank.Validate(); err != nil {
		return nil, fmt.Errorf("invalid item bank: %w", err)
	}

	return &bank, nil
}

// Validate checks facet codes, duplicate ids and the designated validity items.
func (b *ItemBank) Validate() error {
	known := map[string]bool{FacetGrit: true, FacetAttention: true}
	for _, f := range EntrepreneurialFacets {
		known[f] = true
	}

	seen := make(map[string]bool, len(b.Items))
	for _, item := range b.Items {
		if item.ID == "" {
			return fmt.Errorf("item with empty id")
		}
		if seen[item.ID] {
			return fmt.Errorf("duplicate item id %q", item.ID)
		}
		seen[item.ID] = true
		if !known[item.Facet] {
			return fmt.Errorf("item %q has unknown facet %q", item.ID, item.Facet)
		}
	}

	if b.AttentionItemID != "" && !seen[b.AttentionItemID] {
		return fmt.Errorf("attention item %q not in bank", b.AttentionItemID)
	}
	if b.InfrequencyItemID != "" && !seen[b.InfrequencyItemID] {
		return fmt.Errorf("infrequency item %q not in bank", b.InfrequencyItemID)
	}

	return nil
}

// Size returns the number of items in the bank.
func (b *ItemBank) Size() int {
	return len(b.Items)
}

// ItemByID looks an item up by id, returning nil when absent.
func (b *ItemBank) ItemByID(id string) *Item {
	for i := range b.Items {
		if b.Items[i].ID == id {
			return &b.Items[i]
		}
	}
	return nil
}
