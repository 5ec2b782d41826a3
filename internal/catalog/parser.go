package catalog

// Package catalog provides catalog.yaml parsing functionality.

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type CatalogFile struct {
	Store    StoreConfig     `yaml:"store"`
	Products []ProductConfig `yaml:"products"`
}

type StoreConfig struct {
	Name     string `yaml:"name"`
	Currency string `yaml:"currency"`
}

type ProductConfig struct {
	Slug       string         `yaml:"slug"`
	Name       string         `yaml:"name"`
	PriceCents int64          `yaml:"price_cents"`
	Images     []string       `yaml:"images"`
	Stock      map[string]int `yaml:"stock"`
	Active     bool           `yaml:"active"`
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(content []byte) (*CatalogFile, error) {
	var file CatalogFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &file, nil
}

func (p *Parser) ParseFile(path string) (*CatalogFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return p.Parse(content)
}
