/*
Package factory provides JSON to Go article catalog conversion.

PURPOSE:
  Converts JSON catalog definitions into stock.ArticleInput values so that
  a catalog can be seeded or replaced without code changes. The same
  format is used to export the current catalog.

JSON SCHEMA:
  {
    "articles": [
      {"name": "Coca Cola 0.25", "code": "001", "min_stock": 24},
      {"name": "Kava", "sifra": "101", "min_stock": "2.5"}
    ]
  }

  "sifra" is accepted as an alias of "code". "min_stock" may be a number
  or a numeric string; when absent the engine default applies.

USAGE:
  f := factory.NewCatalogFactory()
  defs, err := f.ParseCatalog(jsonBytes)
  articles, err := catalog.Seed(ctx, defs)

SEE ALSO:
  - stock/catalog.go: Catalog.Seed and validation
  - cmd/server/main.go: "seed" command
*/
package factory

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/warp/stock-engine/stock"
)

//go:embed default_catalog.json
var defaultCatalog []byte

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// CatalogJSON is the JSON representation of an article catalog.
type CatalogJSON struct {
	Articles []ArticleJSON `json:"articles"`
}

// ArticleJSON is the JSON representation of one article.
type ArticleJSON struct {
	Name     string      `json:"name"`
	Code     string      `json:"code,omitempty"`
	Sifra    string      `json:"sifra,omitempty"`
	MinStock json.Number `json:"min_stock,omitempty"`
}

// =============================================================================
// CATALOG FACTORY
// =============================================================================

// CatalogFactory converts JSON catalogs to article inputs.
type CatalogFactory struct{}

// NewCatalogFactory creates a new catalog factory.
func NewCatalogFactory() *CatalogFactory {
	return &CatalogFactory{}
}

// ParseCatalog parses JSON into article inputs, keeping their order.
func (f *CatalogFactory) ParseCatalog(data []byte) ([]stock.ArticleInput, error) {
	var cj CatalogJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
	}
	return f.FromJSON(cj)
}

// FromJSON converts CatalogJSON to article inputs.
func (f *CatalogFactory) FromJSON(cj CatalogJSON) ([]stock.ArticleInput, error) {
	if len(cj.Articles) == 0 {
		return nil, fmt.Errorf("catalog has no articles")
	}
	defs := make([]stock.ArticleInput, 0, len(cj.Articles))
	for i, aj := range cj.Articles {
		code := strings.TrimSpace(aj.Code)
		if code == "" {
			code = strings.TrimSpace(aj.Sifra)
		}
		if strings.TrimSpace(aj.Name) == "" || code == "" {
			return nil, fmt.Errorf("article %d: name and code are required", i+1)
		}
		defs = append(defs, stock.ArticleInput{
			Name:     aj.Name,
			Code:     code,
			MinStock: aj.MinStock.String(),
		})
	}
	return defs, nil
}

// ToJSON converts articles to CatalogJSON in catalog order.
func (f *CatalogFactory) ToJSON(articles []stock.Article) CatalogJSON {
	cj := CatalogJSON{Articles: make([]ArticleJSON, 0, len(articles))}
	for _, a := range stock.SortArticles(articles) {
		cj.Articles = append(cj.Articles, ArticleJSON{
			Name:     a.Name,
			Code:     a.Code,
			MinStock: json.Number(a.MinStock),
		})
	}
	return cj
}

// DefaultCatalog returns the built-in catalog used by the seed command.
func (f *CatalogFactory) DefaultCatalog() []stock.ArticleInput {
	defs, err := f.ParseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return defs
}
