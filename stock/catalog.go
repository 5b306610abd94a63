package stock

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// =============================================================================
// CATALOG - Article lifecycle
// =============================================================================

// ArticleInput is the operator-supplied part of an article.
type ArticleInput struct {
	Name     string
	Code     string
	MinStock string // empty means DefaultMinStock
}

// ArticleUpdate changes only the fields that are set.
type ArticleUpdate struct {
	Name     *string
	Code     *string
	MinStock *string
}

// Catalog creates, updates and deletes articles while keeping slugs and
// codes unique and Order dense.
type Catalog struct {
	store  TxStore
	logger *zap.Logger
	newID  func() string
}

// NewCatalog creates a catalog. A nil logger disables logging.
func NewCatalog(store TxStore, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{store: store, logger: logger, newID: newEntryID}
}

// List returns every article in Order.
func (c *Catalog) List(ctx context.Context) ([]Article, error) {
	articles, err := c.store.ListArticles(ctx)
	if err != nil {
		return nil, WrapStorage("list articles", err)
	}
	return SortArticles(articles), nil
}

// Get returns one article or a NotFoundError.
func (c *Catalog) Get(ctx context.Context, id ArticleID) (Article, error) {
	a, err := c.store.GetArticle(ctx, id)
	if err != nil {
		return Article{}, WrapStorage("get article", err)
	}
	if a == nil {
		return Article{}, &NotFoundError{Kind: "article", Key: string(id)}
	}
	return *a, nil
}

// Create adds an article at the end of the catalog order.
func (c *Catalog) Create(ctx context.Context, in ArticleInput) (Article, error) {
	var created Article
	err := c.store.WithTx(ctx, func(s Store) error {
		existing, err := s.ListArticles(ctx)
		if err != nil {
			return WrapStorage("list articles", err)
		}
		a, err := c.build(in, existing)
		if err != nil {
			return err
		}
		a.Order = nextOrder(existing)
		if err := s.SaveArticles(ctx, a); err != nil {
			return WrapStorage("save article", err)
		}
		created = a
		return nil
	})
	if err != nil {
		return Article{}, err
	}
	c.logger.Info("article created", zap.String("id", string(created.ID)), zap.String("slug", created.Slug.String()))
	return created, nil
}

// Update applies the set fields. A new name re-derives the slug; movement
// lines recorded under the old slug are not rewritten.
func (c *Catalog) Update(ctx context.Context, id ArticleID, upd ArticleUpdate) (Article, error) {
	var updated Article
	err := c.store.WithTx(ctx, func(s Store) error {
		current, err := s.GetArticle(ctx, id)
		if err != nil {
			return WrapStorage("get article", err)
		}
		if current == nil {
			return &NotFoundError{Kind: "article", Key: string(id)}
		}
		existing, err := s.ListArticles(ctx)
		if err != nil {
			return WrapStorage("list articles", err)
		}
		others := make([]Article, 0, len(existing))
		for _, a := range existing {
			if a.ID != id {
				others = append(others, a)
			}
		}

		in := ArticleInput{Name: current.Name, Code: current.Code, MinStock: current.MinStock}
		if upd.Name != nil {
			in.Name = *upd.Name
		}
		if upd.Code != nil {
			in.Code = *upd.Code
		}
		if upd.MinStock != nil {
			in.MinStock = *upd.MinStock
		}
		a, err := c.build(in, others)
		if err != nil {
			return err
		}
		a.ID = current.ID
		a.Order = current.Order
		if err := s.SaveArticles(ctx, a); err != nil {
			return WrapStorage("save article", err)
		}
		updated = a
		return nil
	})
	if err != nil {
		return Article{}, err
	}
	return updated, nil
}

// Delete removes an article and renumbers the rest to 0..N-1 in one batch.
func (c *Catalog) Delete(ctx context.Context, id ArticleID) error {
	err := c.store.WithTx(ctx, func(s Store) error {
		current, err := s.GetArticle(ctx, id)
		if err != nil {
			return WrapStorage("get article", err)
		}
		if current == nil {
			return &NotFoundError{Kind: "article", Key: string(id)}
		}
		if err := s.DeleteArticle(ctx, id); err != nil {
			return WrapStorage("delete article", err)
		}
		remaining, err := s.ListArticles(ctx)
		if err != nil {
			return WrapStorage("list articles", err)
		}
		renumbered := Renumber(remaining)
		if len(renumbered) == 0 {
			return nil
		}
		return WrapStorage("save articles", s.SaveArticles(ctx, renumbered...))
	})
	if err != nil {
		return err
	}
	c.logger.Info("article deleted", zap.String("id", string(id)))
	return nil
}

// Seed replaces the whole catalog with defs, in the given order.
func (c *Catalog) Seed(ctx context.Context, defs []ArticleInput) ([]Article, error) {
	var seeded []Article
	err := c.store.WithTx(ctx, func(s Store) error {
		existing, err := s.ListArticles(ctx)
		if err != nil {
			return WrapStorage("list articles", err)
		}
		for _, a := range existing {
			if err := s.DeleteArticle(ctx, a.ID); err != nil {
				return WrapStorage("delete article", err)
			}
		}
		seeded = make([]Article, 0, len(defs))
		for i, in := range defs {
			a, err := c.build(in, seeded)
			if err != nil {
				return err
			}
			a.Order = i
			seeded = append(seeded, a)
		}
		if len(seeded) == 0 {
			return nil
		}
		return WrapStorage("save articles", s.SaveArticles(ctx, seeded...))
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("catalog seeded", zap.Int("articles", len(seeded)))
	return seeded, nil
}

// Renumber returns articles in Order with Order reset to 0..N-1.
func Renumber(articles []Article) []Article {
	sorted := SortArticles(articles)
	for i := range sorted {
		sorted[i].Order = i
	}
	return sorted
}

// ParseMinStock validates a threshold and returns its canonical string.
// Empty input yields the default threshold.
func ParseMinStock(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return FormatQuantity(DefaultMinStock), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return "", &ValidationError{
			Code:    "invalid_min_stock",
			Message: fmt.Sprintf("minimum stock %q must be a non-negative number", s),
		}
	}
	return FormatQuantity(d), nil
}

func (c *Catalog) build(in ArticleInput, others []Article) (Article, error) {
	name := strings.TrimSpace(in.Name)
	code := strings.TrimSpace(in.Code)
	if name == "" || code == "" {
		return Article{}, &ValidationError{Code: "invalid_article", Message: "article name and code are required"}
	}
	minStock, err := ParseMinStock(in.MinStock)
	if err != nil {
		return Article{}, err
	}
	slug := NormalizeSlug(name)
	for _, o := range others {
		if o.Slug == slug {
			return Article{}, &ValidationError{
				Code:    "duplicate_slug",
				Message: fmt.Sprintf("an article named %q already exists", o.Name),
			}
		}
		if strings.EqualFold(o.Code, code) {
			return Article{}, &ValidationError{
				Code:    "duplicate_code",
				Message: fmt.Sprintf("article code %q is already used by %q", code, o.Name),
			}
		}
	}
	return Article{
		ID:       ArticleID(c.newID()),
		Code:     code,
		Name:     name,
		Slug:     slug,
		MinStock: minStock,
	}, nil
}

func nextOrder(articles []Article) int {
	next := 0
	for _, a := range articles {
		if a.Order >= next {
			next = a.Order + 1
		}
	}
	return next
}
