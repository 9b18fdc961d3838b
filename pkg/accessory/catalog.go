package accessory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrUnknownProduct is returned when a product id is not in the catalog.
var ErrUnknownProduct = errors.New("accessory: unknown product")

// Product is a catalog entry. JSON keys match the widget's product config.
type Product struct {
	ID          string   `json:"id" validate:"required,max=64"`
	Name        string   `json:"name" validate:"required,max=128"`
	Category    Category `json:"type"`
	Format      string   `json:"format,omitempty" validate:"omitempty,oneof=png glb gltf"`
	ModelURL    string   `json:"modelUrl,omitempty"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
	ScaleFactor float64  `json:"scaleFactor" validate:"gte=0,lte=10"`
	OffsetY     float64  `json:"offsetY" validate:"gte=-5,lte=5"`
	OffsetZ     float64  `json:"offsetZ" validate:"gte=-5,lte=5"`
}

// Meta returns the tuning constants for the product.
func (p Product) Meta() Meta {
	return Meta{
		Category:       ParseCategory(string(p.Category)),
		VerticalOffset: p.OffsetY,
		DepthOffset:    p.OffsetZ,
		ScaleFactor:    p.ScaleFactor,
	}
}

// Catalog is a read-only product table.
type Catalog struct {
	products []Product
	byID     map[string]int
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared struct validator.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// NewCatalog validates the products and indexes them by id.
func NewCatalog(products []Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	for i, p := range products {
		if err := Validator().Struct(p); err != nil {
			return nil, fmt.Errorf("product %d (%q): %w", i, p.ID, err)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("product %d: duplicate id %q", i, p.ID)
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

// LoadCatalog reads a JSON array of products.
func LoadCatalog(path string) (*Catalog, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("catalog file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
	}
	return NewCatalog(products)
}

// Find returns the product with the given id.
func (c *Catalog) Find(id string) (Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return Product{}, fmt.Errorf("%w: %s", ErrUnknownProduct, id)
	}
	return c.products[i], nil
}

// Products returns a copy of all products in catalog order.
func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}

// DefaultCatalog returns the built-in demo products.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(demoProducts)
	if err != nil {
		panic("accessory: invalid demo catalog: " + err.Error())
	}
	return c
}

var demoProducts = []Product{
	{ID: "glasses-aviator", Name: "Aviator Classic", Category: Glasses, Format: "png",
		ModelURL: "assets/models/glasses_aviator.png", Thumbnail: "assets/models/glasses_aviator.png",
		ScaleFactor: 1.6, OffsetY: 0.05},
	{ID: "glasses-round", Name: "Round Retro", Category: Glasses, Format: "png",
		ModelURL: "assets/models/glasses_round.png", Thumbnail: "assets/models/glasses_round.png",
		ScaleFactor: 1.4, OffsetY: 0.05},
	{ID: "glasses-cat", Name: "Cat Eye", Category: Glasses, Format: "png",
		ModelURL: "assets/models/glasses_cat.png", Thumbnail: "assets/models/glasses_cat.png",
		ScaleFactor: 1.5, OffsetY: 0.04},
	{ID: "glasses-sport", Name: "Sport Shield", Category: Glasses, Format: "png",
		ModelURL: "assets/models/glasses_sport.png", Thumbnail: "assets/models/glasses_sport.png",
		ScaleFactor: 1.7, OffsetY: 0.03},
	{ID: "glasses-wayf", Name: "Wayfarer", Category: Glasses, Format: "png",
		ModelURL: "assets/models/glasses_wayfarer.png", Thumbnail: "assets/models/glasses_wayfarer.png",
		ScaleFactor: 1.5, OffsetY: 0.05},
	{ID: "sun-gradient", Name: "Gradient Sun", Category: Glasses, Format: "png",
		ModelURL: "assets/models/sun_gradient.png", Thumbnail: "assets/models/sun_gradient.png",
		ScaleFactor: 1.6, OffsetY: 0.04},
}
