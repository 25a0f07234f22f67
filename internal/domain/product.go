package domain

import (
	"time"
)

// Product represents a product in the catalog
type Product struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"size:255;not null"`
	Description string    `json:"description" gorm:"type:text;not null"`
	Brand       string    `json:"brand" gorm:"size:255;not null"`
	Type        string    `json:"type" gorm:"size:255;not null"`
	Price       int64     `json:"price" gorm:"not null"`
	Discount    int64     `json:"discount" gorm:"not null"`
	Views       int64     `json:"views" gorm:"not null;default:0"`
	Images      []Image   `json:"images" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Product) TableName() string {
	return "products"
}

// Image is one uploaded picture of a product together with its derived encodings.
// Every path is public (URL-relative), e.g. /public/images/products/images-<id>.png.
type Image struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Original  string    `json:"original" gorm:"size:500;not null"`
	WebP      string    `json:"webp" gorm:"column:webp;size:500;not null"`
	AVIF      string    `json:"avif" gorm:"column:avif;size:500;not null"`
	Path      string    `json:"path" gorm:"size:500;not null"`
	ProductID uint      `json:"productId" gorm:"not null;index"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Image) TableName() string {
	return "images"
}

// Files lists the three files backing the image.
func (i Image) Files() []string {
	return ImageVariants{Original: i.Original, WebP: i.WebP, AVIF: i.AVIF}.Files()
}

// ImageVariants is the set of public paths produced for one uploaded file.
type ImageVariants struct {
	Original string `json:"original"`
	WebP     string `json:"webp"`
	AVIF     string `json:"avif"`
	Path     string `json:"path"`
}

// Files returns original, avif and webp paths, skipping blanks.
func (v ImageVariants) Files() []string {
	files := make([]string, 0, 3)
	for _, p := range []string{v.Original, v.AVIF, v.WebP} {
		if p != "" {
			files = append(files, p)
		}
	}
	return files
}

// ProductPatch holds the optional fields of a partial product update.
// Nil fields are left untouched.
type ProductPatch struct {
	Title       *string
	Description *string
	Brand       *string
	Type        *string
	Price       *int64
	Discount    *int64
}

// Columns converts the patch into a column/value map for the store.
func (p ProductPatch) Columns() map[string]any {
	cols := make(map[string]any)
	if p.Title != nil {
		cols["title"] = *p.Title
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.Brand != nil {
		cols["brand"] = *p.Brand
	}
	if p.Type != nil {
		cols["type"] = *p.Type
	}
	if p.Price != nil {
		cols["price"] = *p.Price
	}
	if p.Discount != nil {
		cols["discount"] = *p.Discount
	}
	return cols
}

// ProductView is the read model returned to clients: the persisted product plus its
// live like count.
type ProductView struct {
	*Product
	Likes int64 `json:"likes"`
}

// ProductPage is one page of a product listing.
type ProductPage struct {
	Count      int64          `json:"count"`
	Rows       []*ProductView `json:"rows"`
	TotalPages int            `json:"totalPages"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
}

// NewProductPage computes the page metadata for total matching rows.
func NewProductPage(rows []*ProductView, total int64, page, pageSize int) *ProductPage {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	if rows == nil {
		rows = []*ProductView{}
	}
	return &ProductPage{
		Count:      total,
		Rows:       rows,
		TotalPages: totalPages,
		Page:       page,
		PageSize:   pageSize,
	}
}
