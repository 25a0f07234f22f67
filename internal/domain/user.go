package domain

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered customer or administrator
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:100;not null"`
	Email     string    `json:"email" gorm:"size:255;not null;uniqueIndex"`
	Password  string    `json:"-" gorm:"column:password;size:255;not null"`
	Role      string    `json:"role" gorm:"size:50;not null;default:user"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// Wishlist links a user to a product they like. A pair appears at most once.
type Wishlist struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"userId" gorm:"not null;uniqueIndex:idx_wishlists_user_product"`
	ProductID uint      `json:"productId" gorm:"not null;uniqueIndex:idx_wishlists_user_product;index"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Wishlist) TableName() string {
	return "wishlists"
}
