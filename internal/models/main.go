// Package models defines the core data structures for users and catalog entries.
package models

import "time"

// User represents a registered account.
type User struct {
	// ID is the unique identifier for the user.
	ID int64 `db:"id"`
	// Username is the login name chosen by the user.
	Username string `db:"username"`
	// Email is the address verification mail is sent to.
	Email string `db:"email"`
	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string `db:"hashed_password"`
	// Verified is set once the verification token has been redeemed.
	Verified bool `db:"is_verified"`
	// VerifyToken is the pending one-time verification token, empty once used.
	VerifyToken string `db:"verify_token"`
	// AvatarURL points at the stored avatar image, if any.
	AvatarURL string `db:"avatar_url"`
	// Bio is free-form profile text.
	Bio string `db:"bio"`
	// CreatedAt is the registration time.
	CreatedAt time.Time `db:"created_at"`
}

// Entry is a single catalogued item owned by exactly one user.
type Entry struct {
	// ID is the row identifier within the entry's category.
	ID int64 `db:"id"`
	// Category is the collection the entry belongs to. It never changes.
	Category Category `db:"-"`
	// Title of the film, book, track or video.
	Title string `db:"title"`
	// Author is the director, writer, artist or channel.
	Author string `db:"author"`
	// Rating is the owner's score. Any finite value is accepted.
	Rating float64 `db:"rating"`
	// Link is an optional external URL.
	Link string `db:"link"`
	// ImageURL is an optional cover image URL.
	ImageURL string `db:"image_url"`
	// Shared marks the entry as published to the global feed.
	Shared bool `db:"is_shared"`
	// OwnerID references the owning user.
	OwnerID int64 `db:"owner_id"`
}

// FeedItem is a shared entry of another user together with its owner's name.
type FeedItem struct {
	Entry
	// OwnerName is the owner's username.
	OwnerName string `db:"owner_name"`
}

// EntryInput carries the editable fields of an entry.
type EntryInput struct {
	Title    string  `validate:"required,max=255"`
	Author   string  `validate:"required,max=255"`
	Rating   float64 `validate:"-"`
	Link     string  `validate:"omitempty,max=2048"`
	ImageURL string  `validate:"omitempty,max=2048"`
}

// CategorySection groups dashboard data for one category.
type CategorySection struct {
	Category Category
	// Count is the number of entries the viewer owns, shared or not.
	Count int
	// Pinned lists the viewer's own shared entries.
	Pinned []Entry
	// Global lists other users' shared entries.
	Global []FeedItem
}

// Dashboard is the landing page view model for a signed-in user.
type Dashboard struct {
	Username string
	Sections []CategorySection
}
