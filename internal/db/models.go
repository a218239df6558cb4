package db

import "time"

type User struct {
	ID       uint   `gorm:"primaryKey"`
	Email    string `gorm:"size:100;uniqueIndex;not null"`
	Password string `gorm:"size:255;not null"` // hashed, never plaintext
	Name     string `gorm:"size:1000;not null;default:''"`
}

func (User) TableName() string { return "users" }

// DisplayName falls back to the email when no name was given at registration.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

type Post struct {
	ID        uint   `gorm:"primaryKey"`
	Title     string `gorm:"size:250;uniqueIndex;not null"`
	Subtitle  string `gorm:"size:250;not null"`
	Date      string `gorm:"size:250;not null"`
	Body      string `gorm:"type:text;not null"`
	ImgURL    string `gorm:"size:250;not null"`
	AuthorID  uint   `gorm:"not null;index"`
	CreatedAt time.Time
}

func (Post) TableName() string { return "posts" }

// PostFields are the only columns the edit flow may change.
type PostFields struct {
	Title    string
	Subtitle string
	Body     string
	ImgURL   string
}

type Comment struct {
	ID        uint   `gorm:"primaryKey"`
	Text      string `gorm:"type:text;not null"`
	PostID    uint   `gorm:"not null;index"`
	AuthorID  uint   `gorm:"not null;index"`
	CreatedAt time.Time
}

func (Comment) TableName() string { return "comments" }

// PostEntry is a post joined with its author's public fields.
type PostEntry struct {
	Post
	AuthorName  string
	AuthorEmail string
}

func (e PostEntry) AuthorDisplay() string {
	return User{Name: e.AuthorName, Email: e.AuthorEmail}.DisplayName()
}

// CommentEntry is a comment joined with its author's public fields.
type CommentEntry struct {
	Comment
	AuthorName  string
	AuthorEmail string
}

func (e CommentEntry) AuthorDisplay() string {
	return User{Name: e.AuthorName, Email: e.AuthorEmail}.DisplayName()
}
