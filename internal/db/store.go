package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrEmailTaken = errors.New("email is already registered")
	ErrTitleTaken = errors.New("a post with this title already exists")
)

// Store is the blog's persistence API. Every write runs in its own transaction.
type Store struct {
	db *gorm.DB
}

func NewStore(d *Database) *Store {
	return &Store{db: d.Gorm}
}

func (s *Store) CreateUser(ctx context.Context, u *User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := exists(tx, &User{}, "email = ?", u.Email)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if taken {
			return ErrEmailTaken
		}
		if err := tx.Create(u).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailTaken
			}
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
}

func (s *Store) UserByID(ctx context.Context, id uint) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err, "get user")
	}
	return &u, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, notFound(err, "get user by email")
	}
	return &u, nil
}

// ListPosts returns every post with its author, newest first.
func (s *Store) ListPosts(ctx context.Context) ([]PostEntry, error) {
	var posts []PostEntry
	err := s.postQuery(ctx).Order("posts.id DESC").Scan(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

func (s *Store) PostByID(ctx context.Context, id uint) (*PostEntry, error) {
	var posts []PostEntry
	err := s.postQuery(ctx).Where("posts.id = ?", id).Limit(1).Scan(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	if len(posts) == 0 {
		return nil, ErrNotFound
	}
	return &posts[0], nil
}

func (s *Store) postQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("posts").
		Select("posts.*, users.name AS author_name, users.email AS author_email").
		Joins("JOIN users ON users.id = posts.author_id")
}

func (s *Store) CreatePost(ctx context.Context, p *Post) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := exists(tx, &Post{}, "title = ?", p.Title)
		if err != nil {
			return fmt.Errorf("check title: %w", err)
		}
		if taken {
			return ErrTitleTaken
		}
		if err := tx.Create(p).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrTitleTaken
			}
			return fmt.Errorf("create post: %w", err)
		}
		return nil
	})
}

// UpdatePost changes the editable fields of a post. Author, date and id stay as they were.
func (s *Store) UpdatePost(ctx context.Context, id uint, f PostFields) (*Post, error) {
	var p Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, id).Error; err != nil {
			return notFound(err, "get post")
		}
		taken, err := exists(tx, &Post{}, "title = ? AND id <> ?", f.Title, id)
		if err != nil {
			return fmt.Errorf("check title: %w", err)
		}
		if taken {
			return ErrTitleTaken
		}
		err = tx.Model(&p).Updates(map[string]interface{}{
			"title":    f.Title,
			"subtitle": f.Subtitle,
			"body":     f.Body,
			"img_url":  f.ImgURL,
		}).Error
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrTitleTaken
			}
			return fmt.Errorf("update post: %w", err)
		}
		p.Title, p.Subtitle, p.Body, p.ImgURL = f.Title, f.Subtitle, f.Body, f.ImgURL
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePost removes a post together with its comments.
func (s *Store) DeletePost(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&Comment{}).Error; err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		res := tx.Delete(&Post{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete post: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// CommentsForPost returns a post's comments with their authors, oldest first.
func (s *Store) CommentsForPost(ctx context.Context, postID uint) ([]CommentEntry, error) {
	var comments []CommentEntry
	err := s.db.WithContext(ctx).
		Table("comments").
		Select("comments.*, users.name AS author_name, users.email AS author_email").
		Joins("JOIN users ON users.id = comments.author_id").
		Where("comments.post_id = ?", postID).
		Order("comments.id ASC").
		Scan(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

func (s *Store) CreateComment(ctx context.Context, c *Comment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := exists(tx, &Post{}, "id = ?", c.PostID)
		if err != nil {
			return fmt.Errorf("check post: %w", err)
		}
		if !found {
			return ErrNotFound
		}
		if err := tx.Create(c).Error; err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		return nil
	})
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	return s.count(ctx, &User{})
}

func (s *Store) CountPosts(ctx context.Context) (int64, error) {
	return s.count(ctx, &Post{})
}

func (s *Store) CountComments(ctx context.Context) (int64, error) {
	return s.count(ctx, &Comment{})
}

func (s *Store) count(ctx context.Context, model interface{}) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(model).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func exists(tx *gorm.DB, model interface{}, query string, args ...interface{}) (bool, error) {
	var n int64
	if err := tx.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func notFound(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
