package repositories

import (
	"errors"
	"fmt"

	"microblog/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMPostRepository is a GORM implementation of PostRepository.
type GORMPostRepository struct {
	db *gorm.DB
}

// NewGORMPostRepository creates a new instance of GORMPostRepository.
func NewGORMPostRepository(db *gorm.DB) *GORMPostRepository {
	return &GORMPostRepository{
		db: db,
	}
}

// withAssociations preloads likes and comments; comments in insertion order.
func (r *GORMPostRepository) withAssociations() *gorm.DB {
	return r.db.Preload("Likes").Preload("Comments", func(db *gorm.DB) *gorm.DB {
		return db.Order("comments.id ASC")
	})
}

// Create creates a new post in the database.
func (r *GORMPostRepository) Create(post *models.Post) error {
	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	if err := r.db.Create(post).Error; err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

// GetByID retrieves a single post with its likes and comments.
func (r *GORMPostRepository) GetByID(id string) (*models.Post, error) {
	var post models.Post
	if err := r.withAssociations().First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("post with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get post by ID %s: %w", id, err)
	}
	return &post, nil
}

// ListPublic retrieves public posts newest first. The secondary sort key
// only makes equal-timestamp results deterministic.
func (r *GORMPostRepository) ListPublic(limit, offset int) ([]models.Post, error) {
	var posts []models.Post
	err := r.withAssociations().
		Where("is_public = ?", true).
		Order("created_at DESC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list public posts: %w", err)
	}
	return posts, nil
}

// ListByAuthor retrieves an author's posts newest first, optionally
// including private ones.
func (r *GORMPostRepository) ListByAuthor(authorID string, includePrivate bool) ([]models.Post, error) {
	query := r.withAssociations().Where("author_id = ?", authorID)
	if !includePrivate {
		query = query.Where("is_public = ?", true)
	}

	var posts []models.Post
	if err := query.Order("created_at DESC, id ASC").Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to list posts by author %s: %w", authorID, err)
	}
	return posts, nil
}

// Update persists a post's mutable fields. Author fields and CreatedAt are
// deliberately excluded from the update set.
func (r *GORMPostRepository) Update(post *models.Post) error {
	res := r.db.Model(&models.Post{}).Where("id = ?", post.ID).Updates(map[string]interface{}{
		"content":    post.Content,
		"is_public":  post.IsPublic,
		"updated_at": post.UpdatedAt,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update post: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("post with ID %s: %w", post.ID, ErrNotFound)
	}
	return nil
}

// Delete removes a post and its likes and comments.
func (r *GORMPostRepository) Delete(id string) error {
	res := r.db.Delete(&models.Post{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete post: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("post with ID %s: %w", id, ErrNotFound)
	}
	if err := r.db.Delete(&models.Like{}, "post_id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete likes of post %s: %w", id, err)
	}
	if err := r.db.Delete(&models.Comment{}, "post_id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete comments of post %s: %w", id, err)
	}
	return nil
}

// AddLike records a like for a post by a user.
func (r *GORMPostRepository) AddLike(postID, userID string) error {
	like := models.Like{PostID: postID, UserID: userID}
	if err := r.db.Create(&like).Error; err != nil {
		return fmt.Errorf("failed to add like on post %s: %w", postID, err)
	}
	return nil
}

// RemoveLike removes a user's like from a post. Removing an absent like is
// a no-op.
func (r *GORMPostRepository) RemoveLike(postID, userID string) error {
	res := r.db.Delete(&models.Like{}, "post_id = ? AND user_id = ?", postID, userID)
	if res.Error != nil {
		return fmt.Errorf("failed to remove like on post %s: %w", postID, res.Error)
	}
	return nil
}

// AddComment appends a comment to a post.
func (r *GORMPostRepository) AddComment(comment *models.Comment) error {
	if err := r.db.Create(comment).Error; err != nil {
		return fmt.Errorf("failed to add comment on post %s: %w", comment.PostID, err)
	}
	return nil
}
