package repositories

import "microblog/internal/models"

// PostRepository defines the interface for post data access. Likes and
// comments are mutated through their own methods so each mutation stays a
// single atomic row operation in the store.
type PostRepository interface {
	Create(post *models.Post) error
	GetByID(id string) (*models.Post, error)
	ListPublic(limit, offset int) ([]models.Post, error)
	ListByAuthor(authorID string, includePrivate bool) ([]models.Post, error)
	Update(post *models.Post) error
	Delete(id string) error
	AddLike(postID, userID string) error
	RemoveLike(postID, userID string) error
	AddComment(comment *models.Comment) error
}
