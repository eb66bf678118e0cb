package repositories

import (
	"fmt"
	"sort"
	"sync"

	"microblog/internal/models"

	"github.com/google/uuid"
)

// MockPostRepository is an in-memory implementation of PostRepository.
type MockPostRepository struct {
	posts map[string]*models.Post
	order []string // post IDs in insertion order, for stable sorting
	mu    sync.RWMutex
}

// NewMockPostRepository creates a new instance of MockPostRepository.
func NewMockPostRepository() *MockPostRepository {
	return &MockPostRepository{
		posts: make(map[string]*models.Post),
	}
}

// Create adds a new post.
func (r *MockPostRepository) Create(post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	r.posts[post.ID] = clonePost(post)
	r.order = append(r.order, post.ID)
	return nil
}

// GetByID returns a post by its ID.
func (r *MockPostRepository) GetByID(id string) (*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, ok := r.posts[id]
	if !ok {
		return nil, fmt.Errorf("post with ID %s: %w", id, ErrNotFound)
	}
	return clonePost(post), nil
}

// ListPublic returns public posts newest first.
func (r *MockPostRepository) ListPublic(limit, offset int) ([]models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.sorted(func(p *models.Post) bool { return p.IsPublic })
	if offset >= len(all) {
		return []models.Post{}, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// ListByAuthor returns an author's posts newest first.
func (r *MockPostRepository) ListByAuthor(authorID string, includePrivate bool) ([]models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sorted(func(p *models.Post) bool {
		return p.AuthorID == authorID && (includePrivate || p.IsPublic)
	}), nil
}

// sorted returns copies of matching posts, newest first, insertion order
// preserved for equal timestamps.
func (r *MockPostRepository) sorted(match func(*models.Post) bool) []models.Post {
	result := make([]models.Post, 0, len(r.order))
	for _, id := range r.order {
		if p := r.posts[id]; match(p) {
			result = append(result, *clonePost(p))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// Update modifies an existing post's content and visibility.
func (r *MockPostRepository) Update(post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.posts[post.ID]
	if !ok {
		return fmt.Errorf("post with ID %s: %w", post.ID, ErrNotFound)
	}
	existing.Content = post.Content
	existing.IsPublic = post.IsPublic
	existing.UpdatedAt = post.UpdatedAt
	return nil
}

// Delete removes a post by its ID.
func (r *MockPostRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[id]; !ok {
		return fmt.Errorf("post with ID %s: %w", id, ErrNotFound)
	}
	delete(r.posts, id)
	for i, pid := range r.order {
		if pid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// AddLike records a like for a post by a user.
func (r *MockPostRepository) AddLike(postID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[postID]
	if !ok {
		return fmt.Errorf("post with ID %s: %w", postID, ErrNotFound)
	}
	if !post.LikedBy(userID) {
		post.Likes = append(post.Likes, models.Like{PostID: postID, UserID: userID})
	}
	return nil
}

// RemoveLike removes a user's like from a post.
func (r *MockPostRepository) RemoveLike(postID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[postID]
	if !ok {
		return fmt.Errorf("post with ID %s: %w", postID, ErrNotFound)
	}
	for i, l := range post.Likes {
		if l.UserID == userID {
			post.Likes = append(post.Likes[:i], post.Likes[i+1:]...)
			break
		}
	}
	return nil
}

// AddComment appends a comment to a post.
func (r *MockPostRepository) AddComment(comment *models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[comment.PostID]
	if !ok {
		return fmt.Errorf("post with ID %s: %w", comment.PostID, ErrNotFound)
	}
	comment.ID = uint(len(post.Comments) + 1)
	post.Comments = append(post.Comments, *comment)
	return nil
}

// clonePost copies a post including its like and comment slices so callers
// cannot mutate the stored document.
func clonePost(p *models.Post) *models.Post {
	cp := *p
	cp.Likes = append([]models.Like(nil), p.Likes...)
	cp.Comments = append([]models.Comment(nil), p.Comments...)
	return &cp
}
