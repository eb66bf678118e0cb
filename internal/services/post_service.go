package services

import (
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"microblog/internal/models"
	"microblog/internal/repositories"
	"microblog/pkg/rabbitmq"

	"github.com/google/uuid"
)

const (
	maxContentLength = 5000
	maxCommentLength = 1000

	defaultPageSize = 20
	maxPageSize     = 100
)

// PostService handles business logic related to posts: creation, feeds,
// ownership-checked mutation, like toggling and comment appending.
type PostService struct {
	postRepo repositories.PostRepository
	mqClient *rabbitmq.Client // optional, nil disables event publishing
}

// NewPostService creates a new PostService.
func NewPostService(postRepo repositories.PostRepository, mqClient *rabbitmq.Client) *PostService {
	return &PostService{
		postRepo: postRepo,
		mqClient: mqClient,
	}
}

// Create creates a new post owned by the caller. Content is trimmed and
// must be 1-5000 characters; visibility defaults to public at the handler
// boundary.
func (s *PostService) Create(authorID, authorUsername, content string, isPublic bool) (*models.Post, error) {
	content = strings.TrimSpace(content)
	// Limits are in characters, not bytes; multibyte content counts per rune.
	if n := utf8.RuneCountInString(content); n == 0 || n > maxContentLength {
		return nil, ErrInvalidContent
	}

	now := time.Now()
	post := &models.Post{
		ID:             uuid.New().String(),
		AuthorID:       authorID,
		AuthorUsername: authorUsername,
		Content:        content,
		IsPublic:       isPublic,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.postRepo.Create(post); err != nil {
		return nil, err
	}

	s.publishEvent("post.created", map[string]interface{}{
		"postID":   post.ID,
		"authorID": post.AuthorID,
		"isPublic": post.IsPublic,
	})

	return post, nil
}

// ListPublic returns public posts newest first. The limit is clamped to
// 1-100 (default 20); a negative offset is treated as zero.
func (s *PostService) ListPublic(limit, offset int) ([]models.Post, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.postRepo.ListPublic(limit, offset)
}

// ListByUser returns a user's posts newest first. Private posts are
// included only when the caller is that user.
func (s *PostService) ListByUser(targetID, callerID string) ([]models.Post, error) {
	return s.postRepo.ListByAuthor(targetID, targetID == callerID)
}

// GetByID returns a single post. A private post is visible only to its
// author.
func (s *PostService) GetByID(id, callerID string) (*models.Post, error) {
	post, err := s.postRepo.GetByID(id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if !post.IsPublic && post.AuthorID != callerID {
		return nil, ErrForbidden
	}
	return post, nil
}

// Update modifies a post's content and/or visibility. Only the author may
// update; author fields and CreatedAt never change.
func (s *PostService) Update(id, callerID string, content *string, isPublic *bool) (*models.Post, error) {
	post, err := s.postRepo.GetByID(id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if post.AuthorID != callerID {
		return nil, ErrForbidden
	}

	if content != nil {
		trimmed := strings.TrimSpace(*content)
		if n := utf8.RuneCountInString(trimmed); n == 0 || n > maxContentLength {
			return nil, ErrInvalidContent
		}
		post.Content = trimmed
	}
	if isPublic != nil {
		post.IsPublic = *isPublic
	}
	post.UpdatedAt = time.Now()

	if err := s.postRepo.Update(post); err != nil {
		return nil, mapRepoError(err)
	}
	return post, nil
}

// Delete removes a post. Only the author may delete.
func (s *PostService) Delete(id, callerID string) error {
	post, err := s.postRepo.GetByID(id)
	if err != nil {
		return mapRepoError(err)
	}
	if post.AuthorID != callerID {
		return ErrForbidden
	}
	return mapRepoError(s.postRepo.Delete(id))
}

// ToggleLike adds the caller's like to the post, or removes it when already
// present. Returns the updated post.
func (s *PostService) ToggleLike(id, callerID string) (*models.Post, error) {
	post, err := s.postRepo.GetByID(id)
	if err != nil {
		return nil, mapRepoError(err)
	}

	liked := !post.LikedBy(callerID)
	if liked {
		err = s.postRepo.AddLike(id, callerID)
	} else {
		err = s.postRepo.RemoveLike(id, callerID)
	}
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.publishEvent("post.liked", map[string]interface{}{
		"postID": id,
		"userID": callerID,
		"liked":  liked,
	})

	post, err = s.postRepo.GetByID(id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return post, nil
}

// AddComment appends a comment with the caller's identity snapshot and a
// server timestamp. Text is trimmed and must be 1-1000 characters.
func (s *PostService) AddComment(id, callerID, callerUsername, text string) (*models.Post, error) {
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n == 0 || n > maxCommentLength {
		return nil, ErrInvalidComment
	}

	if _, err := s.postRepo.GetByID(id); err != nil {
		return nil, mapRepoError(err)
	}

	comment := &models.Comment{
		PostID:         id,
		AuthorID:       callerID,
		AuthorUsername: callerUsername,
		Text:           text,
		CreatedAt:      time.Now(),
	}
	if err := s.postRepo.AddComment(comment); err != nil {
		return nil, mapRepoError(err)
	}

	s.publishEvent("post.commented", map[string]interface{}{
		"postID": id,
		"userID": callerID,
	})

	post, err := s.postRepo.GetByID(id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return post, nil
}

// publishEvent sends a post event to RabbitMQ. Publishing failures are
// logged, never surfaced to the caller; the mutation has already been
// persisted.
func (s *PostService) publishEvent(eventType string, payload map[string]interface{}) {
	if s.mqClient == nil {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", eventType, err)
		return
	}
	if err := s.mqClient.Publish(eventType, body); err != nil {
		log.Printf("Warning: Failed to publish %s event: %v", eventType, err)
	}
}

// mapRepoError translates repository not-found errors into the service
// taxonomy.
func mapRepoError(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
