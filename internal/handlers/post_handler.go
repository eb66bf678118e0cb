package handlers

import (
	"errors"
	"log"

	"microblog/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// PostHandler handles HTTP requests for posts.
type PostHandler struct {
	service  *services.PostService
	validate *validator.Validate
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(service *services.PostService) *PostHandler {
	return &PostHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the post routes. All of them require a resolved
// identity. The /user route is registered before /:id so it is not
// swallowed by the parameter route.
func (h *PostHandler) RegisterRoutes(router fiber.Router) {
	postRoutes := router.Group("/posts")
	postRoutes.Post("/", h.HandleCreatePost)
	postRoutes.Get("/", h.HandleListPublicPosts)
	postRoutes.Get("/user/:userId", h.HandleListUserPosts)
	postRoutes.Get("/:id", h.HandleGetPost)
	postRoutes.Put("/:id", h.HandleUpdatePost)
	postRoutes.Delete("/:id", h.HandleDeletePost)
	postRoutes.Put("/:id/like", h.HandleToggleLike)
	postRoutes.Post("/:id/comments", h.HandleAddComment)
}

// CreatePostRequest represents the request body for creating a post.
type CreatePostRequest struct {
	Content  string `json:"content" validate:"required"`
	IsPublic *bool  `json:"is_public"`
}

// UpdatePostRequest represents the request body for updating a post. Both
// fields are optional; absent fields are left unchanged.
type UpdatePostRequest struct {
	Content  *string `json:"content"`
	IsPublic *bool   `json:"is_public"`
}

// CommentRequest represents the request body for commenting on a post.
type CommentRequest struct {
	Text string `json:"text" validate:"required"`
}

// HandleCreatePost creates a new post owned by the caller.
func (h *PostHandler) HandleCreatePost(c *fiber.Ctx) error {
	callerID, callerUsername := callerIdentity(c)

	var req CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing create post request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationMessages(err),
		})
	}

	// Visibility defaults to public when omitted.
	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	post, err := h.service.Create(callerID, callerUsername, req.Content, isPublic)
	if err != nil {
		return h.serviceError(c, err, "Could not create post")
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// HandleListPublicPosts returns the public feed, newest first.
func (h *PostHandler) HandleListPublicPosts(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	offset := c.QueryInt("offset", 0)

	posts, err := h.service.ListPublic(limit, offset)
	if err != nil {
		return h.serviceError(c, err, "Could not retrieve posts")
	}
	return c.JSON(posts)
}

// HandleListUserPosts returns a user's posts. Private posts appear only
// when the caller is that user.
func (h *PostHandler) HandleListUserPosts(c *fiber.Ctx) error {
	callerID, _ := callerIdentity(c)

	targetID := c.Params("userId")
	if _, err := uuid.Parse(targetID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid user id",
		})
	}

	posts, err := h.service.ListByUser(targetID, callerID)
	if err != nil {
		return h.serviceError(c, err, "Could not retrieve posts")
	}
	return c.JSON(posts)
}

// HandleGetPost returns a single post, visibility permitting.
func (h *PostHandler) HandleGetPost(c *fiber.Ctx) error {
	callerID, _ := callerIdentity(c)

	postID, ok := parsePostID(c)
	if !ok {
		return nil
	}

	post, err := h.service.GetByID(postID, callerID)
	if err != nil {
		return h.serviceError(c, err, "Could not retrieve post")
	}
	return c.JSON(post)
}

// HandleUpdatePost updates a post's content and/or visibility.
func (h *PostHandler) HandleUpdatePost(c *fiber.Ctx) error {
	callerID, _ := callerIdentity(c)

	postID, ok := parsePostID(c)
	if !ok {
		return nil
	}

	var req UpdatePostRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing update post request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}

	post, err := h.service.Update(postID, callerID, req.Content, req.IsPublic)
	if err != nil {
		return h.serviceError(c, err, "Could not update post")
	}
	return c.JSON(post)
}

// HandleDeletePost deletes a post.
func (h *PostHandler) HandleDeletePost(c *fiber.Ctx) error {
	callerID, _ := callerIdentity(c)

	postID, ok := parsePostID(c)
	if !ok {
		return nil
	}

	if err := h.service.Delete(postID, callerID); err != nil {
		return h.serviceError(c, err, "Could not delete post")
	}
	return c.JSON(fiber.Map{
		"message": "Post deleted successfully",
	})
}

// HandleToggleLike likes the post, or unlikes it when the caller already
// liked it.
func (h *PostHandler) HandleToggleLike(c *fiber.Ctx) error {
	callerID, _ := callerIdentity(c)

	postID, ok := parsePostID(c)
	if !ok {
		return nil
	}

	post, err := h.service.ToggleLike(postID, callerID)
	if err != nil {
		return h.serviceError(c, err, "Could not toggle like")
	}
	return c.JSON(post)
}

// HandleAddComment appends a comment to a post.
func (h *PostHandler) HandleAddComment(c *fiber.Ctx) error {
	callerID, callerUsername := callerIdentity(c)

	postID, ok := parsePostID(c)
	if !ok {
		return nil
	}

	var req CommentRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing comment request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationMessages(err),
		})
	}

	post, err := h.service.AddComment(postID, callerID, callerUsername, req.Text)
	if err != nil {
		return h.serviceError(c, err, "Could not add comment")
	}
	return c.JSON(post)
}

// serviceError maps the service error taxonomy to HTTP status codes.
// Unexpected errors are logged and surfaced as a generic 500 message.
func (h *PostHandler) serviceError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, services.ErrInvalidContent), errors.Is(err, services.ErrInvalidComment):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Not authorized"})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Post not found"})
	default:
		log.Printf("%s: %v", fallback, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": fallback})
	}
}

// parsePostID rejects malformed post ids before any store lookup. When the
// id is malformed it writes the 400 response and returns ok=false.
func parsePostID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid post id",
		})
		return "", false
	}
	return id, true
}

// callerIdentity reads the identity attached by the auth middleware.
func callerIdentity(c *fiber.Ctx) (string, string) {
	callerID, _ := c.Locals("user_id").(string)
	callerUsername, _ := c.Locals("username").(string)
	return callerID, callerUsername
}
