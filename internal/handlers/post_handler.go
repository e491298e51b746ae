package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/foxncici/mincici/internal/models"
	"github.com/foxncici/mincici/internal/services"
)

// PostHandler handles post and feed HTTP requests
type PostHandler struct {
	posts    *services.PostService
	profiles *services.ProfileService
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(posts *services.PostService, profiles *services.ProfileService) *PostHandler {
	return &PostHandler{posts: posts, profiles: profiles}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts", h.Feed)
	g.GET("/posts/search", h.SearchPosts)
	g.GET("/posts/:id", h.GetPost)
	g.PUT("/posts/:id", h.EditPost)
	g.DELETE("/posts/:id", h.DeletePost)
	g.POST("/posts/:id/like", h.ToggleLike)
	g.POST("/posts/:id/react", h.React)
	g.GET("/users/:id/posts", h.UserPosts)
	g.GET("/users/:id/archive", h.UserArchive)
}

// CreatePost creates a new post for the caller
func (h *PostHandler) CreatePost(c echo.Context) error {
	actor, err := resolveActor(c.Request().Context(), c, h.profiles)
	if err != nil {
		return err
	}

	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	id, err := h.posts.CreatePost(c.Request().Context(), actor, req)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// Feed returns every post, newest first
func (h *PostHandler) Feed(c echo.Context) error {
	feed, err := h.posts.Feed(c.Request().Context())
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, feed)
}

// GetPost returns one post by id
func (h *PostHandler) GetPost(c echo.Context) error {
	post, ok, err := h.posts.GetPost(c.Request().Context(), c.Param("id"))
	if err != nil {
		return serviceError(err)
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Post not found")
	}
	return c.JSON(http.StatusOK, post)
}

// UserPosts returns one author's posts, newest first
func (h *PostHandler) UserPosts(c echo.Context) error {
	posts, err := h.posts.UserPosts(c.Request().Context(), c.Param("id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, posts)
}

// EditPost updates a post's content, author only
func (h *PostHandler) EditPost(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.UpdatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.posts.EditPost(c.Request().Context(), claims.UserID, c.Param("id"), req); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// DeletePost removes a post, author only
func (h *PostHandler) DeletePost(c echo.Context) error {
	claims := currentUser(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	if err := h.posts.DeletePost(c.Request().Context(), claims.UserID, c.Param("id")); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// ToggleLike flips the caller's like on a post
func (h *PostHandler) ToggleLike(c echo.Context) error {
	actor, err := resolveActor(c.Request().Context(), c, h.profiles)
	if err != nil {
		return err
	}
	liked, err := h.posts.ToggleLike(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"liked": liked})
}

// React sets or clears the caller's reaction on a post
func (h *PostHandler) React(c echo.Context) error {
	actor, err := resolveActor(c.Request().Context(), c, h.profiles)
	if err != nil {
		return err
	}

	var req models.ReactRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.posts.React(c.Request().Context(), actor, c.Param("id"), req.Kind); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// SearchPosts runs a content search over the post archive
func (h *PostHandler) SearchPosts(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing search query")
	}
	skip, limit := pagination(c)
	results, err := h.posts.SearchArchive(c.Request().Context(), query, skip, limit)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, results)
}

// UserArchive lists one author's archived posts
func (h *PostHandler) UserArchive(c echo.Context) error {
	skip, limit := pagination(c)
	results, err := h.posts.UserArchive(c.Request().Context(), c.Param("id"), skip, limit)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, results)
}

// pagination parses skip/limit query params with sane defaults
func pagination(c echo.Context) (skip, limit int64) {
	skip, _ = strconv.ParseInt(c.QueryParam("skip"), 10, 64)
	limit, _ = strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return skip, limit
}
