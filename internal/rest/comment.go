package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/civicview/comment-service/domain"
	"github.com/civicview/comment-service/internal/rest/middleware"
	"github.com/civicview/comment-service/internal/rest/request"
	"github.com/civicview/comment-service/internal/rest/response"
)

// CommentHandler represent the httphandler for comments
type CommentHandler struct {
	Service domain.CommentUsecase
}

func NewCommentHandler(svc domain.CommentUsecase) *CommentHandler {
	return &CommentHandler{
		Service: svc,
	}
}

func abortWithError(c *gin.Context, err error) {
	status := getStatusCode(err)
	c.JSON(status, ResponseError{Message: errorMessage(err, status)})
}

func mustActor(c *gin.Context) (domain.Actor, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ResponseError{Message: domain.ErrUnauthorized.Error()})
	}
	return actor, ok
}

// FetchByPost lists the top-level comments of a post, newest first
func (h *CommentHandler) FetchByPost(c *gin.Context) {
	comments, err := h.Service.ListTopLevel(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.NewCommentsFromDomain(comments))
}

// FetchReplies lists the replies of a comment, newest first
func (h *CommentHandler) FetchReplies(c *gin.Context) {
	replies, err := h.Service.ListReplies(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.NewCommentsFromDomain(replies))
}

func (h *CommentHandler) Create(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req request.CreateComment
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
		return
	}

	comment, err := h.Service.Create(c.Request.Context(), req.ToDomain(actor), actor)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.NewCommentFromDomain(&comment))
}

func (h *CommentHandler) ToggleLike(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	comment, err := h.Service.ToggleLike(c.Request.Context(), c.Param("id"), actor.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.NewCommentFromDomain(&comment))
}

func (h *CommentHandler) Edit(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req request.EditComment
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
		return
	}

	comment, err := h.Service.Edit(c.Request.Context(), c.Param("id"), req.Content, actor)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.NewCommentFromDomain(&comment))
}

func (h *CommentHandler) Delete(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	if err := h.Service.Delete(c.Request.Context(), c.Param("id"), actor); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment has been deleted"})
}

// FetchForModeration pages over every comment; admins only
func (h *CommentHandler) FetchForModeration(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var q request.ModerationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
		return
	}

	page, err := h.Service.ListForModeration(c.Request.Context(), q.ToDomain(), actor)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.NewModerationPageFromDomain(&page))
}

// Register mounts the comment routes; auth guards the mutating ones.
func (h *CommentHandler) Register(r gin.IRouter, auth gin.HandlerFunc) {
	r.GET("/posts/:id/comments", h.FetchByPost)
	r.GET("/comments/:id/replies", h.FetchReplies)

	authorized := r.Group("/")
	authorized.Use(auth)
	{
		authorized.POST("/comments", h.Create)
		authorized.PUT("/comments/:id/like", h.ToggleLike)
		authorized.PUT("/comments/:id", h.Edit)
		authorized.DELETE("/comments/:id", h.Delete)
		authorized.GET("/comments", h.FetchForModeration)
	}
}
