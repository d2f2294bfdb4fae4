package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"nichecast/internal/ai"
	"nichecast/internal/command"
	"nichecast/internal/lifecycle"
	"nichecast/internal/model"
	"nichecast/internal/social"
	"nichecast/internal/storage"
	"nichecast/internal/whatsapp"
	"nichecast/worker"

	"github.com/gin-gonic/gin"
)

// PostStore is the direct entity access the dashboard-facing
// endpoints use.
type PostStore interface {
	InsertPost(ctx context.Context, p *model.Post) error
	GetPost(ctx context.Context, id string) (model.Post, error)
	TransitionPost(ctx context.Context, id string, to lifecycle.Status, mutate func(*model.Post)) (model.Post, error)
}

// postRunner is a single-shot stage worker invoked per post id.
type postRunner interface {
	RunPost(ctx context.Context, postID string) (model.Post, error)
}

type publishRunner interface {
	RunPost(ctx context.Context, postID string) (social.Result, error)
}

// Server exposes the webhook, instance, and worker-task endpoints.
// Every worker invocation is a single-shot stateless task: one task
// per HTTP invocation, safe to run concurrently across entity ids.
type Server struct {
	Interpreter *command.Interpreter
	Instances   *whatsapp.Manager
	Store       PostStore
	Editor      postRunner
	Designer    postRunner
	Publisher   publishRunner
	Notifier    *worker.Notifier
}

// Routes builds the gin engine.
func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/webhooks/messages", s.handleWebhook)
	r.POST("/webhooks/buttons", s.handleWebhook)

	r.POST("/instances/connect", s.handleConnect)
	r.GET("/instances/:id/status", s.handleInstanceStatus)
	r.GET("/instances/:id/qr", s.handleInstanceQR)
	r.DELETE("/instances/:id", s.handleInstanceCancel)

	r.POST("/posts", s.handleCreatePost)
	r.POST("/posts/:id/approve", s.handleApprovePost)
	r.POST("/posts/:id/regenerate", s.handleRegeneratePost)

	r.POST("/tasks/editor", s.handleEditorTask)
	r.POST("/tasks/designer", s.handleDesignerTask)
	r.POST("/tasks/publisher", s.handlePublisherTask)

	return r
}

// handleWebhook accepts both payload dialects; Normalize decides which
// one arrived. The provider always gets a 200 acknowledgment so a
// handling error never breaks its delivery loop.
func (s *Server) handleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "unreadable body"})
		return
	}
	ev, err := command.Normalize(body)
	if err != nil {
		if !errors.Is(err, command.ErrEmptyEvent) {
			slog.Warn("webhook: payload rejected", "err", err)
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "no actionable event"})
		return
	}
	if err := s.Interpreter.Handle(c.Request.Context(), ev); err != nil {
		slog.Error("webhook: command failed", "dialect", ev.Dialect, "err", err)
		c.JSON(http.StatusOK, gin.H{"success": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleConnect(c *gin.Context) {
	var req struct {
		TenantID string `json:"tenant_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.TenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "tenant_id is required"})
		return
	}
	res, err := s.Instances.Connect(c.Request.Context(), req.TenantID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": res})
}

func (s *Server) handleInstanceStatus(c *gin.Context) {
	inst, err := s.Instances.PollStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.entityError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": inst.Status, "phone": inst.Phone})
}

func (s *Server) handleInstanceQR(c *gin.Context) {
	qr, err := s.Instances.PollQR(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.entityError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"qr_code": qr})
}

func (s *Server) handleInstanceCancel(c *gin.Context) {
	if err := s.Instances.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		s.entityError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleCreatePost is the dashboard's entry into the pipeline: a raw
// insert at the scraping stage.
func (s *Server) handleCreatePost(c *gin.Context) {
	var req struct {
		TenantID    string `json:"tenant_id"`
		SourceTitle string `json:"source_title"`
		SourceURL   string `json:"source_url"`
		ContentRaw  string `json:"content_raw"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.TenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "tenant_id is required"})
		return
	}
	p := model.Post{
		TenantID:    req.TenantID,
		SourceTitle: req.SourceTitle,
		SourceURL:   req.SourceURL,
		ContentRaw:  req.ContentRaw,
		Status:      lifecycle.StatusScraping,
	}
	if err := s.Store.InsertPost(c.Request.Context(), &p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "post": p})
}

// handleApprovePost is the dashboard's manual approve action: the same
// state-machine transition the chat command drives.
func (s *Server) handleApprovePost(c *gin.Context) {
	p, err := s.Store.TransitionPost(c.Request.Context(), c.Param("id"), lifecycle.StatusApproved, nil)
	if err != nil {
		s.entityError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "post": p})
}

func (s *Server) handleRegeneratePost(c *gin.Context) {
	p, err := s.Store.TransitionPost(c.Request.Context(), c.Param("id"), lifecycle.StatusEditing, func(p *model.Post) {
		p.CaptionInstagram = ""
		p.CopyLinkedIn = ""
		p.ImageURL = ""
		p.ImagePrompt = ""
	})
	if err != nil {
		s.entityError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "post": p})
}

func (s *Server) handleEditorTask(c *gin.Context) {
	id, ok := s.bindPostID(c)
	if !ok {
		return
	}
	p, err := s.Editor.RunPost(c.Request.Context(), id)
	if err != nil {
		s.entityError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "captions generated", "post_id": p.ID})
}

func (s *Server) handleDesignerTask(c *gin.Context) {
	id, ok := s.bindPostID(c)
	if !ok {
		return
	}
	p, err := s.Designer.RunPost(c.Request.Context(), id)
	if err != nil {
		s.entityError(c, err)
		return
	}
	// Post is now awaiting approval; push the chat approval request.
	if s.Notifier != nil {
		if err := s.Notifier.SendApprovalRequest(c.Request.Context(), p); err != nil {
			slog.Warn("designer: approval request not sent", "post_id", p.ID, "err", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "image generated", "post_id": p.ID, "image_url": p.ImageURL})
}

func (s *Server) handlePublisherTask(c *gin.Context) {
	id, ok := s.bindPostID(c)
	if !ok {
		return
	}
	res, err := s.Publisher.RunPost(c.Request.Context(), id)
	if err != nil && len(res.Errors) == 0 {
		s.entityError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": res.OK(),
		"message": publishMessage(res),
		"post_id": id,
		"results": res,
	})
}

func publishMessage(res social.Result) string {
	if res.OK() {
		return "published successfully"
	}
	return "publishing partially failed"
}

func (s *Server) bindPostID(c *gin.Context) (string, bool) {
	var req struct {
		PostID string `json:"post_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.PostID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "post_id is required"})
		return "", false
	}
	return req.PostID, true
}

// entityError maps the error taxonomy onto HTTP statuses: NotFound and
// validation are 4xx with no entity mutated; conflicts and illegal
// transitions are 409; everything else is a provider/storage failure.
func (s *Server) entityError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, ai.ErrNoContent), errors.Is(err, worker.ErrNoSourceTitle):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, lifecycle.ErrIllegalTransition), errors.Is(err, storage.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": err.Error()})
	}
}
