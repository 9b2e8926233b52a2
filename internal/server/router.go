package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/MarcoPoloResearchLab/snippyvault/internal/users"
	"github.com/MarcoPoloResearchLab/snippyvault/internal/vault"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	errMissingSnippetService = errors.New("snippet service dependency required")
	errMissingAccountService = errors.New("account service dependency required")
)

// SnippetService stores snippets per user.
type SnippetService interface {
	List(ctx context.Context, userID string) ([]vault.Snippet, error)
	Create(ctx context.Context, userID string, draft vault.Draft) (vault.Snippet, error)
	Update(ctx context.Context, userID, snippetID string, draft vault.Draft) (vault.Snippet, error)
	Delete(ctx context.Context, userID, snippetID string) error
	Reorder(ctx context.Context, userID string, orderedIDs []string) error
}

// AccountService resolves usernames.
type AccountService interface {
	Login(ctx context.Context, username string) (users.Account, bool, error)
	Exists(ctx context.Context, username string) (bool, error)
}

type Dependencies struct {
	SnippetService SnippetService
	AccountService AccountService
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewHTTPHandler builds the vault API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.SnippetService == nil {
		return nil, errMissingSnippetService
	}
	if deps.AccountService == nil {
		return nil, errMissingAccountService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(corsMiddleware(deps.AllowedOrigins))

	handler := &httpHandler{
		snippets: deps.SnippetService,
		accounts: deps.AccountService,
		logger:   logger,
	}

	router.POST("/login", handler.handleLogin)
	router.GET("/snippets", handler.handleListSnippets)
	router.POST("/snippets", handler.handleCreateSnippet)
	router.POST("/snippets/reorder", handler.handleReorderSnippets)
	router.PUT("/snippets/:id", handler.handleUpdateSnippet)
	router.DELETE("/snippets/:id", handler.handleDeleteSnippet)

	return router, nil
}

type httpHandler struct {
	snippets SnippetService
	accounts AccountService
	logger   *zap.Logger
}

type responseEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type loginRequestPayload struct {
	Username string `json:"username"`
}

type draftRequestPayload struct {
	Username string   `json:"username"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
}

type reorderRequestPayload struct {
	Username   string   `json:"username"`
	OrderedIDs []string `json:"ordered_ids"`
}

type snippetPayload struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
	Order   *int64   `json:"order,omitempty"`
}

type createdPayload struct {
	ID    string `json:"id"`
	Order *int64 `json:"order,omitempty"`
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid request", "")
		return
	}
	account, created, err := h.accounts.Login(c.Request.Context(), request.Username)
	if errors.Is(err, users.ErrInvalidUsername) {
		h.fail(c, http.StatusBadRequest, "username is required", "")
		return
	}
	if err != nil {
		h.logger.Error("login failed", zap.Error(err))
		h.fail(c, http.StatusInternalServerError, "login failed", "")
		return
	}
	message := fmt.Sprintf("welcome back, %s", account.Username)
	if created {
		message = fmt.Sprintf("account created for %s", account.Username)
	}
	c.JSON(http.StatusOK, responseEnvelope{Success: true, Message: message})
}

func (h *httpHandler) handleListSnippets(c *gin.Context) {
	userID, ok := h.resolveUser(c, c.Query("username"))
	if !ok {
		return
	}
	listed, err := h.snippets.List(c.Request.Context(), userID)
	if err != nil {
		h.failService(c, err)
		return
	}
	data := make([]snippetPayload, 0, len(listed))
	for _, snippet := range listed {
		data = append(data, toSnippetPayload(snippet))
	}
	c.JSON(http.StatusOK, responseEnvelope{Success: true, Data: data})
}

func (h *httpHandler) handleCreateSnippet(c *gin.Context) {
	var request draftRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid request", "")
		return
	}
	userID, ok := h.resolveUser(c, request.Username)
	if !ok {
		return
	}
	created, err := h.snippets.Create(c.Request.Context(), userID, toDraft(request))
	if err != nil {
		h.failService(c, err)
		return
	}
	c.JSON(http.StatusCreated, responseEnvelope{
		Success: true,
		Message: "snippet created",
		Data:    createdPayload{ID: created.ID, Order: created.Order},
	})
}

func (h *httpHandler) handleUpdateSnippet(c *gin.Context) {
	var request draftRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid request", "")
		return
	}
	userID, ok := h.resolveUser(c, request.Username)
	if !ok {
		return
	}
	updated, err := h.snippets.Update(c.Request.Context(), userID, c.Param("id"), toDraft(request))
	if err != nil {
		h.failService(c, err)
		return
	}
	c.JSON(http.StatusOK, responseEnvelope{
		Success: true,
		Message: "snippet updated",
		Data:    toSnippetPayload(updated),
	})
}

func (h *httpHandler) handleDeleteSnippet(c *gin.Context) {
	userID, ok := h.resolveUser(c, c.Query("username"))
	if !ok {
		return
	}
	if err := h.snippets.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.failService(c, err)
		return
	}
	c.JSON(http.StatusOK, responseEnvelope{Success: true, Message: "snippet deleted"})
}

func (h *httpHandler) handleReorderSnippets(c *gin.Context) {
	var request reorderRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid request", "")
		return
	}
	userID, ok := h.resolveUser(c, request.Username)
	if !ok {
		return
	}
	if err := h.snippets.Reorder(c.Request.Context(), userID, request.OrderedIDs); err != nil {
		h.failService(c, err)
		return
	}
	c.JSON(http.StatusOK, responseEnvelope{Success: true, Message: "order saved"})
}

// resolveUser writes the failure response itself and reports false when the
// username is missing or unknown.
func (h *httpHandler) resolveUser(c *gin.Context, raw string) (string, bool) {
	username, err := users.ValidateUsername(raw)
	if err != nil {
		h.fail(c, http.StatusBadRequest, "username is required", "")
		return "", false
	}
	exists, err := h.accounts.Exists(c.Request.Context(), username)
	if err != nil {
		h.logger.Error("account lookup failed", zap.String("username", username), zap.Error(err))
		h.fail(c, http.StatusInternalServerError, "account lookup failed", "")
		return "", false
	}
	if !exists {
		h.fail(c, http.StatusUnauthorized, "unknown user", "")
		return "", false
	}
	return username, true
}

func (h *httpHandler) fail(c *gin.Context, status int, message, code string) {
	c.JSON(status, responseEnvelope{Success: false, Message: message, Code: code})
}

func (h *httpHandler) failService(c *gin.Context, err error) {
	code := ""
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		code = coded.Code()
	}

	switch {
	case errors.Is(err, vault.ErrEmptyContent):
		h.fail(c, http.StatusBadRequest, "content is required", code)
	case errors.Is(err, vault.ErrInvalidSnippetID):
		h.fail(c, http.StatusBadRequest, "invalid snippet id", code)
	case errors.Is(err, vault.ErrSnippetNotFound):
		h.fail(c, http.StatusNotFound, "snippet not found", code)
	case errors.Is(err, vault.ErrOrderMismatch):
		h.fail(c, http.StatusConflict, "ordered ids do not match stored snippets", code)
	default:
		h.logger.Error("vault operation failed", zap.String("code", code), zap.Error(err))
		h.fail(c, http.StatusInternalServerError, "internal error", code)
	}
}

func toDraft(request draftRequestPayload) vault.Draft {
	return vault.Draft{
		Title:   request.Title,
		Content: request.Content,
		Tags:    request.Tags,
	}
}

func toSnippetPayload(snippet vault.Snippet) snippetPayload {
	tags := snippet.Tags
	if tags == nil {
		tags = []string{}
	}
	return snippetPayload{
		ID:      snippet.ID,
		Title:   snippet.Title,
		Content: snippet.Content,
		Tags:    tags,
		Order:   snippet.Order,
	}
}
