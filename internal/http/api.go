package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bookarr/internal/domain"
	"bookarr/internal/service"
	"bookarr/internal/storage"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	wanted  service.WantedService
	users   service.UserService
	tokens  *TokenIssuer
	storage storage.Service
	bucket  string
}

func NewHandler(wanted service.WantedService, users service.UserService, tokens *TokenIssuer, store storage.Service, bucket string) *Handler {
	return &Handler{
		wanted:  wanted,
		users:   users,
		tokens:  tokens,
		storage: store,
		bucket:  bucket,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		api.POST("/auth/register", h.register)
		api.POST("/auth/login", h.login)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}

	protected := api.Group("", h.tokens.Middleware())
	{
		protected.POST("/wanted", h.addWanted)
		protected.GET("/wanted", h.listWanted)
		protected.GET("/wanted/:kind/:id", h.getWanted)
		protected.DELETE("/wanted/:kind/:id", h.deleteWanted)
		protected.POST("/wanted/:kind/:id/search", h.searchWanted)
		protected.POST("/wanted/search", h.searchAll)
		protected.GET("/history", h.listHistory)
		protected.GET("/storage/objects", h.listObjects)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

type registerRequest struct {
	Username       string `json:"username" binding:"required"`
	Password       string `json:"password" binding:"required"`
	RegisterSecret string `json:"register_secret" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Password, req.RegisterSecret)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrInvalidRegistrationPassword):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "username": user.Username})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, expires, err := h.tokens.Issue(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expires.Format(time.RFC3339),
	})
}

type addWantedRequest struct {
	ID         string `json:"id" binding:"required"`
	Kind       string `json:"kind" binding:"required"`
	AuthorName string `json:"author_name"`
	Title      string `json:"title" binding:"required"`
	Subtitle   string `json:"subtitle"`
}

func (h *Handler) addWanted(c *gin.Context) {
	var req addWantedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kind, ok := parseKind(req.Kind)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item kind"})
		return
	}

	item := domain.WantedItem{
		ID:         req.ID,
		Kind:       kind,
		AuthorName: req.AuthorName,
		Title:      req.Title,
		Subtitle:   req.Subtitle,
	}
	if err := h.wanted.Add(c.Request.Context(), &item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, itemToResponse(item))
}

func (h *Handler) listWanted(c *gin.Context) {
	items, err := h.wanted.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]WantedItemResponse, len(items))
	for i := range items {
		resp[i] = itemToResponse(items[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getWanted(c *gin.Context) {
	id, kind, ok := h.itemParams(c)
	if !ok {
		return
	}

	item, err := h.wanted.Get(c.Request.Context(), id, kind)
	if err != nil {
		if errors.Is(err, service.ErrItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, itemToResponse(*item))
}

func (h *Handler) deleteWanted(c *gin.Context) {
	id, kind, ok := h.itemParams(c)
	if !ok {
		return
	}

	if err := h.wanted.Delete(c.Request.Context(), id, kind); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (h *Handler) searchWanted(c *gin.Context) {
	id, kind, ok := h.itemParams(c)
	if !ok {
		return
	}

	outcome, err := h.wanted.Search(c.Request.Context(), id, kind)
	if err != nil {
		if errors.Is(err, service.ErrItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, outcomeToResponse(*outcome))
}

func (h *Handler) searchAll(c *gin.Context) {
	outcomes, err := h.wanted.SearchAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]SearchOutcomeResponse, len(outcomes))
	for i := range outcomes {
		resp[i] = outcomeToResponse(outcomes[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) listHistory(c *gin.Context) {
	recs, err := h.wanted.History(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]RecordResponse, len(recs))
	for i := range recs {
		resp[i] = recordToResponse(recs[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) listObjects(c *gin.Context) {
	if h.storage == nil || h.bucket == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage service not configured"})
		return
	}

	prefix := c.Query("prefix")
	objects, err := h.storage.ListObjects(c.Request.Context(), h.bucket, prefix)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]StorageObjectResponse, len(objects))
	for i := range objects {
		resp[i] = objectToResponse(objects[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) itemParams(c *gin.Context) (string, domain.ItemKind, bool) {
	kind, ok := parseKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item kind"})
		return "", "", false
	}
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return "", "", false
	}
	return id, kind, true
}

func parseKind(raw string) (domain.ItemKind, bool) {
	switch domain.ItemKind(raw) {
	case domain.KindEBook, domain.KindAudioBook, domain.KindMagazine:
		return domain.ItemKind(raw), true
	default:
		return "", false
	}
}

type WantedItemResponse struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	AuthorName string `json:"author_name"`
	Title      string `json:"title"`
	Subtitle   string `json:"subtitle,omitempty"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type RecordResponse struct {
	URL        string `json:"url"`
	Provider   string `json:"provider"`
	ItemID     string `json:"item_id"`
	Kind       string `json:"kind"`
	Size       int64  `json:"size"`
	Title      string `json:"title"`
	Mode       string `json:"mode"`
	Status     string `json:"status"`
	DownloadID string `json:"download_id,omitempty"`
	Result     string `json:"result,omitempty"`
	Date       string `json:"date"`
}

type SearchOutcomeResponse struct {
	Found    bool   `json:"found"`
	Phase    string `json:"phase"`
	Score    int    `json:"score"`
	Title    string `json:"title,omitempty"`
	URL      string `json:"url,omitempty"`
	Provider string `json:"provider,omitempty"`
	Outcome  string `json:"outcome,omitempty"`
}

type StorageObjectResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"last_modified,omitempty"`
}

func itemToResponse(item domain.WantedItem) WantedItemResponse {
	return WantedItemResponse{
		ID:         item.ID,
		Kind:       string(item.Kind),
		AuthorName: item.AuthorName,
		Title:      item.Title,
		Subtitle:   item.Subtitle,
		Status:     string(item.StatusForKind()),
		CreatedAt:  item.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  item.UpdatedAt.Format(time.RFC3339),
	}
}

func recordToResponse(rec domain.WantedRecord) RecordResponse {
	return RecordResponse{
		URL:        rec.URL,
		Provider:   rec.Provider,
		ItemID:     rec.ItemID,
		Kind:       string(rec.AuxInfo),
		Size:       rec.Size,
		Title:      rec.Title,
		Mode:       string(rec.Mode),
		Status:     string(rec.Status),
		DownloadID: rec.DownloadID,
		Result:     rec.Result,
		Date:       rec.Date.Format(time.RFC3339),
	}
}

func objectToResponse(obj storage.ObjectInfo) StorageObjectResponse {
	resp := StorageObjectResponse{
		Key:  obj.Key,
		Size: obj.Size,
	}
	if obj.LastModified != nil && !obj.LastModified.IsZero() {
		v := obj.LastModified.Format(time.RFC3339)
		resp.LastModified = &v
	}
	return resp
}

func outcomeToResponse(o service.SearchOutcome) SearchOutcomeResponse {
	return SearchOutcomeResponse{
		Found:    o.Found,
		Phase:    string(o.Phase),
		Score:    o.Score,
		Title:    o.Title,
		URL:      o.URL,
		Provider: o.Provider,
		Outcome:  string(o.Outcome),
	}
}
