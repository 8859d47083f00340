package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"edupresent/internal/ai"
	"edupresent/internal/assembler"
)

// 每个客户端每分钟允许的 AI 生成次数。
const aiGenerateRateLimit = 10

// AIHandler 负责 AI 草稿生成、内容增强与配图建议。
type AIHandler struct {
	svc         *ai.Service
	store       *assembler.Store
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewAIHandler 构造 AIHandler。
func NewAIHandler(svc *ai.Service, db *gorm.DB, redisClient *redis.Client, logger *slog.Logger) *AIHandler {
	return &AIHandler{
		svc:         svc,
		store:       assembler.NewStore(db),
		redisClient: redisClient,
		logger:      logger,
	}
}

type generatePresentationRequest struct {
	Prompt    string `json:"prompt" binding:"required"`
	NumSlides int    `json:"num_slides"`
}

type enhanceContentRequest struct {
	Content string `json:"content" binding:"required"`
	Mode    string `json:"mode" binding:"required"`
}

type suggestImagesRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// GeneratePresentation 让协作方生成草稿，导入为演示文稿后落库。
func (h *AIHandler) GeneratePresentation(c *gin.Context) {
	var req generatePresentationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	if !h.allowGenerate(c) {
		Error(c, http.StatusTooManyRequests, "too many generation requests")
		return
	}

	ctx := c.Request.Context()

	draft, err := h.svc.GeneratePresentation(ctx, req.Prompt, req.NumSlides)
	if err != nil {
		if errors.Is(err, ai.ErrImport) {
			Error(c, http.StatusUnprocessableEntity, "generated draft is not a valid presentation")
			return
		}
		h.logger.Error("generate presentation failed", slog.Any("error", err))
		Error(c, http.StatusBadGateway, "generation provider failed")
		return
	}

	doc, err := ai.ImportDraft(draft)
	if err != nil {
		Error(c, http.StatusUnprocessableEntity, "generated draft is not a valid presentation")
		return
	}

	id, err := h.store.Save(ctx, doc)
	if err != nil {
		h.logger.Error("save generated presentation failed", slog.Any("error", err))
		Internal(c, "failed to save presentation")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":          id,
		"title":       doc.Title,
		"description": doc.Description,
		"slide_count": len(doc.Slides),
	})
}

// EnhanceContent 对一段文本做指定模式的增强。
func (h *AIHandler) EnhanceContent(c *gin.Context) {
	var req enhanceContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	enhanced, err := h.svc.EnhanceContent(c.Request.Context(), req.Content, req.Mode)
	if err != nil {
		if errors.Is(err, ai.ErrUnsupportedMode) {
			BadRequest(c, "unsupported enhancement mode")
			return
		}
		h.logger.Error("enhance content failed", slog.Any("error", err))
		Error(c, http.StatusBadGateway, "generation provider failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"original": req.Content,
		"enhanced": enhanced,
		"mode":     req.Mode,
	})
}

// SuggestImages 返回围绕主题的配图提示词。
func (h *AIHandler) SuggestImages(c *gin.Context) {
	var req suggestImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"prompt":      req.Prompt,
		"suggestions": h.svc.SuggestImages(req.Prompt),
	})
}

func (h *AIHandler) allowGenerate(c *gin.Context) bool {
	if h.redisClient == nil {
		return true
	}
	key := fmt.Sprintf("ai_generate_rate:%s", c.ClientIP())
	count, err := incrWithTTL(c.Request.Context(), h.redisClient, key, time.Minute)
	if err != nil {
		// Redis 故障时放行，不让限流把功能整体拖垮。
		h.logger.Warn("ai rate limit check failed", slog.Any("error", err))
		return true
	}
	return count <= aiGenerateRateLimit
}
