package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"edupresent/internal/assembler"
	"edupresent/internal/database"
	"edupresent/internal/document"
	"edupresent/internal/storage"
)

// PresentationHandler 负责演示文稿的增删改查。
// 所有读写都经过 assembler.Store，handler 不直接操作页/块行。
type PresentationHandler struct {
	db      *gorm.DB
	store   *assembler.Store
	storage *storage.Client
	logger  *slog.Logger
}

// NewPresentationHandler 构造 PresentationHandler。
func NewPresentationHandler(db *gorm.DB, storageClient *storage.Client, logger *slog.Logger) *PresentationHandler {
	return &PresentationHandler{
		db:      db,
		store:   assembler.NewStore(db),
		storage: storageClient,
		logger:  logger,
	}
}

var errInvalidPresentationID = errors.New("invalid presentation id")

type blockPayload struct {
	ID        uint           `json:"id,omitempty"`
	Type      string         `json:"type" binding:"required"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	PositionX float64        `json:"position_x"`
	PositionY float64        `json:"position_y"`
	Width     float64        `json:"width"`
	Height    float64        `json:"height"`
	ZIndex    int            `json:"z_index"`
	Styles    map[string]any `json:"styles"`
}

type slidePayload struct {
	ID         uint           `json:"id,omitempty"`
	Title      string         `json:"title"`
	Layout     string         `json:"layout"`
	Background map[string]any `json:"background"`
	Animations map[string]any `json:"animations"`
	Blocks     []blockPayload `json:"blocks"`
}

type presentationPayload struct {
	Title       string         `json:"title" binding:"required"`
	Description string         `json:"description"`
	Theme       string         `json:"theme"`
	Settings    map[string]any `json:"settings"`
	Slides      []slidePayload `json:"slides"`
}

type blockResponse struct {
	ID        uint           `json:"id"`
	Type      string         `json:"type"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	PositionX float64        `json:"position_x"`
	PositionY float64        `json:"position_y"`
	Width     float64        `json:"width"`
	Height    float64        `json:"height"`
	ZIndex    int            `json:"z_index"`
	Styles    map[string]any `json:"styles"`
}

type slideResponse struct {
	ID         uint            `json:"id"`
	OrderIndex int             `json:"order_index"`
	Title      string          `json:"title"`
	Layout     string          `json:"layout"`
	Background map[string]any  `json:"background"`
	Animations map[string]any  `json:"animations"`
	Blocks     []blockResponse `json:"blocks"`
}

type presentationResponse struct {
	ID          uint            `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Theme       string          `json:"theme"`
	Settings    map[string]any  `json:"settings"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Slides      []slideResponse `json:"slides"`
}

type presentationListItem struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Theme       string    `json:"theme"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreatePresentation 创建一份新的演示文稿（可以带初始页与块）。
func (h *PresentationHandler) CreatePresentation(c *gin.Context) {
	var req presentationPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	doc := payloadToDocument(req, 0)

	id, err := h.store.Save(ctx, doc)
	if err != nil {
		if errors.Is(err, assembler.ErrAssembly) {
			Error(c, http.StatusUnprocessableEntity, err.Error())
			return
		}
		Internal(c, "failed to create presentation")
		return
	}

	resp, err := h.loadResponse(ctx, id)
	if err != nil {
		Internal(c, "failed to reload presentation")
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListPresentations 列出全部演示文稿（只含元数据，不含树）。
func (h *PresentationHandler) ListPresentations(c *gin.Context) {
	var rows []database.Presentation
	if err := h.db.WithContext(c.Request.Context()).
		Order("updated_at DESC").
		Find(&rows).Error; err != nil {
		Internal(c, "failed to list presentations")
		return
	}

	items := make([]presentationListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, presentationListItem{
			ID:          row.ID,
			Title:       row.Title,
			Description: row.Description,
			Theme:       row.Theme,
			Status:      row.Status,
			CreatedAt:   row.CreatedAt,
			UpdatedAt:   row.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, items)
}

// GetPresentation 返回完整的演示文稿树。
func (h *PresentationHandler) GetPresentation(c *gin.Context) {
	id, err := parsePresentationID(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid presentation id")
		return
	}

	resp, err := h.loadResponse(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "presentation not found")
			return
		}
		Internal(c, "failed to load presentation")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdatePresentation 用请求中的树整体覆盖指定演示文稿。
// 请求里没有出现的已落库页/块会被删除。
func (h *PresentationHandler) UpdatePresentation(c *gin.Context) {
	id, err := parsePresentationID(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid presentation id")
		return
	}

	var req presentationPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	doc := payloadToDocument(req, id)

	if _, err := h.store.Save(ctx, doc); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "presentation not found")
			return
		}
		if errors.Is(err, assembler.ErrAssembly) {
			Error(c, http.StatusUnprocessableEntity, err.Error())
			return
		}
		Internal(c, "failed to update presentation")
		return
	}

	resp, err := h.loadResponse(ctx, id)
	if err != nil {
		Internal(c, "failed to reload presentation")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeletePresentation 删除演示文稿及其全部页与块。
func (h *PresentationHandler) DeletePresentation(c *gin.Context) {
	id, err := parsePresentationID(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid presentation id")
		return
	}

	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "presentation not found")
			return
		}
		Internal(c, "failed to delete presentation")
		return
	}

	// 行已删除，导出产物的清理只影响存储占用，失败不回滚请求。
	if h.storage != nil {
		prefix := fmt.Sprintf("exports/%d/", id)
		if err := h.storage.DeletePrefix(c.Request.Context(), prefix); err != nil && h.logger != nil {
			h.logger.Warn("delete export artifacts failed",
				slog.String("prefix", prefix),
				slog.Any("error", err),
			)
		}
	}

	c.Status(http.StatusNoContent)
}

func (h *PresentationHandler) loadResponse(ctx context.Context, id uint) (presentationResponse, error) {
	doc, err := h.store.Load(ctx, id)
	if err != nil {
		return presentationResponse{}, err
	}

	var row database.Presentation
	if err := h.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return presentationResponse{}, err
	}

	return newPresentationResponse(doc, row.Status), nil
}

func parsePresentationID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidPresentationID
	}
	return uint(id), nil
}

// payloadToDocument 把请求体转换成文档树。页的顺序由数组顺序决定，
// 请求中的 order_index 不参与排序（落库时会重新编号）。
func payloadToDocument(req presentationPayload, id uint) *document.Document {
	doc := document.New(req.Title)
	doc.ID = id
	doc.Description = req.Description
	if req.Theme != "" {
		doc.Theme = req.Theme
	}
	if req.Settings != nil {
		doc.Settings = req.Settings
	}

	for _, sp := range req.Slides {
		layout := sp.Layout
		if layout == "" {
			layout = "default"
		}
		slide := &document.Slide{
			ID:         sp.ID,
			Title:      sp.Title,
			Layout:     layout,
			Background: orEmpty(sp.Background),
			Animations: orEmpty(sp.Animations),
		}
		for _, bp := range sp.Blocks {
			block := document.NewBlock(bp.Type, bp.Content)
			block.ID = bp.ID
			block.Metadata = orEmpty(bp.Metadata)
			block.PositionX = bp.PositionX
			block.PositionY = bp.PositionY
			if bp.Width > 0 {
				block.Width = bp.Width
			}
			if bp.Height > 0 {
				block.Height = bp.Height
			}
			block.ZIndex = bp.ZIndex
			block.Styles = orEmpty(bp.Styles)
			slide.AppendBlock(block)
		}
		doc.AppendSlide(slide)
	}

	return doc
}

func newPresentationResponse(doc *document.Document, status string) presentationResponse {
	resp := presentationResponse{
		ID:          doc.ID,
		Title:       doc.Title,
		Description: doc.Description,
		Theme:       doc.Theme,
		Settings:    orEmpty(doc.Settings),
		Status:      status,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
		Slides:      make([]slideResponse, 0, len(doc.Slides)),
	}
	for _, slide := range doc.Slides {
		sr := slideResponse{
			ID:         slide.ID,
			OrderIndex: slide.OrderIndex,
			Title:      slide.Title,
			Layout:     slide.Layout,
			Background: orEmpty(slide.Background),
			Animations: orEmpty(slide.Animations),
			Blocks:     make([]blockResponse, 0, len(slide.Blocks)),
		}
		for _, block := range slide.Blocks {
			sr.Blocks = append(sr.Blocks, blockResponse{
				ID:        block.ID,
				Type:      block.Type,
				Content:   block.Content,
				Metadata:  orEmpty(block.Metadata),
				PositionX: block.PositionX,
				PositionY: block.PositionY,
				Width:     block.Width,
				Height:    block.Height,
				ZIndex:    block.ZIndex,
				Styles:    orEmpty(block.Styles),
			})
		}
		resp.Slides = append(resp.Slides, sr)
	}
	return resp
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
