package api

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"edupresent/internal/database"
	"edupresent/internal/storage"
)

// MediaHandler 负责媒体文件的上传、访问与删除。
// 上传前经过病毒扫描，元数据落库，文件本体进对象存储。
type MediaHandler struct {
	db        *gorm.DB
	storage   *storage.Client
	logger    *slog.Logger
	clamdAddr string
	maxBytes  int64
}

// NewMediaHandler 返回 MediaHandler 实例。
func NewMediaHandler(db *gorm.DB, storageClient *storage.Client, logger *slog.Logger, clamdAddr string, maxBytes int64) *MediaHandler {
	return &MediaHandler{
		db:        db,
		storage:   storageClient,
		logger:    logger,
		clamdAddr: clamdAddr,
		maxBytes:  maxBytes,
	}
}

type mediaResponse struct {
	ID               uint      `json:"id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	ObjectKey        string    `json:"object_key"`
	FileSize         int64     `json:"file_size"`
	MimeType         string    `json:"mime_type"`
	Width            int       `json:"width,omitempty"`
	Height           int       `json:"height,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// UploadMedia 处理媒体上传，上传前扫描病毒并记录图片尺寸。
func (h *MediaHandler) UploadMedia(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}
	if h.maxBytes > 0 && file.Size > h.maxBytes {
		Error(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	fileReader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}
	data, err := io.ReadAll(fileReader)
	fileReader.Close()
	if err != nil {
		Internal(c, "failed to read file")
		return
	}

	if h.clamdAddr != "" {
		clamdClient := clamd.NewClamd(h.clamdAddr)
		abortChan := make(chan bool)
		scanChan, err := clamdClient.ScanStream(bytes.NewReader(data), abortChan)
		if err != nil {
			h.logger.Error("scan file", slog.String("error", err.Error()))
			Internal(c, "failed to scan file")
			return
		}
		defer close(abortChan)

		for result := range scanChan {
			if result.Status != clamd.RES_OK {
				BadRequest(c, "malicious file detected")
				return
			}
		}
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext == "" {
		ext = ".bin"
	}
	filename := uuid.NewString() + ext
	objectKey := "media/" + filename

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if _, err := h.storage.UploadFile(c.Request.Context(), objectKey, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		h.logger.Error("upload file", slog.String("error", err.Error()))
		Internal(c, "failed to upload file")
		return
	}

	media := database.Media{
		Filename:         filename,
		OriginalFilename: file.Filename,
		ObjectKey:        objectKey,
		FileSize:         int64(len(data)),
		MimeType:         contentType,
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		media.Width = cfg.Width
		media.Height = cfg.Height
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&media).Error; err != nil {
		h.logger.Error("create media record", slog.String("error", err.Error()))
		Internal(c, "failed to record media")
		return
	}

	c.JSON(http.StatusCreated, newMediaResponse(media))
}

// ListMedia 列出已上传的媒体，最新的在前。
func (h *MediaHandler) ListMedia(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "60"))
	if err != nil || limit <= 0 {
		limit = 60
	}
	if limit > 200 {
		limit = 200
	}

	var rows []database.Media
	if err := h.db.WithContext(c.Request.Context()).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		Internal(c, "failed to list media")
		return
	}

	items := make([]mediaResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, newMediaResponse(row))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetMediaURL 返回媒体的临时预签名 URL。
func (h *MediaHandler) GetMediaURL(c *gin.Context) {
	media, err := h.findMedia(c)
	if err != nil {
		return
	}

	signedURL, err := h.storage.GeneratePresignedURL(c.Request.Context(), media.ObjectKey, 15*time.Minute)
	if err != nil {
		h.logger.Error("generate presigned url", slog.String("error", err.Error()))
		Internal(c, "failed to generate url")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

// DeleteMedia 删除媒体记录与对象存储中的文件。
func (h *MediaHandler) DeleteMedia(c *gin.Context) {
	media, err := h.findMedia(c)
	if err != nil {
		return
	}

	ctx := c.Request.Context()
	if err := h.storage.DeleteObject(ctx, media.ObjectKey); err != nil {
		h.logger.Error("delete media object", slog.String("objectKey", media.ObjectKey), slog.String("error", err.Error()))
		Internal(c, "failed to delete media file")
		return
	}
	if err := h.db.WithContext(ctx).Delete(&database.Media{}, media.ID).Error; err != nil {
		Internal(c, "failed to delete media record")
		return
	}

	c.Status(http.StatusNoContent)
}

// findMedia 解析 :id 并加载媒体行；出错时直接写响应并返回非 nil error。
func (h *MediaHandler) findMedia(c *gin.Context) (*database.Media, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, "invalid media id")
		return nil, fmt.Errorf("invalid media id")
	}

	var media database.Media
	if err := h.db.WithContext(c.Request.Context()).First(&media, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "media not found")
		} else {
			Internal(c, "failed to query media")
		}
		return nil, err
	}
	return &media, nil
}

func newMediaResponse(media database.Media) mediaResponse {
	return mediaResponse{
		ID:               media.ID,
		Filename:         media.Filename,
		OriginalFilename: media.OriginalFilename,
		ObjectKey:        media.ObjectKey,
		FileSize:         media.FileSize,
		MimeType:         media.MimeType,
		Width:            media.Width,
		Height:           media.Height,
		CreatedAt:        media.CreatedAt,
	}
}
