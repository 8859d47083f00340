package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"edupresent/internal/api/middleware"
	"edupresent/internal/assembler"
	"edupresent/internal/database"
	"edupresent/internal/render"
	"edupresent/internal/storage"
	"edupresent/internal/tasks"
)

// ExportHandler 负责预览与导出：HTML 预览同步返回，
// PDF/PPTX 导出入队后异步执行，结果通过 WebSocket 通知。
type ExportHandler struct {
	db          *gorm.DB
	store       *assembler.Store
	asynqClient *asynq.Client
	storage     *storage.Client
}

// NewExportHandler 构造 ExportHandler。
func NewExportHandler(db *gorm.DB, asynqClient *asynq.Client, storageClient *storage.Client) *ExportHandler {
	return &ExportHandler{
		db:          db,
		store:       assembler.NewStore(db),
		asynqClient: asynqClient,
		storage:     storageClient,
	}
}

// PreviewPresentation 同步渲染 HTML 预览。
func (h *ExportHandler) PreviewPresentation(c *gin.Context) {
	id, err := parsePresentationID(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid presentation id")
		return
	}

	doc, err := h.store.Load(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "presentation not found")
			return
		}
		Internal(c, "failed to load presentation")
		return
	}

	projector := render.HTMLProjector{}
	result, err := projector.Project(doc)
	if err != nil {
		Internal(c, "failed to render preview")
		return
	}

	c.Data(http.StatusOK, result.ContentType, result.Data)
}

// ExportPDF 将 PDF 导出任务入队并立即返回 202。
func (h *ExportHandler) ExportPDF(c *gin.Context) {
	h.enqueueExport(c, "pdf")
}

// ExportPPTX 将 PPTX 导出任务入队并立即返回 202。
func (h *ExportHandler) ExportPPTX(c *gin.Context) {
	h.enqueueExport(c, "pptx")
}

func (h *ExportHandler) enqueueExport(c *gin.Context, format string) {
	id, err := parsePresentationID(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid presentation id")
		return
	}

	var pres database.Presentation
	if err := h.db.WithContext(c.Request.Context()).First(&pres, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "presentation not found")
			return
		}
		Internal(c, "failed to query presentation")
		return
	}

	correlationID := middleware.GetCorrelationID(c)

	var task *asynq.Task
	if format == "pptx" {
		task, err = tasks.NewExportPPTXTask(pres.ID, correlationID)
	} else {
		task, err = tasks.NewExportPDFTask(pres.ID, correlationID)
	}
	if err != nil {
		Internal(c, "failed to create task")
		return
	}

	info, err := h.asynqClient.Enqueue(task, asynq.MaxRetry(5))
	if err != nil {
		Internal(c, "failed to enqueue export")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "export request accepted",
		"format":  format,
		"task_id": info.ID,
	})
}

// DownloadExport 返回已完成导出的预签名下载链接。
// 导出尚未完成时返回 409。
func (h *ExportHandler) DownloadExport(c *gin.Context) {
	id, err := parsePresentationID(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid presentation id")
		return
	}

	format := c.DefaultQuery("format", "pdf")
	if format != "pdf" && format != "pptx" {
		BadRequest(c, "format must be pdf or pptx")
		return
	}

	var pres database.Presentation
	if err := h.db.WithContext(c.Request.Context()).First(&pres, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "presentation not found")
			return
		}
		Internal(c, "failed to query presentation")
		return
	}

	objectKey := pres.PdfObjectKey
	if format == "pptx" {
		objectKey = pres.PptxObjectKey
	}
	if objectKey == "" {
		Conflict(c, "export not ready")
		return
	}

	// 浏览器直接触发下载并拿到可读文件名，而非对象键。
	params := map[string]string{
		"response-content-disposition": fmt.Sprintf(`attachment; filename="presentation-%d.%s"`, id, format),
	}
	signedURL, err := h.storage.GeneratePresignedURLWithParams(c.Request.Context(), objectKey, 5*time.Minute, params)
	if err != nil {
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL, "format": format})
}

// ListExports 列出指定演示文稿名下的全部导出产物（存储为准，
// 包含被重复导出覆盖前的旧版本）。
func (h *ExportHandler) ListExports(c *gin.Context) {
	id, err := parsePresentationID(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid presentation id")
		return
	}

	var pres database.Presentation
	if err := h.db.WithContext(c.Request.Context()).First(&pres, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "presentation not found")
			return
		}
		Internal(c, "failed to query presentation")
		return
	}

	objects, err := h.storage.ListObjects(c.Request.Context(), fmt.Sprintf("exports/%d/", id), 50)
	if err != nil {
		Internal(c, "failed to list exports")
		return
	}

	items := make([]gin.H, 0, len(objects))
	for _, obj := range objects {
		items = append(items, gin.H{
			"key":           obj.Key,
			"size":          obj.Size,
			"last_modified": obj.LastModified,
		})
	}
	c.JSON(http.StatusOK, gin.H{"presentation_id": id, "exports": items})
}
