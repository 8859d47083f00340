package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"edupresent/internal/assembler"
	"edupresent/internal/database"
	"edupresent/internal/errcode"
	"edupresent/internal/render"
	"edupresent/internal/storage"
	"edupresent/internal/tasks"
)

// ExportTaskHandler 负责消费演示文稿导出任务（PDF / PPTX）。
type ExportTaskHandler struct {
	db          *gorm.DB
	store       *assembler.Store
	storage     *storage.Client
	redisClient *redis.Client
	logger      *slog.Logger
	pdf         *render.PDFProjector
	pptx        *render.PPTXProjector
}

// NewExportTaskHandler 创建任务处理器。
func NewExportTaskHandler(
	db *gorm.DB,
	storageClient *storage.Client,
	redisClient *redis.Client,
	logger *slog.Logger,
) *ExportTaskHandler {
	resolver := storage.NewObjectResolver(storageClient)
	return &ExportTaskHandler{
		db:          db,
		store:       assembler.NewStore(db),
		storage:     storageClient,
		redisClient: redisClient,
		logger:      logger,
		pdf:         &render.PDFProjector{Resolver: resolver, Logger: logger},
		pptx:        &render.PPTXProjector{Resolver: resolver, Logger: logger},
	}
}

// ProcessTask 实现 asynq.Handler。PDF 与 PPTX 共用同一流程，
// 只在投影器与落库字段上分叉。
func (h *ExportTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.ExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	format := formatOf(t.Type())
	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Int("presentation_id", int(payload.PresentationID)),
		slog.String("format", format),
	)
	log.Info("Starting presentation export task...")

	doc, err := h.store.Load(ctx, payload.PresentationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("presentation not found, skipping task")
			return nil
		}
		log.Error("load presentation failed", slog.Any("error", err))
		return err
	}

	defer func() {
		if retErr == nil {
			return
		}
		if !isFinalAsynqAttempt(ctx) {
			return
		}

		notify := ExportNotifyMessage{
			Status:         "error",
			PresentationID: payload.PresentationID,
			Format:         format,
			CorrelationID:  payload.CorrelationID,
			ErrorCode:      errcode.SystemError,
			ErrorMessage:   strings.TrimSpace(retErr.Error()),
		}
		if err := h.publishExportNotify(ctx, payload.PresentationID, notify); err != nil {
			log.Error("publish export error notification failed", slog.Any("error", err))
		}
	}()

	var result render.Result
	switch t.Type() {
	case tasks.TypeExportPDF:
		result, err = h.pdf.Project(ctx, doc)
	case tasks.TypeExportPPTX:
		result, err = h.pptx.Project(ctx, doc)
	default:
		return fmt.Errorf("unknown export task type %q", t.Type())
	}
	if err != nil {
		log.Error("render presentation failed", slog.Any("error", err))
		return err
	}

	objectName := fmt.Sprintf("exports/%d/%s.%s", payload.PresentationID, uuid.NewString(), format)
	reader := bytes.NewReader(result.Data)
	if _, err := h.storage.UploadFile(ctx, objectName, reader, int64(len(result.Data)), result.ContentType); err != nil {
		log.Error("upload export to minio failed", slog.Any("error", err))
		return err
	}

	update := map[string]any{"status": "completed"}
	switch t.Type() {
	case tasks.TypeExportPDF:
		update["pdf_object_key"] = objectName
	case tasks.TypeExportPPTX:
		update["pptx_object_key"] = objectName
	}
	if err := h.db.WithContext(ctx).
		Model(&database.Presentation{}).
		Where("id = ?", payload.PresentationID).
		Updates(update).Error; err != nil {
		log.Error("update presentation failed", slog.Any("error", err))
		return err
	}

	notify := ExportNotifyMessage{
		Status:         "completed",
		PresentationID: payload.PresentationID,
		Format:         format,
		CorrelationID:  payload.CorrelationID,
		ObjectKey:      objectName,
		ErrorCode:      errcode.OK,
	}
	if len(result.MissingRefs) > 0 {
		notify.ErrorCode = errcode.ResourceMissing
		notify.ErrorMessage = "部分图片资源缺失/无效，已自动跳过并继续导出"
		notify.MissingKeys = result.MissingRefs
		log.Warn("export generated with missing assets",
			slog.Int("missing_count", len(result.MissingRefs)),
			slog.Any("missing_keys", result.MissingRefs),
		)
	}
	if err := h.publishExportNotify(ctx, payload.PresentationID, notify); err != nil {
		log.Error("publish redis notification failed", slog.Any("error", err))
		return err
	}

	log.Info("Export task completed successfully.")
	return nil
}

func (h *ExportTaskHandler) publishExportNotify(ctx context.Context, presentationID uint, notify ExportNotifyMessage) error {
	data, err := json.Marshal(notify)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := fmt.Sprintf("presentation_notify:%d", presentationID)
	if err := h.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}

func formatOf(taskType string) string {
	if taskType == tasks.TypeExportPPTX {
		return "pptx"
	}
	return "pdf"
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
