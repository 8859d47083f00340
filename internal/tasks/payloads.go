package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeExportPDF  = "export:pdf"
	TypeExportPPTX = "export:pptx"
)

// ExportPayload 描述一次演示文稿导出所需的最小信息。
type ExportPayload struct {
	PresentationID uint   `json:"presentation_id"`
	CorrelationID  string `json:"correlation_id"`
}

// NewExportPDFTask 构造一个新的 PDF 导出任务。
func NewExportPDFTask(id uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ExportPayload{
		PresentationID: id,
		CorrelationID:  correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeExportPDF, payload), nil
}

// NewExportPPTXTask 构造一个新的 PPTX 导出任务。
func NewExportPPTXTask(id uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ExportPayload{
		PresentationID: id,
		CorrelationID:  correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeExportPPTX, payload), nil
}
