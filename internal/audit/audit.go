package audit

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/praxisnote/praxisnote/internal/model"
)

// Emitter records assistant query events. Events carry metadata only;
// query and answer text never pass through here.
type Emitter interface {
	Emit(ctx context.Context, event *model.AuditEvent)
}

type logEmitter struct{}

// NewLogEmitter emits audit events through the structured log stream,
// tagged so downstream collectors can route them.
func NewLogEmitter() Emitter {
	return &logEmitter{}
}

func (e *logEmitter) Emit(ctx context.Context, event *model.AuditEvent) {
	if event.EventTimeUnix == 0 {
		event.EventTimeUnix = time.Now().Unix()
	}
	logutil.GetLogger(ctx).Info("audit",
		zap.String("event_type", event.EventType),
		zap.String("workspace_id", event.WorkspaceID),
		zap.String("user_id", event.UserID),
		zap.Int("query_length", event.QueryLength),
		zap.String("language", event.Language),
		zap.Int("retrieved_count", event.RetrievedCnt),
		zap.Int("citation_count", event.CitationCnt),
		zap.String("outcome", event.Outcome),
		zap.Int64("event_time", event.EventTimeUnix),
	)
}
