package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks implements every hook interface by writing debug-level log lines.
type LogHooks struct {
	Logger *log.Logger
}

// NewLogHooks returns hooks that log to logger.
func NewLogHooks(logger *log.Logger) *LogHooks {
	if logger == nil {
		logger = log.Default()
	}
	return &LogHooks{Logger: logger}
}

func (h *LogHooks) OnStageStart(_ context.Context, buildID, stage string) {
	h.Logger.Debug("stage start", "build", buildID, "stage", stage)
}

func (h *LogHooks) OnStageComplete(_ context.Context, buildID, stage string, items int, d time.Duration, err error) {
	if err != nil {
		h.Logger.Debug("stage failed", "build", buildID, "stage", stage, "duration", d, "err", err)
		return
	}
	h.Logger.Debug("stage done", "build", buildID, "stage", stage, "items", items, "duration", d)
}

func (h *LogHooks) OnBuildComplete(_ context.Context, buildID string, chunks int, d time.Duration, err error) {
	h.Logger.Debug("build complete", "build", buildID, "chunks", chunks, "duration", d, "ok", err == nil)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.Logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.Logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.Logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, route string) {
	h.Logger.Debug("request", "method", method, "route", route)
}

func (h *LogHooks) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	h.Logger.Info("response", "method", method, "route", route, "status", status, "duration", d)
}

var (
	_ BuildHooks = (*LogHooks)(nil)
	_ CacheHooks = (*LogHooks)(nil)
	_ HTTPHooks  = (*LogHooks)(nil)
)
