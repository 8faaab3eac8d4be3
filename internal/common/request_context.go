// request_context.go - Request tracking and logging system

package common

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestContext tracks one OCR request with timing per processing step
type RequestContext struct {
	RequestID        string
	Route            string
	StartTime        time.Time
	Steps            []StepLog
	CurrentStep      string
	CurrentStepStart time.Time

	log *zap.SugaredLogger
}

// StepLog represents a single processing step
type StepLog struct {
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Duration  int64     `json:"duration_ms"`
	Status    string    `json:"status"` // "success", "failed"
	Error     string    `json:"error,omitempty"`
}

// Map step names to log descriptions
var stepDescriptions = map[string]string{
	"validate_input": "🧾 ตรวจสอบไฟล์",
	"stage_file":     "💾 บันทึกไฟล์ชั่วคราว",
	"preprocess":     "🔧 ปรับคุณภาพรูป",
	"inference":      "🔍 อ่านข้อความ (OCR)",
}

// NewRequestContext creates a new request tracking context
func NewRequestContext(route string) *RequestContext {
	reqID := uuid.New().String()
	return &RequestContext{
		RequestID: reqID,
		Route:     route,
		StartTime: time.Now(),
		Steps:     []StepLog{},
		log:       Logger().With("request_id", reqID, "route", route),
	}
}

func (rc *RequestContext) logger() *zap.SugaredLogger {
	if rc == nil || rc.log == nil {
		return Logger()
	}
	return rc.log
}

// StartStep begins tracking a new processing step
func (rc *RequestContext) StartStep(stepName string) {
	if rc == nil {
		return
	}
	rc.CurrentStep = stepName
	rc.CurrentStepStart = time.Now()

	desc := stepDescriptions[stepName]
	if desc == "" {
		desc = stepName
	}
	rc.logger().Debugw("┌── "+desc, "step", stepName)
}

// EndStep completes the current step and records timing
func (rc *RequestContext) EndStep(status string, err error) {
	if rc == nil || rc.CurrentStep == "" {
		return
	}
	duration := time.Since(rc.CurrentStepStart).Milliseconds()

	step := StepLog{
		Name:      rc.CurrentStep,
		StartTime: rc.CurrentStepStart,
		Duration:  duration,
		Status:    status,
	}
	if err != nil {
		step.Error = err.Error()
		rc.logger().Warnw("❌ step failed", "step", rc.CurrentStep, "duration_ms", duration, "error", err)
	} else {
		rc.logger().Debugw("└── ✅ step done", "step", rc.CurrentStep, "duration_ms", duration)
	}

	rc.Steps = append(rc.Steps, step)
	rc.CurrentStep = ""
}

// LogInfo logs info-level message with request ID field
func (rc *RequestContext) LogInfo(format string, args ...interface{}) {
	rc.logger().Infof(format, args...)
}

// LogWarning logs warning-level message with request ID field
func (rc *RequestContext) LogWarning(format string, args ...interface{}) {
	rc.logger().Warnf(format, args...)
}

// LogError logs error-level message with request ID field.
// The production encoder attaches a stack trace at this level.
func (rc *RequestContext) LogError(format string, args ...interface{}) {
	rc.logger().Errorf(format, args...)
}

// GetSummary returns a final summary of the request
func (rc *RequestContext) GetSummary() map[string]interface{} {
	totalDuration := time.Since(rc.StartTime).Milliseconds()

	stepBreakdown := make(map[string]int64, len(rc.Steps))
	for _, step := range rc.Steps {
		stepBreakdown[step.Name] = step.Duration
	}

	return map[string]interface{}{
		"request_id":        rc.RequestID,
		"route":             rc.Route,
		"total_duration_ms": totalDuration,
		"step_breakdown":    stepBreakdown,
		"total_steps":       len(rc.Steps),
	}
}

// Finish logs the request outcome with its HTTP status
func (rc *RequestContext) Finish(status int) {
	if rc == nil {
		return
	}
	summary := rc.GetSummary()
	elapsed := time.Since(rc.StartTime)
	msg := fmt.Sprintf("🎯 %s finished in %.2fs", rc.Route, elapsed.Seconds())
	fields := []interface{}{
		"status", status,
		"duration_ms", summary["total_duration_ms"],
		"steps", summary["step_breakdown"],
	}
	if status >= 500 {
		rc.logger().Errorw(msg, fields...)
		return
	}
	rc.logger().Infow(msg, fields...)
}
