package models

import (
	"time"

	"gorm.io/gorm"
)

// Metric categories
const (
	CategoryBackend  = "backend"
	CategoryFrontend = "frontend"
)

// Comparison job statuses
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Comparison types
const (
	ComparisonTypeFull     = "full"
	ComparisonTypeBackend  = "backend"
	ComparisonTypeFrontend = "frontend"
)

// TestRun registers one performance test execution whose aggregated metrics
// have been ingested. It is the reference point baselines and comparisons
// resolve run identifiers against.
type TestRun struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	RunID       string         `gorm:"uniqueIndex;size:100;not null" json:"run_id"`
	Application string         `gorm:"size:200;index" json:"application"`
	Environment string         `gorm:"size:50;index" json:"environment"` // development, staging, production
	Categories  string         `gorm:"size:100" json:"categories"`       // comma list: backend,frontend
	Source      string         `gorm:"size:100" json:"source"`           // originating tool label, e.g. jmeter, lighthouse
	StartedAt   *time.Time     `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// RunMetric is one already-aggregated metric value belonging to a run.
// SubEntity scopes the value to a transaction (backend) or page (frontend);
// empty means the run-wide overall value.
type RunMetric struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RunID     string    `gorm:"size:100;index:idx_run_metric,priority:1;not null" json:"run_id"`
	Category  string    `gorm:"size:20;index:idx_run_metric,priority:2;not null" json:"category"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Value     float64   `json:"value"`
	SubEntity string    `gorm:"size:200;default:''" json:"sub_entity,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Baseline is a named pointer to one historical run, tagged by application,
// environment and version. Its metric values are denormalized into
// BaselineMetric rows at creation time so later changes to the source run
// cannot invalidate historical comparisons.
type Baseline struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	BaselineID  string           `gorm:"uniqueIndex;size:40;not null" json:"baseline_id"` // public uuid
	RunID       string           `gorm:"size:100;index;not null" json:"run_id"`
	Application string           `gorm:"size:200;index;not null" json:"application"`
	Environment string           `gorm:"size:50;index;not null" json:"environment"`
	Version     string           `gorm:"size:100" json:"version"`
	Name        string           `gorm:"size:200;not null" json:"name"`
	Description string           `gorm:"type:text" json:"description"`
	IsActive    bool             `gorm:"default:true;index" json:"is_active"`
	CreatedBy   string           `gorm:"size:100" json:"created_by"`
	Metrics     []BaselineMetric `gorm:"foreignKey:BaselineRef;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	DeletedAt   gorm.DeletedAt   `gorm:"index" json:"-"`
}

// BaselineMetric is an immutable snapshot row copied from RunMetric when the
// owning baseline is created. Never updated; deleted only with its baseline.
type BaselineMetric struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	BaselineRef uint      `gorm:"index;not null" json:"-"`
	Category    string    `gorm:"size:20;not null" json:"category"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Value       float64   `json:"value"`
	SubEntity   string    `gorm:"size:200;default:''" json:"sub_entity,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ComparisonJob is one comparison invocation and, once completed, its result.
// The row is the single source of truth for job state; it is mutated in place
// through pending -> processing -> completed|failed and terminal afterwards.
type ComparisonJob struct {
	ID             uint               `gorm:"primaryKey" json:"id"`
	JobID          string             `gorm:"uniqueIndex;size:40;not null" json:"job_id"` // public uuid
	BaselineID     string             `gorm:"size:40;index;not null" json:"baseline_id"`
	CurrentRunID   string             `gorm:"size:100;not null" json:"current_run_id"`
	ComparisonType string             `gorm:"size:20;not null" json:"comparison_type"` // full, backend, frontend
	Status         string             `gorm:"size:20;default:pending;index" json:"status"`
	ErrorMessage   string             `gorm:"type:text" json:"error_message,omitempty"`
	OverallScore   *float64           `json:"overall_score,omitempty"`
	BackendScore   *float64           `json:"backend_score,omitempty"`
	FrontendScore  *float64           `json:"frontend_score,omitempty"`
	Reliability    *float64           `json:"reliability_score,omitempty"`
	Verdict        string             `gorm:"size:30" json:"verdict,omitempty"` // approved, monitor, approval_needed, blocked
	Regressions    int                `json:"regression_count"`
	Improvements   int                `json:"improvement_count"`
	StableCount    int                `json:"stable_count"`
	Payload        string             `gorm:"type:text" json:"-"` // ComparisonPayload JSON
	Summary        string             `gorm:"type:text" json:"-"` // generated natural-language report
	Details        []RegressionDetail `gorm:"foreignKey:JobRef;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt      time.Time          `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time          `gorm:"index" json:"updated_at"`
}

// RegressionDetail is one non-stable metric comparison, normalized out of the
// job payload so severity/category queries never have to parse JSON.
type RegressionDetail struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	JobRef        uint      `gorm:"index;not null" json:"-"`
	JobID         string    `gorm:"size:40;index" json:"job_id"`
	MetricName    string    `gorm:"size:100;not null" json:"metric_name"`
	SubEntity     string    `gorm:"size:200;default:''" json:"sub_entity,omitempty"`
	Category      string    `gorm:"size:20;index" json:"category"`
	BaselineValue float64   `json:"baseline_value"`
	CurrentValue  float64   `json:"current_value"`
	PercentChange float64   `json:"percent_change"`
	Severity      string    `gorm:"size:20;index" json:"severity"`
	ChangeType    string    `gorm:"size:20" json:"change_type"` // regression, improvement
	CreatedAt     time.Time `json:"created_at"`
}

// SystemLog records audited operations: baseline lifecycle, job failures,
// retention cleanup.
type SystemLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Level     string    `gorm:"size:20;index" json:"level"` // info, warning, error
	Module    string    `gorm:"size:100;index" json:"module"`
	Action    string    `gorm:"size:200;index" json:"action"`
	Message   string    `gorm:"type:text" json:"message"`
	Extra     string    `gorm:"type:text" json:"extra"` // JSON extra data
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName overrides
func (TestRun) TableName() string          { return "test_runs" }
func (RunMetric) TableName() string        { return "run_metrics" }
func (Baseline) TableName() string         { return "baselines" }
func (BaselineMetric) TableName() string   { return "baseline_metrics" }
func (ComparisonJob) TableName() string    { return "comparison_jobs" }
func (RegressionDetail) TableName() string { return "regression_details" }
func (SystemLog) TableName() string        { return "system_logs" }
