package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/perfgate/backend/internal/config"
	"github.com/perfgate/backend/internal/models"
	"github.com/perfgate/backend/pkg/logger"
	"gorm.io/gorm"
)

// ComparisonPayload is the full structured comparator and correlation output,
// stored on the job row alongside the normalized regression rows.
type ComparisonPayload struct {
	ComparisonType string              `json:"comparison_type"`
	Backend        *BackendComparison  `json:"backend,omitempty"`
	Frontend       *FrontendComparison `json:"frontend,omitempty"`
	RootCauses     []RootCause         `json:"root_causes"`
	Assessment     *ReleaseAssessment  `json:"assessment"`
}

// ComparisonResult is the caller-facing view of a completed job.
type ComparisonResult struct {
	JobID          string            `json:"job_id"`
	BaselineID     string            `json:"baseline_id"`
	CurrentRunID   string            `json:"current_run_id"`
	ComparisonType string            `json:"comparison_type"`
	Status         string            `json:"status"`
	OverallScore   float64           `json:"overall_score"`
	BackendScore   *float64          `json:"backend_score,omitempty"`
	FrontendScore  *float64          `json:"frontend_score,omitempty"`
	Reliability    *float64          `json:"reliability_score,omitempty"`
	Verdict        string            `json:"verdict"`
	Regressions    int               `json:"regression_count"`
	Improvements   int               `json:"improvement_count"`
	StableCount    int               `json:"stable_count"`
	Payload        ComparisonPayload `json:"payload"`
	Summary        string            `json:"summary"`
	CreatedAt      time.Time         `json:"created_at"`
	CompletedAt    time.Time         `json:"completed_at"`
}

// ComparisonStatus is the pollable job state.
type ComparisonStatus struct {
	JobID        string    `json:"job_id"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	LastUpdated  time.Time `json:"last_updated"`
	// Stale marks a processing job whose last update is older than the
	// configured threshold. It is observability only; the job is not failed
	// automatically.
	Stale bool `json:"stale"`
}

type StartComparisonRequest struct {
	BaselineID     string `json:"baseline_id" binding:"required"`
	CurrentRunID   string `json:"current_run_id" binding:"required"`
	ComparisonType string `json:"comparison_type"`
}

// ComparisonService owns the comparison job lifecycle: it validates and
// creates jobs, drives the compare -> correlate -> score pipeline, and serves
// status/result reads. The job row is the single source of truth; no
// process-local state survives it.
type ComparisonService struct {
	db        *gorm.DB
	store     MetricStore
	queue     TaskQueue
	baselines *BaselineService
	backend   *BackendComparator
	frontend  *FrontendComparator
	scorer    *ReleaseScorer
	cfg       config.ComparisonConfig
}

func NewComparisonService(db *gorm.DB, store MetricStore, queue TaskQueue, cfg config.ComparisonConfig) *ComparisonService {
	return &ComparisonService{
		db:        db,
		store:     store,
		queue:     queue,
		baselines: NewBaselineService(db),
		backend:   NewBackendComparator(),
		frontend:  NewFrontendComparator(),
		scorer:    NewReleaseScorer(cfg.SummaryTopN),
		cfg:       cfg,
	}
}

// requiredCategories maps a comparison type to the metric categories both
// sides must provide. No partial results: a missing category fails validation
// up front rather than producing a partially-populated score later.
func requiredCategories(comparisonType string) ([]string, error) {
	switch comparisonType {
	case models.ComparisonTypeFull:
		return []string{models.CategoryBackend, models.CategoryFrontend}, nil
	case models.ComparisonTypeBackend:
		return []string{models.CategoryBackend}, nil
	case models.ComparisonTypeFrontend:
		return []string{models.CategoryFrontend}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidComparisonType, comparisonType)
	}
}

// Start validates the request synchronously, creates the pending job and
// enqueues it. Validation errors are raised to the caller; once the job is
// queued, all further errors surface only through its failed status.
func (s *ComparisonService) Start(req *StartComparisonRequest) (*models.ComparisonJob, error) {
	if req.ComparisonType == "" {
		req.ComparisonType = models.ComparisonTypeFull
	}
	categories, err := requiredCategories(req.ComparisonType)
	if err != nil {
		return nil, err
	}

	baseline, err := s.baselines.Get(req.BaselineID)
	if err != nil {
		return nil, err
	}

	for _, category := range categories {
		var count int64
		err := s.db.Model(&models.BaselineMetric{}).
			Where("baseline_ref = ? AND category = ?", baseline.ID, category).
			Count(&count).Error
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, fmt.Errorf("%w: category %s", ErrBaselineSnapshotEmpty, category)
		}

		ok, err := s.store.HasRunMetrics(req.CurrentRunID, category)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: run %s, category %s", ErrRunMetricsNotFound, req.CurrentRunID, category)
		}
	}

	job := models.ComparisonJob{
		JobID:          uuid.NewString(),
		BaselineID:     req.BaselineID,
		CurrentRunID:   req.CurrentRunID,
		ComparisonType: req.ComparisonType,
		Status:         models.JobStatusPending,
	}
	if err := s.db.Create(&job).Error; err != nil {
		return nil, err
	}

	if err := s.queue.Enqueue(&ComparisonTask{JobID: job.JobID}); err != nil {
		s.markFailed(&job, fmt.Sprintf("failed to enqueue: %v", err))
		return nil, err
	}

	logger.Info().
		Str("job_id", job.JobID).
		Str("baseline_id", req.BaselineID).
		Str("run_id", req.CurrentRunID).
		Str("type", req.ComparisonType).
		Msg("comparison job queued")

	return &job, nil
}

// Process drives one queued job to a terminal state. It is the TaskQueue /
// Worker processor; errors are persisted on the job and also returned for the
// queue's own logging.
func (s *ComparisonService) Process(ctx context.Context, task *ComparisonTask) (err error) {
	var job models.ComparisonJob
	if dbErr := s.db.Where("job_id = ?", task.JobID).First(&job).Error; dbErr != nil {
		return fmt.Errorf("job %s not found: %w", task.JobID, dbErr)
	}

	if job.Status != models.JobStatusPending {
		logger.Warnf("[Comparison] job %s already in status %s, skipping", job.JobID, job.Status)
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("internal processing error: %v", r)
			s.markFailed(&job, msg)
			err = fmt.Errorf("job %s panicked: %v", job.JobID, r)
		}
	}()

	job.Status = models.JobStatusProcessing
	if dbErr := s.db.Save(&job).Error; dbErr != nil {
		return dbErr
	}

	categories, err := requiredCategories(job.ComparisonType)
	if err != nil {
		s.markFailed(&job, err.Error())
		return err
	}

	baseline, err := s.baselines.Get(job.BaselineID)
	if err != nil {
		s.markFailed(&job, fmt.Sprintf("baseline not found: %s", job.BaselineID))
		return err
	}

	baselineSets, currentSets, err := s.fetchMetricSets(ctx, baseline.ID, job.CurrentRunID, categories)
	if err != nil {
		s.markFailed(&job, err.Error())
		return err
	}

	// strict sequential pipeline: compare, then correlate, then score
	var backendOut *BackendComparison
	var frontendOut *FrontendComparison
	if set, ok := currentSets[models.CategoryBackend]; ok {
		backendOut = s.backend.Compare(baselineSets[models.CategoryBackend], set)
	}
	if set, ok := currentSets[models.CategoryFrontend]; ok {
		frontendOut = s.frontend.Compare(baselineSets[models.CategoryFrontend], set)
	}

	causes := Correlate(backendOut, frontendOut)
	assessment := s.scorer.Score(job.ComparisonType, backendOut, frontendOut, causes)

	payload := ComparisonPayload{
		ComparisonType: job.ComparisonType,
		Backend:        backendOut,
		Frontend:       frontendOut,
		RootCauses:     causes,
		Assessment:     assessment,
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		s.markFailed(&job, fmt.Sprintf("failed to encode result payload: %v", err))
		return err
	}

	details := buildRegressionDetails(&job, backendOut, frontendOut)
	regressions, improvements, stable := countChanges(backendOut, frontendOut)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		job.Status = models.JobStatusCompleted
		job.OverallScore = &assessment.OverallScore
		job.BackendScore = assessment.BackendScore
		job.FrontendScore = assessment.FrontendScore
		job.Reliability = assessment.ReliabilityScore
		job.Verdict = assessment.Verdict
		job.Regressions = regressions
		job.Improvements = improvements
		job.StableCount = stable
		job.Payload = string(payloadJSON)
		job.Summary = assessment.Summary
		if err := tx.Save(&job).Error; err != nil {
			return err
		}
		if len(details) == 0 {
			return nil
		}
		return tx.CreateInBatches(details, 200).Error
	})
	if err != nil {
		s.markFailed(&job, fmt.Sprintf("failed to persist result: %v", err))
		return err
	}

	logger.Info().
		Str("job_id", job.JobID).
		Float64("score", assessment.OverallScore).
		Str("verdict", assessment.Verdict).
		Int("regressions", regressions).
		Msg("comparison job completed")

	return nil
}

// fetchMetricSets loads the baseline snapshot and the current run's metrics.
// The two reads are independent and run concurrently; everything after them is
// pure computation.
func (s *ComparisonService) fetchMetricSets(ctx context.Context, baselineRef uint, runID string, categories []string) (map[string]*MetricSet, map[string]*MetricSet, error) {
	baselineSets := make(map[string]*MetricSet, len(categories))
	currentSets := make(map[string]*MetricSet, len(categories))

	var wg sync.WaitGroup
	var baselineErr, currentErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		for _, category := range categories {
			set, err := s.store.BaselineMetrics(baselineRef, category)
			if err != nil {
				baselineErr = fmt.Errorf("baseline snapshot (%s): %w", category, err)
				return
			}
			baselineSets[category] = set
		}
	}()
	go func() {
		defer wg.Done()
		for _, category := range categories {
			set, err := s.store.RunMetrics(runID, category)
			if err != nil {
				currentErr = fmt.Errorf("current run %s (%s): %w", runID, category, err)
				return
			}
			currentSets[category] = set
		}
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if baselineErr != nil {
		return nil, nil, baselineErr
	}
	if currentErr != nil {
		return nil, nil, currentErr
	}
	return baselineSets, currentSets, nil
}

// markFailed transitions the job to its terminal failed state with a short
// diagnostic message. Failed jobs are never resumed; retrying means a new job.
func (s *ComparisonService) markFailed(job *models.ComparisonJob, msg string) {
	job.Status = models.JobStatusFailed
	job.ErrorMessage = msg
	if err := s.db.Save(job).Error; err != nil {
		logger.Errorf("[Comparison] failed to persist failure for job %s: %v", job.JobID, err)
	}
	LogError("comparison", "job_failed", msg, map[string]interface{}{"job_id": job.JobID})
}

func buildRegressionDetails(job *models.ComparisonJob, be *BackendComparison, fe *FrontendComparison) []models.RegressionDetail {
	var all []MetricComparison
	if be != nil {
		all = append(all, be.Results...)
	}
	if fe != nil {
		all = append(all, fe.Results...)
	}

	var details []models.RegressionDetail
	for _, r := range all {
		if r.ChangeType == ChangeStable {
			continue
		}
		details = append(details, models.RegressionDetail{
			JobRef:        job.ID,
			JobID:         job.JobID,
			MetricName:    r.Metric,
			SubEntity:     r.SubEntity,
			Category:      r.Category,
			BaselineValue: r.BaselineValue,
			CurrentValue:  r.CurrentValue,
			PercentChange: r.PercentChange,
			Severity:      string(r.Severity),
			ChangeType:    string(r.ChangeType),
		})
	}
	return details
}

func countChanges(be *BackendComparison, fe *FrontendComparison) (regressions, improvements, stable int) {
	count := func(results []MetricComparison) {
		for _, r := range results {
			switch r.ChangeType {
			case ChangeRegression:
				regressions++
			case ChangeImprovement:
				improvements++
			default:
				stable++
			}
		}
	}
	if be != nil {
		count(be.Results)
	}
	if fe != nil {
		count(fe.Results)
	}
	return
}

// Status returns the pollable job state, flagging staleness when a processing
// job has not been updated within the configured threshold.
func (s *ComparisonService) Status(jobID string) (*ComparisonStatus, error) {
	job, err := s.getJob(jobID)
	if err != nil {
		return nil, err
	}

	staleAfter := time.Duration(s.cfg.StaleAfterMinutes) * time.Minute
	stale := job.Status == models.JobStatusProcessing && time.Since(job.UpdatedAt) > staleAfter

	return &ComparisonStatus{
		JobID:        job.JobID,
		Status:       job.Status,
		ErrorMessage: job.ErrorMessage,
		LastUpdated:  job.UpdatedAt,
		Stale:        stale,
	}, nil
}

// Result returns the full structured result of a completed job. Terminal
// results are static; repeated reads return identical payloads.
func (s *ComparisonService) Result(jobID string) (*ComparisonResult, error) {
	job, err := s.getJob(jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusCompleted {
		return nil, fmt.Errorf("%w: job %s is %s", ErrResultNotReady, jobID, job.Status)
	}

	var payload ComparisonPayload
	if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
		return nil, fmt.Errorf("corrupt result payload for job %s: %w", jobID, err)
	}

	result := &ComparisonResult{
		JobID:          job.JobID,
		BaselineID:     job.BaselineID,
		CurrentRunID:   job.CurrentRunID,
		ComparisonType: job.ComparisonType,
		Status:         job.Status,
		BackendScore:   job.BackendScore,
		FrontendScore:  job.FrontendScore,
		Reliability:    job.Reliability,
		Verdict:        job.Verdict,
		Regressions:    job.Regressions,
		Improvements:   job.Improvements,
		StableCount:    job.StableCount,
		Payload:        payload,
		Summary:        job.Summary,
		CreatedAt:      job.CreatedAt,
		CompletedAt:    job.UpdatedAt,
	}
	if job.OverallScore != nil {
		result.OverallScore = *job.OverallScore
	}
	return result, nil
}

// Regressions lists the normalized rows of a job, optionally filtered by
// category and severity. Both regressions and improvements are persisted, but
// an unfiltered read returns the regression rows only, so its length always
// matches the job's regression count; pass changeType "improvement" for the
// gains.
func (s *ComparisonService) Regressions(jobID, category, severity, changeType string) ([]models.RegressionDetail, error) {
	job, err := s.getJob(jobID)
	if err != nil {
		return nil, err
	}

	if changeType == "" {
		changeType = string(ChangeRegression)
	}

	query := s.db.Where("job_ref = ? AND change_type = ?", job.ID, changeType)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if severity != "" {
		query = query.Where("severity = ?", severity)
	}

	var details []models.RegressionDetail
	if err := query.Order("id").Find(&details).Error; err != nil {
		return nil, err
	}
	return details, nil
}

// Summary returns the generated natural-language report of a completed job.
func (s *ComparisonService) Summary(jobID string) (string, error) {
	job, err := s.getJob(jobID)
	if err != nil {
		return "", err
	}
	if job.Status != models.JobStatusCompleted {
		return "", fmt.Errorf("%w: job %s is %s", ErrResultNotReady, jobID, job.Status)
	}
	return job.Summary, nil
}

func (s *ComparisonService) getJob(jobID string) (*models.ComparisonJob, error) {
	var job models.ComparisonJob
	err := s.db.Where("job_id = ?", jobID).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &job, nil
}
