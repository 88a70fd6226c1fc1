package services

import (
	"errors"
	"testing"

	"github.com/perfgate/backend/internal/models"
)

func TestCreateBaselineRequest_RequiredFields(t *testing.T) {
	req := &CreateBaselineRequest{
		RunID:       "run-10",
		Application: "storefront",
		Environment: "production",
		Name:        "v2.4.0 release candidate",
	}

	if req.RunID == "" {
		t.Error("RunID is required")
	}
	if req.Application == "" {
		t.Error("Application is required")
	}
	if req.Environment == "" {
		t.Error("Environment is required")
	}
	if req.Name == "" {
		t.Error("Name is required")
	}
}

func TestCreateBaselineRequest_AllFields(t *testing.T) {
	req := &CreateBaselineRequest{
		RunID:       "run-10",
		Application: "storefront",
		Environment: "production",
		Version:     "2.4.0",
		Name:        "v2.4.0 release candidate",
		Description: "post load-test snapshot",
		CreatedBy:   "release-bot",
	}

	if req.Version != "2.4.0" {
		t.Errorf("Version = %q, expected %q", req.Version, "2.4.0")
	}
	if req.Description != "post load-test snapshot" {
		t.Errorf("Description = %q, expected %q", req.Description, "post load-test snapshot")
	}
	if req.CreatedBy != "release-bot" {
		t.Errorf("CreatedBy = %q, expected %q", req.CreatedBy, "release-bot")
	}
}

func TestUpdateBaselineRequest_PartialUpdate(t *testing.T) {
	desc := ""
	req := &UpdateBaselineRequest{
		Name:        "renamed",
		Description: &desc,
	}

	if req.Name != "renamed" {
		t.Errorf("Name = %q, expected %q", req.Name, "renamed")
	}
	if req.Description == nil || *req.Description != "" {
		t.Error("Description pointer should allow clearing to an empty string")
	}
	if req.Version != "" {
		t.Errorf("Version = %q, expected empty", req.Version)
	}
}

func TestBaselineListRequest_Filters(t *testing.T) {
	req := &BaselineListRequest{
		Application: "storefront",
		Environment: "staging",
		ActiveOnly:  true,
	}

	if req.Application != "storefront" {
		t.Errorf("Application = %q, expected %q", req.Application, "storefront")
	}
	if req.Environment != "staging" {
		t.Errorf("Environment = %q, expected %q", req.Environment, "staging")
	}
	if !req.ActiveOnly {
		t.Error("ActiveOnly should be true")
	}
}

func TestBaselineCreate_SnapshotIsImmutable(t *testing.T) {
	db := newTestDB(t)
	svc := NewBaselineService(db)

	ingestTestRun(t, db, "run-1", map[string][]IngestMetric{
		models.CategoryBackend: {
			{Name: "avg_response_time", Value: 100},
			{Name: "error_rate", Value: 1},
		},
	})

	baseline, err := svc.Create(&CreateBaselineRequest{
		RunID:       "run-1",
		Application: "storefront",
		Environment: "staging",
		Name:        "v1",
	})
	if err != nil {
		t.Fatalf("Create returned %v", err)
	}
	if !baseline.IsActive {
		t.Error("a new baseline should be active")
	}

	var snapCount int64
	db.Model(&models.BaselineMetric{}).Where("baseline_ref = ?", baseline.ID).Count(&snapCount)
	if snapCount != 2 {
		t.Errorf("snapshot rows = %d, expected 2", snapCount)
	}

	// re-ingesting the source run must not touch the snapshot
	ingestTestRun(t, db, "run-1", map[string][]IngestMetric{
		models.CategoryBackend: {
			{Name: "avg_response_time", Value: 999},
			{Name: "error_rate", Value: 9},
		},
	})

	set, err := NewMetricStore(db).BaselineMetrics(baseline.ID, models.CategoryBackend)
	if err != nil {
		t.Fatalf("BaselineMetrics returned %v", err)
	}
	if set.Overall["avg_response_time"] != 100 {
		t.Errorf("snapshot avg_response_time = %v, expected the original 100", set.Overall["avg_response_time"])
	}
}

func TestBaselineCreate_SingleActivePerAppEnv(t *testing.T) {
	db := newTestDB(t)
	svc := NewBaselineService(db)

	ingestTestRun(t, db, "run-1", map[string][]IngestMetric{
		models.CategoryBackend: {{Name: "avg_response_time", Value: 100}},
	})

	first, err := svc.Create(&CreateBaselineRequest{
		RunID: "run-1", Application: "storefront", Environment: "staging", Name: "v1",
	})
	if err != nil {
		t.Fatalf("first Create returned %v", err)
	}
	second, err := svc.Create(&CreateBaselineRequest{
		RunID: "run-1", Application: "storefront", Environment: "staging", Name: "v2",
	})
	if err != nil {
		t.Fatalf("second Create returned %v", err)
	}

	reloaded, err := svc.Get(first.BaselineID)
	if err != nil {
		t.Fatalf("Get returned %v", err)
	}
	if reloaded.IsActive {
		t.Error("the previous baseline should have been deactivated")
	}
	if !second.IsActive {
		t.Error("the newest baseline should be the active one")
	}
}

func TestBaselineCreate_RunWithoutMetrics(t *testing.T) {
	db := newTestDB(t)
	svc := NewBaselineService(db)

	_, err := svc.Create(&CreateBaselineRequest{
		RunID: "ghost", Application: "storefront", Environment: "staging", Name: "empty",
	})
	if !errors.Is(err, ErrRunMetricsNotFound) {
		t.Errorf("Create = %v, expected ErrRunMetricsNotFound", err)
	}
}

func TestBaselineDeactivate_KeepsBaselineReadable(t *testing.T) {
	db := newTestDB(t)
	svc := NewBaselineService(db)

	ingestTestRun(t, db, "run-1", map[string][]IngestMetric{
		models.CategoryBackend: {{Name: "avg_response_time", Value: 100}},
	})
	baseline, err := svc.Create(&CreateBaselineRequest{
		RunID: "run-1", Application: "storefront", Environment: "staging", Name: "v1",
	})
	if err != nil {
		t.Fatalf("Create returned %v", err)
	}

	deactivated, err := svc.Deactivate(baseline.BaselineID)
	if err != nil {
		t.Fatalf("Deactivate returned %v", err)
	}
	if deactivated.IsActive {
		t.Error("IsActive should be false after deactivation")
	}

	if _, err := svc.Get(baseline.BaselineID); err != nil {
		t.Errorf("a deactivated baseline must stay readable, Get returned %v", err)
	}
}

func TestBaselineDelete_RemovesSnapshot(t *testing.T) {
	db := newTestDB(t)
	svc := NewBaselineService(db)

	ingestTestRun(t, db, "run-1", map[string][]IngestMetric{
		models.CategoryBackend: {{Name: "avg_response_time", Value: 100}},
	})
	baseline, err := svc.Create(&CreateBaselineRequest{
		RunID: "run-1", Application: "storefront", Environment: "staging", Name: "v1",
	})
	if err != nil {
		t.Fatalf("Create returned %v", err)
	}

	if err := svc.Delete(baseline.BaselineID); err != nil {
		t.Fatalf("Delete returned %v", err)
	}

	if _, err := svc.Get(baseline.BaselineID); !errors.Is(err, ErrBaselineNotFound) {
		t.Errorf("Get after delete = %v, expected ErrBaselineNotFound", err)
	}

	var snapCount int64
	db.Model(&models.BaselineMetric{}).Where("baseline_ref = ?", baseline.ID).Count(&snapCount)
	if snapCount != 0 {
		t.Errorf("snapshot rows = %d, expected cascade to remove them", snapCount)
	}
}
