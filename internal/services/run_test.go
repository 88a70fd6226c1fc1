package services

import (
	"testing"

	"github.com/perfgate/backend/internal/models"
)

func TestRunListRequest_Defaults(t *testing.T) {
	req := &RunListRequest{}

	if req.Page != 0 {
		t.Errorf("default Page should be 0, got %d", req.Page)
	}
	if req.PageSize != 0 {
		t.Errorf("default PageSize should be 0, got %d", req.PageSize)
	}
}

func TestIngestRunRequest_Structure(t *testing.T) {
	req := &IngestRunRequest{
		RunID:       "run-2026-08-01",
		Application: "storefront",
		Environment: "staging",
		Source:      "jmeter",
		Metrics: map[string][]IngestMetric{
			models.CategoryBackend: {
				{Name: "avg_response_time", Value: 120.5},
				{Name: "error_rate", Value: 0.4, SubEntity: "checkout"},
			},
		},
	}

	if req.RunID != "run-2026-08-01" {
		t.Errorf("RunID = %q, expected %q", req.RunID, "run-2026-08-01")
	}
	if req.Application != "storefront" {
		t.Errorf("Application = %q, expected %q", req.Application, "storefront")
	}
	if len(req.Metrics[models.CategoryBackend]) != 2 {
		t.Errorf("backend metrics = %d, expected 2", len(req.Metrics[models.CategoryBackend]))
	}
	if req.Metrics[models.CategoryBackend][1].SubEntity != "checkout" {
		t.Error("SubEntity should be preserved")
	}
}

func TestSplitCategories(t *testing.T) {
	set := splitCategories("backend, frontend")

	if !set["backend"] || !set["frontend"] {
		t.Errorf("set = %v, expected backend and frontend", set)
	}
	if len(set) != 2 {
		t.Errorf("len = %d, expected 2", len(set))
	}
}

func TestSplitCategories_Empty(t *testing.T) {
	if set := splitCategories(""); len(set) != 0 {
		t.Errorf("set = %v, expected empty", set)
	}
}

func TestJoinCategories_StableOrder(t *testing.T) {
	got := joinCategories(map[string]bool{"frontend": true, "backend": true})

	if got != "backend,frontend" {
		t.Errorf("joined = %q, expected %q", got, "backend,frontend")
	}
}

func TestJoinCategories_SingleCategory(t *testing.T) {
	if got := joinCategories(map[string]bool{"frontend": true}); got != "frontend" {
		t.Errorf("joined = %q, expected %q", got, "frontend")
	}
}

func TestMetricSet_AddAndEmpty(t *testing.T) {
	set := NewMetricSet()
	if !set.Empty() {
		t.Error("fresh set should be empty")
	}

	set.add("load_time", 1800, "")
	set.add("load_time", 2100, "dashboard")

	if set.Empty() {
		t.Error("populated set should not be empty")
	}
	if set.Overall["load_time"] != 1800 {
		t.Errorf("Overall load_time = %v, expected 1800", set.Overall["load_time"])
	}
	if set.BySubEntity["dashboard"]["load_time"] != 2100 {
		t.Errorf("dashboard load_time = %v, expected 2100", set.BySubEntity["dashboard"]["load_time"])
	}
}

func TestMetricSet_NilIsEmpty(t *testing.T) {
	var set *MetricSet
	if !set.Empty() {
		t.Error("nil set should report empty")
	}
}
