// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package validation

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tomtom215/fishbone/internal/logging"
	"github.com/tomtom215/fishbone/internal/models"
)

func containsFinding(findings []string, substr string) bool {
	for _, f := range findings {
		if strings.Contains(f, substr) {
			return true
		}
	}
	return false
}

func TestStages(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		res := Stages([]models.Stage{
			{ID: "s1", Name: "One", Order: 1, Active: true, SubStages: []models.SubStage{
				{ID: "a", StageID: "s1", Name: "A", Order: 1, Active: true},
			}},
			{ID: "s2", Name: "Two", Order: 2, Active: true, SubStages: []models.SubStage{}},
		})
		if !res.IsValid || len(res.Errors) != 0 || len(res.Warnings) != 0 {
			t.Errorf("Stages() = %+v, want clean", res)
		}
	})

	t.Run("structural problems", func(t *testing.T) {
		t.Parallel()
		res := Stages([]models.Stage{
			{ID: "s1", Name: "One", Order: 1, Active: true, SubStages: []models.SubStage{
				{ID: "a", StageID: "other", Name: "A", Active: true},
			}},
			{ID: "s1", Name: "  ", Order: 1, Active: true},
		})

		if res.IsValid {
			t.Fatal("IsValid = true, want false")
		}
		if !containsFinding(res.Errors, `duplicate stage id "s1"`) {
			t.Errorf("missing duplicate id error: %v", res.Errors)
		}
		if !containsFinding(res.Errors, "stages[1]: nome must not be blank") {
			t.Errorf("missing blank name error: %v", res.Errors)
		}
		if !containsFinding(res.Warnings, "does not match parent") {
			t.Errorf("missing parent mismatch warning: %v", res.Warnings)
		}
		if !containsFinding(res.Warnings, "ordem 1 shared") {
			t.Errorf("missing ordinal warning: %v", res.Warnings)
		}
		if !containsFinding(res.Warnings, "stages[1]: subniveis is nil") {
			t.Errorf("missing nil collection warning: %v", res.Warnings)
		}
	})

	t.Run("nil", func(t *testing.T) {
		t.Parallel()
		res := Stages(nil)
		if !res.IsValid || len(res.Warnings) != 1 {
			t.Errorf("Stages(nil) = %+v, want valid with one warning", res)
		}
	})
}

func TestClientOptions_DuplicateIDs(t *testing.T) {
	t.Parallel()

	owner := models.CompanyRef{ID: "g1", Name: "Group", Category: models.CategoryInternalGroup}
	res := ClientOptions([]models.ClientOption{
		{ID: "c1", Name: "Acme", Owner: owner},
		{ID: "c2", Name: "Beta", Owner: owner},
		{ID: "c1", Name: "Acme again", Owner: owner},
	})

	if res.IsValid {
		t.Fatal("IsValid = true, want false")
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], `duplicate client option id "c1"`) {
		t.Errorf("Errors = %v", res.Errors)
	}
}

func TestClientOptions_MissingOwner(t *testing.T) {
	t.Parallel()

	res := ClientOptions([]models.ClientOption{{ID: "c1", Name: "Acme"}})
	if res.IsValid {
		t.Error("option without owner should be invalid")
	}
	if !containsFinding(res.Errors, "client_options[0]: id is required") {
		t.Errorf("Errors = %v", res.Errors)
	}
}

func TestClient(t *testing.T) {
	t.Parallel()

	if res := Client(nil); !res.IsValid {
		t.Errorf("Client(nil) = %+v, want valid", res)
	}

	res := Client(&models.Client{ID: "c1", Name: "Acme", Active: false})
	if !res.IsValid || !containsFinding(res.Warnings, "inactive") {
		t.Errorf("Client(inactive) = %+v", res)
	}

	if res := Client(&models.Client{Name: "No ID", Active: true}); res.IsValid {
		t.Error("client without id should be invalid")
	}
}

func TestMappings(t *testing.T) {
	t.Parallel()

	res := Mappings([]models.SupplierMapping{
		{ID: "m1", ClientID: "c1", StageID: "s1", Active: true, Supplier: &models.CompanyRef{ID: "p1", Name: "P"}},
		{ID: "m2", ClientID: "c1", StageID: "s1", Active: true},
		{ID: "m3", ClientID: "c1", StageID: "s1", Active: true, Supplier: &models.CompanyRef{ID: "p3"}},
	})

	if !containsFinding(res.Warnings, `mapping "m2" has no supplier`) {
		t.Errorf("Warnings = %v", res.Warnings)
	}
	if !containsFinding(res.Errors, "mappings[2].supplier: nome is required") {
		t.Errorf("Errors = %v", res.Errors)
	}
}

func TestView(t *testing.T) {
	t.Parallel()

	good := []models.StageNode{{
		ID: "s1", Name: "One", Suppliers: []models.SupplierEntry{{CompanyID: "p", Name: "P"}},
		SubStages: []models.SubStageNode{{ID: "a", Name: "A", Suppliers: []models.SupplierEntry{}}},
	}}
	if res := View(good); !res.IsValid || len(res.Warnings) != 0 {
		t.Errorf("View(good) = %+v", res)
	}

	bad := []models.StageNode{{ID: "s1", Name: "One", Gaps: 3}}
	res := View(bad)
	if res.IsValid {
		t.Error("gaps outside 0/1 should be an error")
	}
	if !containsFinding(res.Warnings, "fornecedores is nil") || !containsFinding(res.Warnings, "subniveis is nil") {
		t.Errorf("Warnings = %v", res.Warnings)
	}
}

func TestResult_MergeAndLog(t *testing.T) {
	t.Parallel()

	total := *newResult()
	total.Merge(Stages(nil))
	total.Merge(ClientOptions([]models.ClientOption{{ID: "", Name: "x"}}))

	if total.IsValid {
		t.Error("merged result should carry the invalid flag")
	}
	if len(total.Warnings) != 1 || len(total.Errors) == 0 {
		t.Errorf("merged = %+v", total)
	}

	var buf bytes.Buffer
	total.Log(logging.NewTestLogger(&buf), "test")
	if !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Errorf("Log output = %q", buf.String())
	}

	buf.Reset()
	clean := *newResult()
	clean.Log(logging.NewTestLogger(&buf), "test")
	if buf.Len() != 0 {
		t.Errorf("clean result logged %q", buf.String())
	}
}
