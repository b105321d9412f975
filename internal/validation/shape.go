// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package validation

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/fishbone/internal/metrics"
	"github.com/tomtom215/fishbone/internal/models"
)

// Result is the outcome of a shape check. Errors make IsValid false;
// warnings never do.
type Result struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func newResult() *Result {
	return &Result{IsValid: true, Errors: []string{}, Warnings: []string{}}
}

func (r *Result) errorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.IsValid = false
}

func (r *Result) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Merge appends other's findings to r.
func (r *Result) Merge(other Result) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	if !other.IsValid {
		r.IsValid = false
	}
}

// Log writes the findings at warn level and counts them. Nothing is logged
// for a clean result.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func (r *Result) Log(logger zerolog.Logger, subject string) {
	if len(r.Errors) == 0 && len(r.Warnings) == 0 {
		return
	}
	metrics.ValidationIssues.WithLabelValues(subject, "error").Add(float64(len(r.Errors)))
	metrics.ValidationIssues.WithLabelValues(subject, "warning").Add(float64(len(r.Warnings)))

	logger.Warn().
		Str("subject", subject).
		Bool("valid", r.IsValid).
		Strs("errors", r.Errors).
		Strs("warnings", r.Warnings).
		Msg("shape validation findings")
}

// guard turns a panic inside a check into an error finding.
func guard(r *Result, subject string) {
	if rec := recover(); rec != nil {
		r.errorf("%s: validator panicked: %v", subject, rec)
	}
}

// checkTags runs the struct tags of v and records each failure under path.
func checkTags(r *Result, path string, v interface{}) {
	if verr := ValidateStruct(v); verr != nil {
		for _, fe := range verr.Fields {
			r.errorf("%s: %s", path, fe.Message)
		}
	}
}

// Stages checks the journey structure: required fields, unique stage ids,
// sub-stage parent references and ordinal collisions.
func Stages(stages []models.Stage) (result Result) {
	r := newResult()
	defer func() { result = *r }()
	defer guard(r, "stages")

	if stages == nil {
		r.warnf("stages: collection is nil")
		return
	}

	ids := make(map[string]int, len(stages))
	ordinals := make(map[int]string, len(stages))
	for i := range stages {
		s := &stages[i]
		path := fmt.Sprintf("stages[%d]", i)
		checkTags(r, path, s)

		if prev, dup := ids[s.ID]; dup && s.ID != "" {
			r.errorf("%s: duplicate stage id %q (first at stages[%d])", path, s.ID, prev)
		} else {
			ids[s.ID] = i
		}

		if s.Active {
			if other, dup := ordinals[s.Order]; dup {
				r.warnf("%s: ordem %d shared with stage %q", path, s.Order, other)
			} else {
				ordinals[s.Order] = s.ID
			}
		}

		if s.SubStages == nil {
			r.warnf("%s: subniveis is nil", path)
			continue
		}
		subIDs := make(map[string]bool, len(s.SubStages))
		for j := range s.SubStages {
			sub := &s.SubStages[j]
			subPath := fmt.Sprintf("%s.subniveis[%d]", path, j)
			checkTags(r, subPath, sub)
			if sub.StageID != "" && sub.StageID != s.ID {
				r.warnf("%s: stage_id %q does not match parent %q", subPath, sub.StageID, s.ID)
			}
			if subIDs[sub.ID] && sub.ID != "" {
				r.warnf("%s: duplicate sub-stage id %q", subPath, sub.ID)
			}
			subIDs[sub.ID] = true
		}
	}
	return
}

// ClientOptions checks the client roster. Two options sharing an id is an
// error.
func ClientOptions(options []models.ClientOption) (result Result) {
	r := newResult()
	defer func() { result = *r }()
	defer guard(r, "client_options")

	if options == nil {
		r.warnf("client_options: collection is nil")
		return
	}

	seen := make(map[string]int, len(options))
	for i := range options {
		o := &options[i]
		path := fmt.Sprintf("client_options[%d]", i)
		checkTags(r, path, o)

		if prev, dup := seen[o.ID]; dup && o.ID != "" {
			r.errorf("%s: duplicate client option id %q (first at client_options[%d])", path, o.ID, prev)
			continue
		}
		seen[o.ID] = i
	}
	return
}

// Client checks a single client entity. A nil client is valid (not loaded).
func Client(c *models.Client) (result Result) {
	r := newResult()
	defer func() { result = *r }()
	defer guard(r, "client")

	if c == nil {
		return
	}
	checkTags(r, "client", c)
	if !c.Active {
		r.warnf("client: %q is inactive", c.ID)
	}
	return
}

// Mappings checks supplier mappings. A mapping whose supplier join failed is
// a warning; the assembler skips it.
func Mappings(mappings []models.SupplierMapping) (result Result) {
	r := newResult()
	defer func() { result = *r }()
	defer guard(r, "mappings")

	if mappings == nil {
		r.warnf("mappings: collection is nil")
		return
	}

	for i := range mappings {
		m := &mappings[i]
		path := fmt.Sprintf("mappings[%d]", i)
		checkTags(r, path, m)
		if m.Supplier == nil {
			r.warnf("%s: mapping %q has no supplier", path, m.ID)
		} else {
			checkTags(r, path+".supplier", m.Supplier)
		}
	}
	return
}

// View checks an assembled tree before it is handed to consumers.
func View(view []models.StageNode) (result Result) {
	r := newResult()
	defer func() { result = *r }()
	defer guard(r, "view")

	if view == nil {
		r.warnf("view: collection is nil")
		return
	}

	for i := range view {
		n := &view[i]
		path := fmt.Sprintf("view[%d]", i)
		checkTags(r, path, n)

		if n.Suppliers == nil {
			r.warnf("%s: fornecedores is nil", path)
		}
		if n.SubStages == nil {
			r.warnf("%s: subniveis is nil", path)
		}
		if n.Gaps != 0 && n.Gaps != 1 {
			r.errorf("%s: gaps %d is not 0 or 1", path, n.Gaps)
		}
		for j := range n.Suppliers {
			checkTags(r, fmt.Sprintf("%s.fornecedores[%d]", path, j), &n.Suppliers[j])
		}
		for j := range n.SubStages {
			sub := &n.SubStages[j]
			subPath := fmt.Sprintf("%s.subniveis[%d]", path, j)
			checkTags(r, subPath, sub)
			for k := range sub.Suppliers {
				checkTags(r, fmt.Sprintf("%s.fornecedores[%d]", subPath, k), &sub.Suppliers[k])
			}
		}
	}
	return
}
