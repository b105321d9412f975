// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package api

// Error codes returned in models.APIError.Code.
const (
	codeValidation     = "VALIDATION_ERROR"
	codeInvalidJSON    = "INVALID_JSON"
	codeNoActiveClient = "NO_ACTIVE_CLIENT"
	codeLoadFailed     = "LOAD_FAILED"
	codeNotFound       = "NOT_FOUND"
	codeMethod         = "METHOD_NOT_ALLOWED"
	codeRateLimited    = "RATE_LIMITED"
)
