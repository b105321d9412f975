// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

// Package validation checks the shape of loaded entities, the assembled view
// and API request bodies.
//
// Two layers share one go-playground/validator instance:
//
//   - ValidateStruct runs `validate` struct tags and returns a
//     *RequestError whose ToAPIError is the VALIDATION_ERROR response body.
//   - Stages, ClientOptions, Client, Mappings and View run the tags on every
//     element plus cross-record checks (duplicate ids, parent references,
//     ordinal collisions, failed supplier joins) and return a Result.
//
// Shape checks are advisory. They never panic and never block a load: the
// loaders call Result.Log and carry on.
//
//	res := validation.Stages(stages)
//	res.Log(logger, "stages")
//
// Besides the built-in tags, "notblank" is registered so that identities and
// names made only of whitespace are rejected.
package validation
