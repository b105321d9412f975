// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package cache

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// KeySeparator joins the segments of a cache key.
const KeySeparator = ":"

// Key joins a loader identity and its parameters into a readable cache key.
// Keys built this way can be invalidated by prefix with DeletePrefix.
//
//	cache.Key("fishbone", "client", clientID, "page", "0")
//	// fishbone:client:<id>:page:0
func Key(parts ...string) string {
	return strings.Join(parts, KeySeparator)
}

// GenerateKey creates a compact cache key from a prefix and arbitrary
// parameters by hashing their JSON encoding.
func GenerateKey(prefix string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s%s%v", prefix, KeySeparator, params)
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s%s%x", prefix, KeySeparator, hash[:16])
}
