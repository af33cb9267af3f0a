/*
SPDX-FileCopyrightText: Copyright (c) 2026 NVIDIA CORPORATION & AFFILIATES. All rights reserved.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.

SPDX-License-Identifier: Apache-2.0
*/

package qrm

import (
	"strconv"
	"strings"
	"time"
)

// dateFields is the number of underscore-separated fields the date
// suffix occupies: YYYY_MM_DD_HH_MM_SS.
const dateFields = 6

// dateTokenLayout mirrors the original token suffix: "_2006_01_02_15_04_05".
const dateTokenLayout = "2006_01_02_15_04_05"

// DatedToken derives the active token for seed at instant now. If seed
// already carries a trailing date suffix, it is stripped before the
// fresh one is appended, so re-derivation is idempotent on the prefix.
func DatedToken(seed string, now time.Time) string {
	prefix := SeedPrefix(seed)
	return prefix + "_" + now.Format(dateTokenLayout)
}

// SeedPrefix strips a trailing "_YYYY_MM_DD_HH_MM_SS" suffix from token,
// if present, returning the bare seed. Seeds may themselves contain
// underscores; only the last six underscore-separated fields are ever
// treated as the date.
func SeedPrefix(token string) string {
	parts := strings.Split(token, "_")
	if len(parts) <= dateFields {
		return token
	}
	tail := parts[len(parts)-dateFields:]
	if !looksLikeDateSuffix(tail) {
		return token
	}
	return strings.Join(parts[:len(parts)-dateFields], "_")
}

// looksLikeDateSuffix reports whether the six fields parse as a
// plausible YYYY MM DD HH MM SS date tuple.
func looksLikeDateSuffix(fields []string) bool {
	if len(fields) != dateFields {
		return false
	}
	bounds := [dateFields][2]int{
		{1000, 9999}, // year
		{1, 12},      // month
		{1, 31},      // day
		{0, 23},      // hour
		{0, 59},      // minute
		{0, 59},      // second
	}
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return false
		}
		if n < bounds[i][0] || n > bounds[i][1] {
			return false
		}
	}
	return true
}
