// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package version

import (
	"errors"
	"testing"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input string
		want  Version
	}{
		{"570.86.15", Version{Major: 570, Minor: 86, Patch: 15, Precision: 3}},
		{"535.104", Version{Major: 535, Minor: 104, Precision: 2}},
		{"570", Version{Major: 570, Precision: 1}},
		{"v1.2.3", Version{Major: 1, Minor: 2, Patch: 3, Precision: 3}},
		{"570.86.15-open", Version{Major: 570, Minor: 86, Patch: 15, Precision: 3, Extras: "-open"}},
		{"1.28.0+k3s1", Version{Major: 1, Minor: 28, Patch: 0, Precision: 3, Extras: "+k3s1"}},
	}

	for _, tc := range tests {
		got, err := ParseVersion(tc.input)
		if err != nil {
			t.Fatalf("ParseVersion(%q): %v", tc.input, err)
		}
		if got != tc.want {
			t.Errorf("ParseVersion(%q) = %+v, want %+v", tc.input, got, tc.want)
		}
	}
}

func TestParseVersionErrors(t *testing.T) {
	tests := []struct {
		input string
		want  error
	}{
		{"", ErrEmptyVersion},
		{"1.2.3.4", ErrTooManyComponents},
		{"abc", ErrNonNumeric},
		{"1..3", ErrNonNumeric},
		{"1.", ErrNonNumeric},
		{"-1", ErrNegativeComponent},
		{"1.-2", ErrNegativeComponent},
	}

	for _, tc := range tests {
		if _, err := ParseVersion(tc.input); !errors.Is(err, tc.want) {
			t.Errorf("ParseVersion(%q) error = %v, want %v", tc.input, err, tc.want)
		}
	}
}

func TestVersionString(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"570.86.15-open", "570.86.15"},
		{"535.104", "535.104"},
		{"570", "570"},
	}

	for _, tc := range tests {
		v, err := ParseVersion(tc.input)
		if err != nil {
			t.Fatalf("ParseVersion(%q): %v", tc.input, err)
		}
		if got := v.String(); got != tc.want {
			t.Errorf("String(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestEqualsOrNewer(t *testing.T) {
	tests := []struct {
		v     string
		other string
		want  bool
	}{
		{"570.86.15", "450.51", true},
		{"450.51.0", "450.51", true},
		{"450.50.99", "450.51", false},
		{"449.99.99", "450.51", false},
		// Precision 2 on the left ignores the other's patch.
		{"450.51", "450.51.7", true},
		{"570", "450.51.7", true},
	}

	for _, tc := range tests {
		v, err := ParseVersion(tc.v)
		if err != nil {
			t.Fatalf("ParseVersion(%q): %v", tc.v, err)
		}
		other, err := ParseVersion(tc.other)
		if err != nil {
			t.Fatalf("ParseVersion(%q): %v", tc.other, err)
		}
		if got := v.EqualsOrNewer(other); got != tc.want {
			t.Errorf("%q.EqualsOrNewer(%q) = %v, want %v", tc.v, tc.other, got, tc.want)
		}
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		v     string
		other string
		want  int
	}{
		{"570.86.15", "570.86.15", 0},
		{"570.86.14", "570.86.15", -1},
		{"570.86.16", "570.86.15", 1},
		{"535.104", "535.104.12", 0},
		{"535", "570.86.15", -1},
	}

	for _, tc := range tests {
		v, _ := ParseVersion(tc.v)
		other, _ := ParseVersion(tc.other)
		if got := v.Compare(other); got != tc.want {
			t.Errorf("%q.Compare(%q) = %d, want %d", tc.v, tc.other, got, tc.want)
		}
	}
}
