/*
 * Copyright 2024 The Halyard Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package radix

import (
	"regexp"
	"strings"

	"github.com/halyardhttp/halyard/pkg/errors"
)

// constraint validates a concrete path segment against a typed parameter.
// Validation failure causes backtracking to sibling branches, never a hard
// routing failure.
type constraint interface {
	Validate(segment string) bool
	Spec() string
}

// newConstraint returns the constraint for the provided spec. Supported
// specs are "int", "uuid", "alpha" and "re:<pattern>".
func newConstraint(spec string) (constraint, error) {
	switch {
	case spec == "int":
		return intConstraint{}, nil
	case spec == "uuid":
		return uuidConstraint{}, nil
	case spec == "alpha":
		return alphaConstraint{}, nil
	case strings.HasPrefix(spec, "re:"):
		re, err := regexp.Compile("^(?:" + spec[3:] + ")$")
		if err != nil {
			return nil, errors.ErrInvalidPattern
		}
		return &regexConstraint{spec: spec, re: re}, nil
	}
	return nil, errors.ErrInvalidPattern
}

type intConstraint struct{}

func (intConstraint) Spec() string { return "int" }

func (intConstraint) Validate(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' {
		s = s[1:]
		if s == "" {
			return false
		}
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

type alphaConstraint struct{}

func (alphaConstraint) Spec() string { return "alpha" }

func (alphaConstraint) Validate(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

type uuidConstraint struct{}

func (uuidConstraint) Spec() string { return "uuid" }

func (uuidConstraint) Validate(s string) bool {
	if len(s) != 36 {
		return false
	}
	for i := 0; i < 36; i++ {
		c := s[i]
		switch i {
		case 8, 13, 18, 23:
			if c != '-' {
				return false
			}
		default:
			if !isHex(c) {
				return false
			}
		}
	}
	return true
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

type regexConstraint struct {
	spec string
	re   *regexp.Regexp
}

func (rc *regexConstraint) Spec() string { return rc.spec }

func (rc *regexConstraint) Validate(s string) bool {
	return rc.re.MatchString(s)
}
