// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

package gazetteer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jcodagnone/buildingid/utils/textutils"
)

// IntegrityError lists every problem found in a gazetteer.
type IntegrityError struct {
	Problems []string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("gazetteer: %d integrity problem(s): %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// ValidateIntegrity checks the whole registry and reports every violation it
// finds, not just the first one. Matching against a registry that fails this
// check is undefined.
func (r *Registry) ValidateIntegrity() (bool, []string) {
	var problems []string

	ids := make(map[string]bool, len(r.areas))

	for _, a := range r.areas {
		if a.ID == "" {
			problems = append(problems, "area with empty id")
		} else if ids[a.ID] {
			problems = append(problems, a.ID+": Duplicate area id")
		}

		ids[a.ID] = true

		if strings.TrimSpace(a.DisplayName) == "" {
			problems = append(problems, a.ID+": Missing display name")
		}

		if a.Bounds.Lat.Min >= a.Bounds.Lat.Max {
			problems = append(problems, a.ID+": Invalid latitude bounds")
		}

		if a.Bounds.Lng.Min >= a.Bounds.Lng.Max {
			problems = append(problems, a.ID+": Invalid longitude bounds")
		}

		for i, idiom := range a.Idioms {
			re, err := regexp.Compile(idiom)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: Idiom %d does not compile: %v", a.ID, i, err))
			} else if re.NumSubexp() != 1 {
				problems = append(problems, fmt.Sprintf("%s: Idiom %d must have exactly one capture group, has %d", a.ID, i, re.NumSubexp()))
			}
		}

		names := make(map[string]bool, len(a.buildings))
		owner := make(map[string]string)

		for _, b := range a.buildings {
			if strings.TrimSpace(b.Name) == "" {
				problems = append(problems, a.ID+": Building with empty name")
			} else if names[b.Name] {
				problems = append(problems, fmt.Sprintf("%s: Duplicate building %s", a.ID, b.Name))
			}

			names[b.Name] = true

			if !b.Coords.IsFinite() {
				problems = append(problems, b.Name+": Invalid coordinates")
			} else if !a.Bounds.Contains(b.Coords) {
				problems = append(problems, b.Name+": Coordinates outside location bounds")
			}

			if len(b.Aliases) == 0 {
				problems = append(problems, b.Name+": No aliases defined")
			}

			for _, alias := range b.Aliases {
				key := textutils.FoldKey(alias)
				if key == "" {
					problems = append(problems, b.Name+": Empty alias")

					continue
				}

				if prev, ok := owner[key]; ok && prev != b.Name {
					problems = append(problems, fmt.Sprintf("%s: Alias %q is claimed by both %s and %s", a.ID, alias, prev, b.Name))

					continue
				}

				owner[key] = b.Name
			}
		}
	}

	return len(problems) == 0, problems
}
