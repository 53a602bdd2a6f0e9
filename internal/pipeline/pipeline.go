// Package pipeline turns a raw match list into the sequence a caller renders:
// filter, then stable sort, with score bucketing available for presentation.
// Everything here is pure and deterministic; inputs are never mutated.
package pipeline

import (
	"sort"
	"strings"

	"github.com/avivkl/matchboard/internal/matchsvc"
)

// SortKey selects the comparator used to order results. Unknown keys keep the
// input order.
type SortKey string

const (
	SortScoreDesc      SortKey = "score_desc"
	SortSalaryAsc      SortKey = "salary_asc"
	SortSalaryDesc     SortKey = "salary_desc"
	SortExperienceDesc SortKey = "experience_desc"
	SortExperienceAsc  SortKey = "experience_asc"
)

// Criteria filters match results by their subject's fields. Empty strings and
// nil bounds mean "no constraint"; active predicates are AND-combined.
type Criteria struct {
	Location  string
	Language  string
	MinSalary *float64
	MaxSalary *float64
}

// Apply returns a new slice holding the results that pass every active
// predicate, ordered by the given sort key. Ties preserve input order.
func Apply(results []*matchsvc.Match, c Criteria, key SortKey) []*matchsvc.Match {
	out := make([]*matchsvc.Match, 0, len(results))
	for _, m := range results {
		if keep(m, c) {
			out = append(out, m)
		}
	}

	sortMatches(out, key)
	return out
}

func keep(m *matchsvc.Match, c Criteria) bool {
	if loc := strings.TrimSpace(c.Location); loc != "" {
		if !strings.Contains(strings.ToLower(m.SubjectLocation()), strings.ToLower(loc)) {
			return false
		}
	}

	if lang := strings.TrimSpace(c.Language); lang != "" {
		if !anyContains(m.SubjectLanguages(), lang) {
			return false
		}
	}

	if c.MinSalary != nil || c.MaxSalary != nil {
		// Subjects without a salary value compare as zero.
		salary := m.SubjectSalary()
		if c.MinSalary != nil && salary < *c.MinSalary {
			return false
		}
		if c.MaxSalary != nil && salary > *c.MaxSalary {
			return false
		}
	}

	return true
}

func anyContains(values []string, substr string) bool {
	substr = strings.ToLower(substr)
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), substr) {
			return true
		}
	}
	return false
}

func sortMatches(items []*matchsvc.Match, key SortKey) {
	switch key {
	case SortScoreDesc:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Score > items[j].Score
		})
	case SortSalaryAsc:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].SubjectSalary() < items[j].SubjectSalary()
		})
	case SortSalaryDesc:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].SubjectSalary() > items[j].SubjectSalary()
		})
	case SortExperienceDesc:
		// Experience orders by list length, not years.
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].SubjectExperienceCount() > items[j].SubjectExperienceCount()
		})
	case SortExperienceAsc:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].SubjectExperienceCount() < items[j].SubjectExperienceCount()
		})
	}
}

// ParseSortKey maps a configured string onto a known sort key, defaulting to
// score descending.
func ParseSortKey(s string) SortKey {
	switch SortKey(strings.TrimSpace(strings.ToLower(s))) {
	case SortSalaryAsc:
		return SortSalaryAsc
	case SortSalaryDesc:
		return SortSalaryDesc
	case SortExperienceDesc:
		return SortExperienceDesc
	case SortExperienceAsc:
		return SortExperienceAsc
	default:
		return SortScoreDesc
	}
}

// Bucket is a presentation-only severity tier derived from a score. It never
// participates in filtering or sorting.
type Bucket string

const (
	BucketHigh   Bucket = "high"
	BucketMedium Bucket = "medium"
	BucketLow    Bucket = "low"
)

const (
	highThreshold   = 80.0
	mediumThreshold = 60.0
)

// BucketFor maps a score onto its display bucket: high for scores of 80 and
// above, medium from 60 up to but excluding 80, low below 60.
func BucketFor(score float64) Bucket {
	switch {
	case score >= highThreshold:
		return BucketHigh
	case score >= mediumThreshold:
		return BucketMedium
	default:
		return BucketLow
	}
}
