package matchsvc

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

// SubjectKind tells which entity a match list is computed against.
type SubjectKind string

const (
	SubjectCandidate SubjectKind = "candidate"
	SubjectJob       SubjectKind = "job"
)

type Matches struct {
	Items []*Match
}

// Match is one scored pairing. Exactly one of Job or Candidate is set: the
// counterpart entity the subject was matched with. Score is opaque server
// output and is the authoritative ordering value.
type Match struct {
	Job           *Job       `json:"job,omitempty"`
	Candidate     *Candidate `json:"candidate,omitempty"`
	Score         float64    `json:"score"`
	SemanticScore float64    `json:"semantic_score"`
	RuleScore     float64    `json:"rule_score"`
	MatchReasons  []string   `json:"match_reasons,omitempty"`
}

// MatchesForCandidate fetches jobs matched to the candidate, filtered
// server-side by the minimum score threshold.
func (c *Client) MatchesForCandidate(id string, minScore float64, limit int) (*Matches, error) {
	if id == "" {
		return nil, fmt.Errorf("candidate id is required")
	}

	q := url.Values{}
	q.Set("min_score", strconv.FormatFloat(minScore, 'f', -1, 64))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var envelope struct {
		Summary map[string]any `json:"summary"`
		Matches []any          `json:"matches"`
	}
	path := fmt.Sprintf("%s/%s/matches", candidatesPath, id)
	if err := c.getJSON(path, q, &envelope); err != nil {
		return nil, err
	}

	items, err := decodeMatches(envelope.Matches)
	if err != nil {
		return nil, err
	}

	return &Matches{Items: items}, nil
}

// MatchesForJob fetches candidates recommended for the job. The
// recommendation endpoint has no server-side threshold parameter, so the
// minimum score is applied here before results are handed out.
func (c *Client) MatchesForJob(id string, minScore float64) (*Matches, error) {
	if id == "" {
		return nil, fmt.Errorf("job id is required")
	}

	var raw []any
	if err := c.getJSON(fmt.Sprintf("/recommendations/job/%s", id), nil, &raw); err != nil {
		return nil, err
	}

	items, err := decodeMatches(raw)
	if err != nil {
		return nil, err
	}

	kept := make([]*Match, 0, len(items))
	for _, m := range items {
		if m.Score >= minScore {
			kept = append(kept, m)
		}
	}

	return &Matches{Items: kept}, nil
}

func decodeMatches(items []any) ([]*Match, error) {
	var matches []*Match
	cfg := &mapstructure.DecoderConfig{
		Result:  &matches,
		TagName: "json",
	}
	decoder, _ := mapstructure.NewDecoder(cfg)
	if err := decoder.Decode(items); err != nil {
		return nil, fmt.Errorf("decode matches: %w", err)
	}
	return matches, nil
}

func (m *Matches) Len() int {
	return len(m.Items)
}

// TopScore returns the highest score in the list, or nil when empty.
func (m *Matches) TopScore() *float64 {
	var top *float64
	for _, match := range m.Items {
		if top == nil || match.Score > *top {
			score := match.Score
			top = &score
		}
	}
	return top
}

func (m *Matches) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "matches_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// SubjectID returns the identifier of the counterpart entity.
func (m *Match) SubjectID() string {
	if m.Candidate != nil {
		return m.Candidate.ID
	}
	if m.Job != nil {
		return m.Job.ID
	}
	return ""
}

// SubjectName returns a human-readable label for the counterpart entity.
func (m *Match) SubjectName() string {
	if m.Candidate != nil {
		return m.Candidate.Name
	}
	if m.Job != nil {
		return m.Job.Title
	}
	return ""
}

func (m *Match) SubjectLocation() string {
	if m.Candidate != nil {
		return m.Candidate.Location
	}
	if m.Job != nil {
		return m.Job.Location
	}
	return ""
}

func (m *Match) SubjectLanguages() []string {
	if m.Candidate != nil {
		return m.Candidate.Languages
	}
	if m.Job != nil {
		return m.Job.RequiredLanguages
	}
	return nil
}

// SubjectSalary returns the counterpart's salary figure for filter and sort
// comparisons. Entities without a salary value compare as zero.
func (m *Match) SubjectSalary() float64 {
	if m.Candidate != nil {
		return m.Candidate.Salary()
	}
	if m.Job != nil {
		return m.Job.Salary()
	}
	return 0
}

// SubjectExperienceCount returns the number of entries in the counterpart's
// experience list. The ordering key is list length, not years. Jobs carry no
// experience list and count as zero.
func (m *Match) SubjectExperienceCount() int {
	if m.Candidate != nil {
		return len(m.Candidate.Experience)
	}
	return 0
}
