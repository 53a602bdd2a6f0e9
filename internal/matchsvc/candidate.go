package matchsvc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mitchellh/mapstructure"
)

const candidatesPath = "/candidates"

type Candidates struct {
	Items []*Candidate
}

type Candidate struct {
	ID                string   `json:"id,omitempty"`
	Name              string   `json:"name,omitempty"`
	Location          string   `json:"location,omitempty"`
	Email             string   `json:"email,omitempty"`
	Phone             string   `json:"phone,omitempty"`
	Education         string   `json:"education,omitempty"`
	Experience        []string `json:"experience,omitempty"`
	YearsOfExperience *int     `json:"years_of_experience,omitempty"`
	ExperienceLevel   string   `json:"experience_level,omitempty"`
	Skills            []string `json:"skills,omitempty"`
	Languages         []string `json:"languages,omitempty"`
	Certifications    []string `json:"certifications,omitempty"`
	SalaryExpectation *float64 `json:"salary_expectation,omitempty"`
	ResumeFilename    string   `json:"resume_filename,omitempty"`
	ResumeContentType string   `json:"resume_content_type,omitempty"`
	CreatedAt         string   `json:"created_at,omitempty"`
	UpdatedAt         string   `json:"updated_at,omitempty"`
}

// CandidateDraft is the payload for creating or patching a candidate.
type CandidateDraft struct {
	Name              string   `json:"name,omitempty"`
	Location          string   `json:"location,omitempty"`
	Email             string   `json:"email,omitempty"`
	Phone             string   `json:"phone,omitempty"`
	Education         string   `json:"education,omitempty"`
	Experience        []string `json:"experience,omitempty"`
	YearsOfExperience *int     `json:"years_of_experience,omitempty"`
	Skills            []string `json:"skills,omitempty"`
	Languages         []string `json:"languages,omitempty"`
	Certifications    []string `json:"certifications,omitempty"`
	SalaryExpectation *float64 `json:"salary_expectation,omitempty"`
}

// GetCandidates fetches the whole candidate collection page by page.
func (c *Client) GetCandidates() (*Candidates, error) {
	items, err := c.getItems(candidatesPath, url.Values{})
	if err != nil {
		return nil, err
	}

	var candidates []*Candidate
	cfg := &mapstructure.DecoderConfig{
		Result:  &candidates,
		TagName: "json",
	}
	decoder, _ := mapstructure.NewDecoder(cfg)
	if err := decoder.Decode(items); err != nil {
		return nil, fmt.Errorf("decode candidates: %w", err)
	}

	return &Candidates{Items: candidates}, nil
}

func (c *Client) GetCandidate(id string) (*Candidate, error) {
	if id == "" {
		return nil, fmt.Errorf("candidate id is required")
	}

	var candidate Candidate
	if err := c.getJSON(fmt.Sprintf("%s/%s", candidatesPath, id), nil, &candidate); err != nil {
		return nil, err
	}

	return &candidate, nil
}

// CreateCandidate submits a new candidate record. An optional resume file is
// attached as a multipart part the way the service's entry form uploads it.
func (c *Client) CreateCandidate(draft *CandidateDraft, resumeName string, resume []byte) (*Candidate, error) {
	var candidate Candidate

	if len(resume) == 0 {
		if err := c.sendJSON(http.MethodPost, candidatesPath, draft, &candidate, http.StatusCreated); err != nil {
			return nil, err
		}
		return &candidate, nil
	}

	data, err := json.Marshal(draft)
	if err != nil {
		return nil, fmt.Errorf("marshal candidate payload: %w", err)
	}

	fields := map[string]string{"data": string(data)}
	if err := c.postMultipart(candidatesPath, "file", resumeName, resume, fields, &candidate, http.StatusCreated); err != nil {
		return nil, err
	}

	return &candidate, nil
}

func (c *Client) UpdateCandidate(id string, draft *CandidateDraft) (*Candidate, error) {
	if id == "" {
		return nil, fmt.Errorf("candidate id is required")
	}

	var candidate Candidate
	if err := c.sendJSON(http.MethodPatch, fmt.Sprintf("%s/%s", candidatesPath, id), draft, &candidate, http.StatusOK); err != nil {
		return nil, err
	}

	return &candidate, nil
}

func (c *Client) DeleteCandidate(id string) error {
	if id == "" {
		return fmt.Errorf("candidate id is required")
	}

	return c.sendJSON(http.MethodDelete, fmt.Sprintf("%s/%s", candidatesPath, id), nil, nil, http.StatusNoContent)
}

// UploadResume attaches a resume file to an existing candidate.
func (c *Client) UploadResume(id, filename string, data []byte) error {
	if id == "" {
		return fmt.Errorf("candidate id is required")
	}

	path := fmt.Sprintf("%s/%s/resume-upload", candidatesPath, id)
	return c.postMultipart(path, "file", filename, data, nil, nil, http.StatusOK)
}

// ParseResume sends a resume file to the service's parsing endpoint and
// returns the extracted candidate fields. Parsing itself happens remotely.
func (c *Client) ParseResume(filename string, data []byte) (map[string]any, error) {
	var parsed map[string]any
	if err := c.postMultipart("/parse-resume", "file", filename, data, nil, &parsed, http.StatusOK); err != nil {
		return nil, err
	}

	return parsed, nil
}

// DraftFromParsed converts the loose field map returned by ParseResume into a
// candidate draft. Unknown fields are ignored.
func DraftFromParsed(parsed map[string]any) (*CandidateDraft, error) {
	var draft CandidateDraft
	cfg := &mapstructure.DecoderConfig{
		Result:  &draft,
		TagName: "json",
	}
	decoder, _ := mapstructure.NewDecoder(cfg)
	if err := decoder.Decode(parsed); err != nil {
		return nil, fmt.Errorf("decode parsed resume: %w", err)
	}

	return &draft, nil
}

func (c *Candidates) Len() int {
	return len(c.Items)
}

func (c *Candidates) FindByID(id string) *Candidate {
	for _, candidate := range c.Items {
		if candidate.ID == id {
			return candidate
		}
	}
	return nil
}

// Salary returns the candidate's salary expectation, or zero when unset.
func (c *Candidate) Salary() float64 {
	if c.SalaryExpectation != nil {
		return *c.SalaryExpectation
	}
	return 0
}
