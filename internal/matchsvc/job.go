package matchsvc

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/mitchellh/mapstructure"
)

const jobsPath = "/jobs"

type Jobs struct {
	Items []*Job
}

type Job struct {
	ID                string   `json:"id,omitempty"`
	Title             string   `json:"title,omitempty"`
	Location          string   `json:"location,omitempty"`
	Description       string   `json:"description,omitempty"`
	Category          string   `json:"category,omitempty"`
	EmploymentType    string   `json:"employment_type,omitempty"`
	ExperienceLevel   string   `json:"experience_level,omitempty"`
	SalaryMin         *float64 `json:"salary_min,omitempty"`
	SalaryMax         *float64 `json:"salary_max,omitempty"`
	Requirements      []string `json:"requirements,omitempty"`
	Advantages        []string `json:"advantages,omitempty"`
	RequiredLanguages []string `json:"required_languages,omitempty"`
	Certifications    []string `json:"certifications_required,omitempty"`
	Benefits          []string `json:"benefits,omitempty"`
	ShiftWork         bool     `json:"shift_work,omitempty"`
	WeekendWork       bool     `json:"weekend_work,omitempty"`
	CreatedAt         string   `json:"created_at,omitempty"`
	UpdatedAt         string   `json:"updated_at,omitempty"`
}

// JobDraft is the payload for creating or patching a job. Pointer fields are
// omitted when nil so a patch touches only what the caller set.
type JobDraft struct {
	Title             string   `json:"title,omitempty"`
	Location          string   `json:"location,omitempty"`
	Description       string   `json:"description,omitempty"`
	Category          string   `json:"category,omitempty"`
	EmploymentType    string   `json:"employment_type,omitempty"`
	ExperienceLevel   string   `json:"experience_level,omitempty"`
	SalaryMin         *float64 `json:"salary_min,omitempty"`
	SalaryMax         *float64 `json:"salary_max,omitempty"`
	Requirements      []string `json:"requirements,omitempty"`
	Advantages        []string `json:"advantages,omitempty"`
	RequiredLanguages []string `json:"required_languages,omitempty"`
	Benefits          []string `json:"benefits,omitempty"`
	ShiftWork         *bool    `json:"shift_work,omitempty"`
	WeekendWork       *bool    `json:"weekend_work,omitempty"`
}

// GetJobs fetches the whole job collection page by page.
func (c *Client) GetJobs() (*Jobs, error) {
	items, err := c.getItems(jobsPath, url.Values{})
	if err != nil {
		return nil, err
	}

	var jobs []*Job
	cfg := &mapstructure.DecoderConfig{
		Result:  &jobs,
		TagName: "json",
	}
	decoder, _ := mapstructure.NewDecoder(cfg)
	if err := decoder.Decode(items); err != nil {
		return nil, fmt.Errorf("decode jobs: %w", err)
	}

	return &Jobs{Items: jobs}, nil
}

func (c *Client) GetJob(id string) (*Job, error) {
	if id == "" {
		return nil, fmt.Errorf("job id is required")
	}

	var job Job
	if err := c.getJSON(fmt.Sprintf("%s/%s", jobsPath, id), nil, &job); err != nil {
		return nil, err
	}

	return &job, nil
}

func (c *Client) CreateJob(draft *JobDraft) (*Job, error) {
	var job Job
	if err := c.sendJSON(http.MethodPost, jobsPath, draft, &job, http.StatusCreated); err != nil {
		return nil, err
	}

	return &job, nil
}

func (c *Client) UpdateJob(id string, draft *JobDraft) (*Job, error) {
	if id == "" {
		return nil, fmt.Errorf("job id is required")
	}

	var job Job
	if err := c.sendJSON(http.MethodPatch, fmt.Sprintf("%s/%s", jobsPath, id), draft, &job, http.StatusOK); err != nil {
		return nil, err
	}

	return &job, nil
}

func (c *Client) DeleteJob(id string) error {
	if id == "" {
		return fmt.Errorf("job id is required")
	}

	return c.sendJSON(http.MethodDelete, fmt.Sprintf("%s/%s", jobsPath, id), nil, nil, http.StatusNoContent)
}

func (j *Jobs) Len() int {
	return len(j.Items)
}

func (j *Jobs) FindByID(id string) *Job {
	for _, job := range j.Items {
		if job.ID == id {
			return job
		}
	}
	return nil
}

// Salary returns the job's salary figure used for comparisons: the upper
// bound when present, else the lower bound, else zero.
func (j *Job) Salary() float64 {
	if j.SalaryMax != nil {
		return *j.SalaryMax
	}
	if j.SalaryMin != nil {
		return *j.SalaryMin
	}
	return 0
}
