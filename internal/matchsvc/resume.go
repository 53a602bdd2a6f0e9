package matchsvc

import (
	"fmt"
	"net/http"
)

// ResumeFile is a downloaded resume: the raw payload plus the headers the
// caller needs to name and type the saved file.
type ResumeFile struct {
	Data        []byte
	ContentType string
	// Disposition is the raw Content-Disposition header, which may carry a
	// suggested filename. Empty when the service did not send one.
	Disposition string
}

// DownloadResume fetches the binary resume stored for a candidate. A missing
// candidate or a candidate without an uploaded resume yields a NotFound error.
func (c *Client) DownloadResume(candidateID string) (*ResumeFile, error) {
	if candidateID == "" {
		return nil, fmt.Errorf("candidate id is required")
	}

	path := fmt.Sprintf("%s/%s/resume", candidatesPath, candidateID)
	req, err := http.NewRequestWithContext(c.ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}

	req = c.setHeaders(req)

	resp, err := c.request(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp.StatusCode, data)
	}

	return &ResumeFile{
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
		Disposition: resp.Header.Get("Content-Disposition"),
	}, nil
}
