package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/crosstab/internal/models"
)

// apiClient talks to a running server so the CLI does not contend for the
// index and database locks the server holds.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string) *apiClient {
	return &apiClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *apiClient) do(method, path string, body interface{}, want int, out interface{}) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		var e struct {
			Error string `json:"error"`
		}
		b, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *apiClient) search(q *models.SearchQuery) (*models.SearchResponse, error) {
	v := url.Values{}
	v.Set("q", q.Query)
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.SurveyID != "" {
		v.Set("survey_id", q.SurveyID)
	}
	if q.FuzzyEnabled {
		v.Set("fuzzy", "true")
	}
	var resp models.SearchResponse
	if err := c.do(http.MethodGet, "/api/v1/search?"+v.Encode(), nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *apiClient) status() (*models.SurveyStatus, error) {
	var st models.SurveyStatus
	if err := c.do(http.MethodGet, "/api/v1/status", nil, http.StatusOK, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *apiClient) inboxes() ([]string, error) {
	var out struct {
		Directories []string `json:"directories"`
	}
	if err := c.do(http.MethodGet, "/api/v1/watch/directories", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Directories, nil
}

func (c *apiClient) addInbox(path string, ingest bool) error {
	body := map[string]interface{}{"path": path, "ingest": ingest}
	return c.do(http.MethodPost, "/api/v1/watch/directories", body, http.StatusCreated, nil)
}

func (c *apiClient) removeInbox(path string) error {
	return c.do(http.MethodDelete, "/api/v1/watch/directories?path="+url.QueryEscape(path), nil, http.StatusOK, nil)
}
