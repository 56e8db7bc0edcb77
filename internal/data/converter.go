package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
	"github.com/schedulebridge/schedule-bridge/internal/biz/repo"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultMaxWait      = 2 * time.Minute
)

// Job states reported by the conversion service
const (
	jobPending = "pending"
	jobDone    = "done"
	jobFailed  = "failed"
)

type convertJob struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// converterRepo submits documents to an asynchronous conversion service and
// polls until the job settles
type converterRepo struct {
	endpoint     string
	client       *http.Client
	pollInterval time.Duration
	maxWait      time.Duration
}

// NewConverterRepo creates a converter for the service at endpoint
func NewConverterRepo(endpoint string, pollInterval, maxWait time.Duration) repo.ConverterRepo {
	if endpoint == "" {
		return nil
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	if maxWait <= 0 {
		maxWait = defaultMaxWait
	}
	return &converterRepo{
		endpoint:     strings.TrimRight(endpoint, "/"),
		client:       &http.Client{Timeout: 30 * time.Second},
		pollInterval: pollInterval,
		maxWait:      maxWait,
	}
}

// Convert uploads data and waits at most maxWait for the extracted text
func (r *converterRepo) Convert(ctx context.Context, data []byte, name, mimeType string) (string, error) {
	job, err := r.submit(ctx, data, name, mimeType)
	if err != nil {
		return "", &domain.ConversionError{Source: name, Err: err}
	}
	fmt.Printf("[Converter] Submitted %s as job %s\n", name, job.ID)

	ctx, cancel := context.WithTimeout(ctx, r.maxWait)
	defer cancel()

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		switch job.Status {
		case jobDone:
			if strings.TrimSpace(job.Text) == "" {
				return "", &domain.ConversionError{Source: name, Err: domain.ErrNoContent}
			}
			return job.Text, nil
		case jobFailed:
			return "", &domain.ConversionError{Source: name, Err: fmt.Errorf("job %s: %s", job.ID, job.Error)}
		}

		select {
		case <-ctx.Done():
			return "", &domain.ConversionError{Source: name, Err: fmt.Errorf("job %s: %w", job.ID, ctx.Err())}
		case <-ticker.C:
		}

		next, err := r.poll(ctx, job.ID)
		if err != nil {
			return "", &domain.ConversionError{Source: name, Err: err}
		}
		job = next
	}
}

func (r *converterRepo) submit(ctx context.Context, data []byte, name, mimeType string) (*convertJob, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	if mimeType != "" {
		h.Set("Content-Type", mimeType)
	}
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write form part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/jobs", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return r.do(req)
}

func (r *converterRepo) poll(ctx context.Context, id string) (*convertJob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"/jobs/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return r.do(req)
}

func (r *converterRepo) do(req *http.Request) (*convertJob, error) {
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var job convertJob
	if err := json.Unmarshal(respBody, &job); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if job.ID == "" {
		return nil, fmt.Errorf("response without job id")
	}
	if job.Status == "" {
		job.Status = jobPending
	}
	return &job, nil
}
