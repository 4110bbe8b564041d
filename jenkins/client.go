package jenkins

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bndr/gojenkins"
)

const (
	defaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of an error response is kept on APIError.
	maxErrorBody = 512
)

// Client provides read-only access to the Jenkins REST API on top of gojenkins.
// The connection is established on first use and reused afterwards.
type Client struct {
	baseURL    string
	user       string
	token      string
	httpClient *http.Client

	mu      sync.Mutex
	jenkins *gojenkins.Jenkins
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient creates a Jenkins client authenticating with a username and API token.
func NewClient(baseURL, user, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		user:       user,
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// BasicAuth builds the Authorization header value for user:token.
func BasicAuth(user, token string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+token))
}

// connect initialises the gojenkins client once. A failed attempt is not
// cached, so the next call tries again.
func (c *Client) connect(ctx context.Context) (*gojenkins.Jenkins, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.jenkins != nil {
		return c.jenkins, nil
	}

	hc := *c.httpClient
	hc.Transport = &statusTransport{next: c.httpClient.Transport}

	jenkins := gojenkins.CreateJenkins(&hc, c.baseURL, c.user, c.token)
	if _, err := jenkins.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to Jenkins: %w", classify(err))
	}

	c.jenkins = jenkins
	return jenkins, nil
}

// GetJob fetches job details. jobName may be a folder path such as "team/deploy".
func (c *Client) GetJob(ctx context.Context, jobName string) (*Job, error) {
	jenkins, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	segments := jobSegments(jobName)
	if len(segments) == 0 {
		return nil, fmt.Errorf("failed to get job %q: empty job name", jobName)
	}
	last := len(segments) - 1

	job, err := jenkins.GetJob(ctx, segments[last], segments[:last]...)
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", jobName, classify(err))
	}
	return jobFromRaw(job.Raw), nil
}

// GetBuild fetches a single build of a job.
func (c *Client) GetBuild(ctx context.Context, jobName string, number int64) (*Build, error) {
	build, err := c.pollBuild(ctx, jobName, number)
	if err != nil {
		return nil, fmt.Errorf("failed to get build %s #%d: %w", jobName, number, err)
	}
	return buildFromRaw(build.Raw), nil
}

// GetLastBuild fetches a job and the build its lastBuild reference points at.
func (c *Client) GetLastBuild(ctx context.Context, jobName string) (*Job, *Build, error) {
	job, err := c.GetJob(ctx, jobName)
	if err != nil {
		return nil, nil, err
	}
	if job.LastBuild == nil {
		return job, nil, fmt.Errorf("%s: %w", jobName, ErrNoBuilds)
	}
	build, err := c.GetBuild(ctx, jobName, job.LastBuild.Number)
	if err != nil {
		return job, nil, err
	}
	return job, build, nil
}

// GetConsoleLog fetches the plain-text console output of a build. Unlike
// gojenkins' Build.GetConsoleOutput, request failures are returned.
func (c *Client) GetConsoleLog(ctx context.Context, jobName string, number int64) (string, error) {
	build, err := c.pollBuild(ctx, jobName, number)
	if err != nil {
		return "", fmt.Errorf("failed to get console log for %s #%d: %w", jobName, number, err)
	}

	var content string
	if _, err := build.Jenkins.Requester.GetXML(ctx, build.Base+"/consoleText", &content, nil); err != nil {
		return "", fmt.Errorf("failed to get console log for %s #%d: %w", jobName, number, classify(err))
	}
	return content, nil
}

// GetCurrentUser returns the user the API token belongs to.
func (c *Client) GetCurrentUser(ctx context.Context) (*User, error) {
	jenkins, err := c.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	var resp meResponse
	if _, err := jenkins.Requester.GetJSON(ctx, "/me", &resp, nil); err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", classify(err))
	}
	if resp.User != nil {
		return resp.User, nil
	}
	return &User{ID: resp.ID, FullName: resp.FullName}, nil
}

// pollBuild loads a build by path. gojenkins' Job.GetBuild derives the path
// by cutting the server URL off the job's absolute URL, which fails when the
// root URL configured in Jenkins differs from JENKINS_URL.
func (c *Client) pollBuild(ctx context.Context, jobName string, number int64) (*gojenkins.Build, error) {
	jenkins, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	build := &gojenkins.Build{
		Jenkins: jenkins,
		Raw:     new(gojenkins.BuildResponse),
		Depth:   1,
		Base:    buildPath(jobName, number),
	}
	if _, err := build.Poll(ctx); err != nil {
		return nil, classify(err)
	}
	return build, nil
}

func jobFromRaw(raw *gojenkins.JobResponse) *Job {
	job := &Job{
		Name:        raw.Name,
		DisplayName: raw.DisplayName,
		Description: raw.Description,
		URL:         raw.URL,
		Buildable:   raw.Buildable,
	}
	// gojenkins decodes a null lastBuild as the zero JobBuild.
	if raw.LastBuild.Number > 0 {
		job.LastBuild = &BuildRef{Number: raw.LastBuild.Number, URL: raw.LastBuild.URL}
	}
	return job
}

func buildFromRaw(raw *gojenkins.BuildResponse) *Build {
	return &Build{
		Number:    raw.Number,
		Result:    raw.Result,
		Building:  raw.Building,
		Duration:  int64(raw.Duration),
		Timestamp: raw.Timestamp,
		URL:       raw.URL,
	}
}

// statusTransport turns 4xx and 5xx responses into *APIError so callers can
// classify failures the same way for every gojenkins call.
type statusTransport struct {
	next http.RoundTripper
}

func (t *statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}

	resp, err := next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusBadRequest {
		return resp, nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, &APIError{StatusCode: resp.StatusCode, Path: req.URL.Path, Body: string(body)}
}

// classify strips the *url.Error wrapping net/http puts around an APIError.
func classify(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return err
}

func jobSegments(jobName string) []string {
	var segments []string
	for _, seg := range strings.Split(strings.Trim(jobName, "/"), "/") {
		if seg != "" {
			segments = append(segments, url.PathEscape(seg))
		}
	}
	return segments
}

// jobPath maps "a/b" to "/job/a/job/b".
func jobPath(jobName string) string {
	var sb strings.Builder
	for _, seg := range jobSegments(jobName) {
		sb.WriteString("/job/")
		sb.WriteString(seg)
	}
	return sb.String()
}

func buildPath(jobName string, number int64) string {
	return jobPath(jobName) + "/" + strconv.FormatInt(number, 10)
}
