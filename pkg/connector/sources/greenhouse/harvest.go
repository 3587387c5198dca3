package greenhouse

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/recruitsync/harvest-connector/pkg/clients"
	"github.com/recruitsync/harvest-connector/pkg/errors"
	gojson "github.com/recruitsync/harvest-connector/pkg/json"
	"github.com/recruitsync/harvest-connector/pkg/metrics"
	"github.com/recruitsync/harvest-connector/pkg/models"
	"go.uber.org/zap"
)

const (
	// defaultBaseURL is the Harvest API root
	defaultBaseURL = "https://harvest.greenhouse.io/v1"
	// defaultPerPage is the fixed page size used on every list request
	defaultPerPage = 100
	// relIDPlaceholder marks where a parent record id goes in nested paths
	relIDPlaceholder = "{rel_id}"

	sourceName = "greenhouse"
)

// Client talks to the Greenhouse Harvest API. Authentication is HTTP Basic
// with the API key as the username and an empty password.
type Client struct {
	baseURL   string
	authValue string
	http      *clients.HTTPClient
	logger    *zap.Logger
	metrics   *metrics.Collector
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API root. Used for tests and proxies.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithMetrics attaches a metrics collector to the client.
func WithMetrics(collector *metrics.Collector) ClientOption {
	return func(c *Client) {
		c.metrics = collector
	}
}

// NewClient creates a Harvest API client with the given API key.
func NewClient(apiKey string, httpClient *clients.HTTPClient, log *zap.Logger, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "api key is required")
	}
	if httpClient == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "http client is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	c := &Client{
		baseURL:   defaultBaseURL,
		authValue: "Basic " + base64.StdEncoding.EncodeToString([]byte(apiKey+":")),
		http:      httpClient,
		logger:    log.With(zap.String("component", "harvest_client")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Resource binds a client to one concrete collection URL. For nested
// endpoints the parent id has already been substituted into the path.
// A Resource tracks pagination state across Get and GetNext calls.
type Resource struct {
	client   *Client
	endpoint *Endpoint
	path     string

	nextURL string
	page    int
}

// Resource returns a Resource for a root endpoint.
func (c *Client) Resource(endpoint *Endpoint) *Resource {
	return &Resource{
		client:   c,
		endpoint: endpoint,
		path:     endpoint.Path,
	}
}

// resourceAccessor is what the traversal engine needs from a collection.
// *Resource is the production implementation; tests substitute scripted
// fakes.
type resourceAccessor interface {
	Name() string
	Get(ctx context.Context, params url.Values) ([]*models.Record, error)
	GetNext(ctx context.Context) ([]*models.Record, error)
	RecordsRemaining() bool
	Child(parentID, relation string) (resourceAccessor, error)
}

// Name returns the endpoint name this resource reads.
func (r *Resource) Name() string {
	return r.endpoint.Name
}

// Child returns a Resource for the named nested relation under the given
// parent record id.
func (r *Resource) Child(parentID, relation string) (resourceAccessor, error) {
	child, ok := r.endpoint.Child(relation)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeConfig,
			"entity %q has no nested relation %q", r.endpoint.Name, relation)
	}
	return &Resource{
		client:   r.client,
		endpoint: child,
		path:     strings.Replace(child.Path, relIDPlaceholder, parentID, 1),
	}, nil
}

// Get fetches the first page of the collection. The page size is always
// forced to the fixed per-page value; caller params carry optional server
// side filters. Pagination state is reset.
func (r *Resource) Get(ctx context.Context, params url.Values) ([]*models.Record, error) {
	query := url.Values{}
	for k, vs := range params {
		query[k] = vs
	}
	query.Set("per_page", strconv.Itoa(defaultPerPage))

	r.nextURL = ""
	r.page = 0

	return r.fetch(ctx, r.client.baseURL+"/"+r.path+"?"+query.Encode())
}

// GetNext fetches the page advertised by the previous response's Link
// header. Calling it with no page remaining is a programming error.
func (r *Resource) GetNext(ctx context.Context) ([]*models.Record, error) {
	if r.nextURL == "" {
		return nil, errors.Newf(errors.ErrorTypeInternal,
			"no next page for %s", r.endpoint.Name)
	}
	return r.fetch(ctx, r.nextURL)
}

// RecordsRemaining reports whether the last response advertised another
// page.
func (r *Resource) RecordsRemaining() bool {
	return r.nextURL != ""
}

func (r *Resource) fetch(ctx context.Context, requestURL string) ([]*models.Record, error) {
	header := http.Header{}
	header.Set("Authorization", r.client.authValue)
	header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := r.client.http.Get(ctx, requestURL, header)
	if err != nil {
		if r.client.metrics != nil {
			if typed, ok := err.(*errors.Error); ok {
				r.client.metrics.RequestError(string(typed.Type))
			}
		}
		return nil, err
	}
	defer resp.Body.Close()

	dec := gojson.NewDecoder(resp.Body)
	dec.UseNumber()

	var rows []map[string]interface{}
	if err := dec.Decode(&rows); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode response body").
			WithDetail("url", requestURL).
			WithDetail("entity", r.endpoint.Name)
	}

	r.nextURL = parseLinkNext(resp.Header.Get("Link"))
	r.page++

	records := make([]*models.Record, 0, len(rows))
	for _, row := range rows {
		rec := models.NewRecord(sourceName, row)
		rec.Metadata.Entity = r.endpoint.Name
		rec.Metadata.Page = r.page
		records = append(records, rec)
	}

	if r.client.metrics != nil {
		r.client.metrics.PageFetched(r.endpoint.Name)
		r.client.metrics.ObserveRequestLatency(r.endpoint.Name, time.Since(start))
	}

	r.client.logger.Debug("page fetched",
		zap.String("entity", r.endpoint.Name),
		zap.Int("page", r.page),
		zap.Int("records", len(records)),
		zap.Bool("has_next", r.nextURL != ""))

	return records, nil
}

// parseLinkNext extracts the rel="next" URL from an RFC 8288 Link header.
// Returns "" when the header has no next relation.
func parseLinkNext(header string) string {
	if header == "" {
		return ""
	}
	for _, part := range strings.Split(header, ",") {
		sections := strings.Split(part, ";")
		if len(sections) < 2 {
			continue
		}
		target := strings.Trim(strings.TrimSpace(sections[0]), "<>")
		for _, param := range sections[1:] {
			param = strings.TrimSpace(param)
			if param == `rel="next"` || param == "rel=next" {
				return target
			}
		}
	}
	return ""
}
