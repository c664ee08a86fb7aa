// Package nerdgraph implements a minimal client for NerdGraph, the
// NewRelic GraphQL API: one regional endpoint, API-key authentication,
// and a single entry point for queries and mutations.
package nerdgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	usEndpoint = "https://api.newrelic.com/graphql"
	euEndpoint = "https://api.eu.newrelic.com/graphql"
)

// Client issues GraphQL operations against one NerdGraph endpoint on
// behalf of one account. The API key, account id and region are bound at
// construction.
type Client struct {
	apiKey     string
	accountID  int
	endpoint   string
	httpClient *http.Client
	logger     *logrus.Entry
}

// ClientOption adjusts a Client beyond the required credentials.
type ClientOption func(*Client)

// WithEndpoint overrides the regional endpoint URL.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger the client writes request diagnostics to.
func WithLogger(logger *logrus.Entry) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient binds an API key and account to a regional NerdGraph
// endpoint. Region "eu", in any casing, selects the EU deployment; every
// other value selects the US one.
func NewClient(apiKey string, accountID int, region string, opts ...ClientOption) *Client {
	client := &Client{
		apiKey:     apiKey,
		accountID:  accountID,
		endpoint:   usEndpoint,
		httpClient: http.DefaultClient,
		logger:     logrus.NewEntry(logrus.StandardLogger()),
	}
	if strings.EqualFold(region, "eu") {
		client.endpoint = euEndpoint
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// AccountID returns the account the client is bound to.
func (c *Client) AccountID() int {
	return c.accountID
}

// Endpoint returns the URL operations are sent to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// Query sends one GraphQL document and unmarshals the data member of the
// response into out, which may be nil when the caller does not need the
// result. The bound account id is injected into the variables as
// accountId on every call; documents that do not declare the variable
// are unaffected.
//
// A non-2xx status or a response carrying a top-level error list comes
// back as *APIError. There are no retries; a failed call is final.
func (c *Client) Query(ctx context.Context, document string, variables map[string]interface{}, out interface{}) error {
	if variables == nil {
		variables = map[string]interface{}{}
	}
	variables["accountId"] = c.accountID

	body, err := json.Marshal(graphQLRequest{
		Query:     document,
		Variables: variables,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("API-Key", c.apiKey)

	c.logger.WithFields(logrus.Fields{
		"endpoint": c.endpoint,
		"account":  c.accountID,
	}).Debug("POSTing NerdGraph operation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newHTTPError(resp.StatusCode, respBody)
	}

	decoded := graphQLResponse{}
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return err
	}
	if len(decoded.Errors) > 0 {
		return newGraphQLError(decoded.Errors)
	}
	if out == nil {
		return nil
	}
	if len(decoded.Data) == 0 {
		return NewAPIError("response carried no data member")
	}
	return json.Unmarshal(decoded.Data, out)
}
