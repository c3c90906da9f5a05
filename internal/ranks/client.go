package ranks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 15 * time.Second

	// The public profile endpoint serves browsers, so the query and user
	// agent mirror what the web client sends.
	profileQuery = `query UserProfilePageQuery($cc: String, $uid: String) {
  getUser(fbUid: $uid, connectCode: $cc) {
    displayName
    connectCode { code }
    rankedNetplayProfile {
      ratingOrdinal
      dailyRegionalPlacement
      dailyGlobalPlacement
      wins
      losses
    }
  }
}`
)

// Config captures the runtime settings required to query the rank endpoint.
type Config struct {
	GraphQLURL     string
	UserAgent      string
	TimeoutSeconds int
}

// Profile is the ranked netplay profile for one connect code. Pointer fields
// distinguish "absent from the response" from a zero value.
type Profile struct {
	DisplayName       string
	ConnectCode       string
	RatingOrdinal     *float64
	RegionalPlacement *int
	GlobalPlacement   *int
	Wins              int
	Losses            int
}

// HasRating reports whether the profile carries a rating this season.
func (p Profile) HasRating() bool {
	return p.RatingOrdinal != nil
}

// ErrNoProfile is returned when the endpoint knows of no user for the
// connect code.
var ErrNoProfile = errors.New("no user profile for connect code")

// Client queries the Slippi GraphQL endpoint for ranked profiles.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a rank lookup client from the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			GraphQLURL:     strings.TrimSpace(cfg.GraphQLURL),
			UserAgent:      strings.TrimSpace(cfg.UserAgent),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

type graphqlRequest struct {
	OperationName string         `json:"operationName"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
}

type graphqlResponse struct {
	Data *struct {
		GetUser *struct {
			DisplayName string `json:"displayName"`
			ConnectCode *struct {
				Code string `json:"code"`
			} `json:"connectCode"`
			RankedNetplayProfile *struct {
				RatingOrdinal          *float64 `json:"ratingOrdinal"`
				DailyRegionalPlacement *int     `json:"dailyRegionalPlacement"`
				DailyGlobalPlacement   *int     `json:"dailyGlobalPlacement"`
				Wins                   int      `json:"wins"`
				Losses                 int      `json:"losses"`
			} `json:"rankedNetplayProfile"`
		} `json:"getUser"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Lookup fetches the ranked profile for a connect code. It returns
// ErrNoProfile when the endpoint has no user for the code.
func (c *Client) Lookup(ctx context.Context, connectCode string) (Profile, error) {
	var empty Profile
	connectCode = strings.ToUpper(strings.TrimSpace(connectCode))
	if connectCode == "" {
		return empty, errors.New("rank lookup: connect code required")
	}
	if c.cfg.GraphQLURL == "" {
		return empty, errors.New("rank lookup: endpoint url required")
	}

	payload := graphqlRequest{
		OperationName: "UserProfilePageQuery",
		Query:         profileQuery,
		Variables:     map[string]any{"cc": connectCode, "uid": nil},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return empty, fmt.Errorf("rank lookup: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.GraphQLURL, bytes.NewReader(encoded))
	if err != nil {
		return empty, fmt.Errorf("rank lookup: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, fmt.Errorf("rank lookup: request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, fmt.Errorf("rank lookup: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return empty, fmt.Errorf("rank lookup: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed graphqlResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return empty, fmt.Errorf("rank lookup: decode response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return empty, fmt.Errorf("rank lookup: api error: %s", strings.TrimSpace(parsed.Errors[0].Message))
	}
	if parsed.Data == nil || parsed.Data.GetUser == nil {
		return empty, fmt.Errorf("rank lookup %s: %w", connectCode, ErrNoProfile)
	}

	user := parsed.Data.GetUser
	profile := Profile{DisplayName: strings.TrimSpace(user.DisplayName)}
	if user.ConnectCode != nil {
		profile.ConnectCode = strings.ToUpper(strings.TrimSpace(user.ConnectCode.Code))
	}
	if profile.ConnectCode == "" {
		profile.ConnectCode = connectCode
	}
	if ranked := user.RankedNetplayProfile; ranked != nil {
		profile.RatingOrdinal = ranked.RatingOrdinal
		profile.RegionalPlacement = ranked.DailyRegionalPlacement
		profile.GlobalPlacement = ranked.DailyGlobalPlacement
		profile.Wins = ranked.Wins
		profile.Losses = ranked.Losses
	}
	return profile, nil
}

// HealthCheck verifies the endpoint answers GraphQL requests at all. Used by
// the doctor command; a no-profile answer still counts as healthy.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.Lookup(ctx, "DOCT#000")
	if err == nil || errors.Is(err, ErrNoProfile) {
		return nil
	}
	return err
}
