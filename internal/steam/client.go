// Package steam is a small client for the Steam Web API player summaries
// endpoint, used to enrich roster entries with profile data.
package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lobbywatch/backend/internal/lobby"
)

const (
	DefaultBaseURL = "https://api.steampowered.com"
	// MaxBatchSize is the most ids GetPlayerSummaries accepts per call.
	MaxBatchSize = 100
)

// ErrNoAPIKey is returned when the client has no credential configured.
var ErrNoAPIKey = errors.New("steam api key not configured")

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error %d %s from %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// playerSummary is one entry of the GetPlayerSummaries response.
type playerSummary struct {
	SteamID      string `json:"steamid"`
	PersonaName  string `json:"personaname"`
	Avatar       string `json:"avatar"`
	AvatarMedium string `json:"avatarmedium"`
	AvatarFull   string `json:"avatarfull"`
	TimeCreated  int64  `json:"timecreated"`
}

type summariesResponse struct {
	Response struct {
		Players []playerSummary `json:"players"`
	} `json:"response"`
}

// Client talks to the Steam Web API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	batchSize  int
}

// NewClient creates a Client. An empty apiKey yields a client whose HasKey
// reports false.
func NewClient(apiKey, baseURL string, timeout time.Duration, batchSize int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		batchSize:  batchSize,
	}
}

// HasKey reports whether a credential is configured.
func (c *Client) HasKey() bool {
	return c.apiKey != ""
}

// PlayerSummaries fetches profiles for ids, splitting them into batches the
// API accepts. Ids the API does not know are simply absent from the result.
// Any failed batch fails the whole call.
func (c *Client) PlayerSummaries(ctx context.Context, ids []lobby.SteamID) ([]lobby.ProfileInfo, error) {
	if !c.HasKey() {
		return nil, ErrNoAPIKey
	}
	var out []lobby.ProfileInfo
	for start := 0; start < len(ids); start += c.batchSize {
		end := min(start+c.batchSize, len(ids))
		infos, err := c.fetchBatch(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, infos...)
	}
	return out, nil
}

func (c *Client) fetchBatch(ctx context.Context, ids []lobby.SteamID) ([]lobby.ProfileInfo, error) {
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("steamids", strings.Join(strIDs, ","))
	endpoint := c.baseURL + "/ISteamUser/GetPlayerSummaries/v0002/"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create player summaries request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("player summaries request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// The key is in the query string; report the bare endpoint.
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: endpoint}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read player summaries body: %w", err)
	}
	var parsed summariesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode player summaries: %w", err)
	}

	infos := make([]lobby.ProfileInfo, 0, len(parsed.Response.Players))
	for _, p := range parsed.Response.Players {
		id, err := lobby.ParseSteam64(p.SteamID)
		if err != nil {
			continue
		}
		info := lobby.ProfileInfo{
			SteamID:      id,
			Name:         p.PersonaName,
			Avatar:       p.Avatar,
			AvatarMedium: p.AvatarMedium,
			AvatarFull:   p.AvatarFull,
		}
		if p.TimeCreated > 0 {
			created := time.Unix(p.TimeCreated, 0).UTC()
			info.AccountCreated = &created
		}
		infos = append(infos, info)
	}
	return infos, nil
}
