package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"songrec/internal/domain"
	"songrec/internal/port"
)

// maxTrackIDs is the Web API limit for /tracks?ids=.
const maxTrackIDs = 50

// SpotifyConfig configures the Spotify Web API client.
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	BaseURL      string
	Market       string
	Timeout      time.Duration
}

// SpotifyConfigFromEnv reads client credentials from the named environment variables.
func SpotifyConfigFromEnv(clientIDEnv, clientSecretEnv string) (SpotifyConfig, error) {
	id := os.Getenv(clientIDEnv)
	secret := os.Getenv(clientSecretEnv)
	if id == "" || secret == "" {
		return SpotifyConfig{}, fmt.Errorf("spotify credentials not set: %s and %s are required", clientIDEnv, clientSecretEnv)
	}
	return SpotifyConfig{ClientID: id, ClientSecret: secret}, nil
}

// SpotifyCatalog queries the Spotify Web API using client credentials.
type SpotifyCatalog struct {
	client  *http.Client
	baseURL string
	market  string
}

var _ port.Catalog = (*SpotifyCatalog)(nil)

type spotifyError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

type spotifyTrack struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PreviewURL string `json:"preview_url"`
	Artists    []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
}

type tracksResponse struct {
	Tracks []*spotifyTrack `json:"tracks"`
}

type searchResponse struct {
	Tracks struct {
		Items []*spotifyTrack `json:"items"`
	} `json:"tracks"`
}

// NewSpotifyCatalog creates a client. Tokens are fetched lazily and
// refreshed by the oauth2 transport.
func NewSpotifyCatalog(ctx context.Context, cfg SpotifyConfig) (*SpotifyCatalog, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("spotify client id and secret are required")
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = "https://accounts.spotify.com/api/token"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.spotify.com/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}

	// The token fetch uses the same timeout as API calls.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: cfg.Timeout})
	client := cc.Client(ctx)
	client.Timeout = cfg.Timeout

	return &SpotifyCatalog{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		market:  cfg.Market,
	}, nil
}

func (c *SpotifyCatalog) AudioFeatures(ctx context.Context, id string) (domain.AudioFeatures, error) {
	var f domain.AudioFeatures
	if err := c.get(ctx, "/audio-features/"+url.PathEscape(id), nil, &f); err != nil {
		return domain.AudioFeatures{}, err
	}
	if f.ID == "" {
		return domain.AudioFeatures{}, fmt.Errorf("%s: %w", id, domain.ErrTrackNotFound)
	}
	return f, nil
}

func (c *SpotifyCatalog) Tracks(ctx context.Context, ids []string) ([]domain.Track, error) {
	tracks := make([]domain.Track, 0, len(ids))
	for start := 0; start < len(ids); start += maxTrackIDs {
		end := start + maxTrackIDs
		if end > len(ids) {
			end = len(ids)
		}

		q := url.Values{"ids": {strings.Join(ids[start:end], ",")}}
		if c.market != "" {
			q.Set("market", c.market)
		}

		var resp tracksResponse
		if err := c.get(ctx, "/tracks", q, &resp); err != nil {
			return nil, err
		}
		for _, t := range resp.Tracks {
			if t != nil {
				tracks = append(tracks, t.toDomain())
			}
		}
	}
	return tracks, nil
}

func (c *SpotifyCatalog) Search(ctx context.Context, query string, limit int) ([]domain.Track, error) {
	if limit <= 0 {
		limit = 10
	}
	q := url.Values{
		"q":     {query},
		"type":  {"track"},
		"limit": {strconv.Itoa(limit)},
	}
	if c.market != "" {
		q.Set("market", c.market)
	}

	var resp searchResponse
	if err := c.get(ctx, "/search", q, &resp); err != nil {
		return nil, err
	}

	tracks := make([]domain.Track, 0, len(resp.Tracks.Items))
	for _, t := range resp.Tracks.Items {
		if t != nil {
			tracks = append(tracks, t.toDomain())
		}
	}
	return tracks, nil
}

func (c *SpotifyCatalog) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("spotify request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", path, domain.ErrTrackNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr spotifyError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("spotify API error (status %d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("spotify API error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (t *spotifyTrack) toDomain() domain.Track {
	out := domain.Track{
		ID:         t.ID,
		Title:      t.Name,
		PreviewURL: t.PreviewURL,
	}
	if len(t.Artists) > 0 {
		out.Artist = t.Artists[0].Name
	}
	if len(t.Album.Images) > 0 {
		out.Image = t.Album.Images[0].URL
	}
	return out
}
