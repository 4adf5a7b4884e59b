// internal/api/client.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tmdojo/viewer/pkg/core"
)

const defaultTimeout = 30 * time.Second

// Client handles communication with the replay web API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client. A zero timeout uses 30 seconds.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// replayDTO is the replay listing entry as served by the API.
type replayDTO struct {
	ID           string `json:"_id"`
	MapUID       string `json:"mapUId"`
	PlayerName   string `json:"playerName"`
	WebID        string `json:"webId"`
	RaceFinished int    `json:"raceFinished"`
	EndRaceTime  int32  `json:"endRaceTime"`
	Date         int64  `json:"date"`
	ObjectPath   string `json:"objectPath"`
}

func (d replayDTO) meta() core.TraceMeta {
	return core.TraceMeta{
		ID:          core.TraceID(d.ID),
		MapUID:      d.MapUID,
		PlayerName:  d.PlayerName,
		WebID:       d.WebID,
		Finished:    d.RaceFinished == 1,
		EndRaceTime: d.EndRaceTime,
		UploadedAt:  time.UnixMilli(d.Date).UTC(),
		ObjectPath:  d.ObjectPath,
	}
}

type replaysResponse struct {
	Files []replayDTO `json:"files"`
}

type blockDTO struct {
	Name     string     `json:"name"`
	Position [3]float64 `json:"position"`
	Rotation [3]float64 `json:"rotation"`
}

type blocksResponse struct {
	Blocks []blockDTO `json:"blocks"`
}

// StatusError is returned when the API answers with a non-200 status.
type StatusError struct {
	Op     string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Op, e.Status)
}

// Healthcheck checks if the web API is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	resp, err := c.get(ctx, "/healthcheck", nil)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Op: "healthcheck", Status: resp.StatusCode}
	}
	return nil
}

// ListReplays returns the replay metadata of a map.
func (c *Client) ListReplays(ctx context.Context, mapUID string) ([]core.TraceMeta, error) {
	resp, err := c.get(ctx, "/replays", url.Values{"mapUId": {mapUID}})
	if err != nil {
		return nil, fmt.Errorf("list replays request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Op: "list replays", Status: resp.StatusCode}
	}

	var body replaysResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode replay list: %w", err)
	}

	metas := make([]core.TraceMeta, len(body.Files))
	for i, f := range body.Files {
		metas[i] = f.meta()
	}
	return metas, nil
}

// FetchReplayData downloads the raw telemetry buffer of a replay.
func (c *Client) FetchReplayData(ctx context.Context, meta core.TraceMeta) ([]byte, error) {
	resp, err := c.get(ctx, "/replays/"+url.PathEscape(string(meta.ID)), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch replay %q failed: %w", meta.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Op: "fetch replay " + string(meta.ID), Status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read replay %q: %w", meta.ID, err)
	}
	return data, nil
}

// FetchMapBlocks returns the block list of a map.
func (c *Client) FetchMapBlocks(ctx context.Context, mapUID string) ([]core.MapBlock, error) {
	resp, err := c.get(ctx, "/maps/"+url.PathEscape(mapUID)+"/blocks", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch map blocks failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Op: "fetch map blocks", Status: resp.StatusCode}
	}

	var body blocksResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode map blocks: %w", err)
	}

	blocks := make([]core.MapBlock, len(body.Blocks))
	for i, b := range body.Blocks {
		blocks[i] = core.MapBlock{Name: b.Name, Position: b.Position, Rotation: b.Rotation}
	}
	return blocks, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return c.httpClient.Do(req)
}
