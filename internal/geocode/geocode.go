package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Client resolves a coordinate to a human-readable address. Results are
// display-only and never feed back into proximity decisions.
type Client interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}

const defaultTimeout = 10 * time.Second

type nominatimClient struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

// NewNominatim builds a reverse-geocoding client backed by a Nominatim
// endpoint. The base URL should point at the API root, e.g.
// https://nominatim.openstreetmap.org.
func NewNominatim(baseURL string, log *zap.Logger) Client {
	return &nominatimClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        log.Named("geocode"),
	}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
}

func (c *nominatimClient) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	query := url.Values{}
	query.Set("format", "jsonv2")
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))

	endpoint := fmt.Sprintf("%s/reverse?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	// Nominatim's usage policy requires an identifying user agent.
	req.Header.Set("User-Agent", "digiget/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocode: unexpected status %d", resp.StatusCode)
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.DisplayName, nil
}
