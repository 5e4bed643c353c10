// Package httpfeed binds the feed client interfaces to JSON-over-HTTP
// provider endpoints. One Client serves a single endpoint URL and
// implements all four provider APIs; a given endpoint is only ever used
// through the interface matching its configured feed type.
package httpfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tc.com/price-aggregator/pkg/oracle/feed"
	"tc.com/price-aggregator/pkg/version"
)

const defaultTimeout = 10 * time.Second

// Client is a JSON HTTP client for a single provider endpoint.
type Client struct {
	url    string
	client *http.Client
}

// Ensure Client implements the provider interfaces consumed by the adapters.
var (
	_ feed.RoundClient   = (*Client)(nil)
	_ feed.TwapClient    = (*Client)(nil)
	_ feed.DisputeClient = (*Client)(nil)
	_ feed.ProxyClient   = (*Client)(nil)
)

// NewClient creates a client for the given endpoint URL.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		url: endpoint,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// get performs a GET request against the endpoint and decodes the JSON body.
func (c *Client) get(ctx context.Context, params url.Values, out interface{}) error {
	endpoint := c.url
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.AgentString())

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// roundResponse is the wire format of a round endpoint.
type roundResponse struct {
	RoundID         uint64 `json:"round_id"`
	Answer          string `json:"answer"`
	UpdatedAt       int64  `json:"updated_at"`
	AnsweredInRound uint64 `json:"answered_in_round"`
}

// LatestRound fetches the latest round from the endpoint.
func (c *Client) LatestRound(ctx context.Context) (feed.RoundData, error) {
	var out roundResponse
	if err := c.get(ctx, nil, &out); err != nil {
		return feed.RoundData{}, err
	}

	answer, ok := new(big.Int).SetString(out.Answer, 10)
	if !ok {
		return feed.RoundData{}, fmt.Errorf("%w: answer %q", ErrBadPayload, out.Answer)
	}

	return feed.RoundData{
		RoundID:         out.RoundID,
		Answer:          answer,
		UpdatedAt:       time.Unix(out.UpdatedAt, 0),
		AnsweredInRound: out.AnsweredInRound,
	}, nil
}

// twapResponse is the wire format of a TWAP observation endpoint.
type twapResponse struct {
	TickCumulative []int64 `json:"tick_cumulative"`
	Timestamp      int64   `json:"timestamp"`
}

// Observe fetches a pair of cumulative tick samples over the window.
func (c *Client) Observe(ctx context.Context, window time.Duration) (feed.TwapObservation, error) {
	params := url.Values{}
	params.Set("window", strconv.FormatInt(int64(window/time.Second), 10))

	var out twapResponse
	if err := c.get(ctx, params, &out); err != nil {
		return feed.TwapObservation{}, err
	}
	if len(out.TickCumulative) != 2 {
		return feed.TwapObservation{}, fmt.Errorf("%w: expected 2 cumulative ticks, got %d",
			ErrBadPayload, len(out.TickCumulative))
	}

	return feed.TwapObservation{
		TickCumulative: [2]int64{out.TickCumulative[0], out.TickCumulative[1]},
		Timestamp:      time.Unix(out.Timestamp, 0),
	}, nil
}

// disputeResponse is the wire format of a single crowd-reported record.
type disputeResponse struct {
	Value     string `json:"value"`
	Timestamp int64  `json:"timestamp"`
	Disputed  bool   `json:"disputed"`
}

// disputeListResponse is the wire format of a ranged query.
type disputeListResponse struct {
	Records []disputeResponse `json:"records"`
}

func decodeDisputeRecord(out disputeResponse) (feed.DisputeRecord, error) {
	value, ok := new(big.Int).SetString(out.Value, 10)
	if !ok {
		return feed.DisputeRecord{}, fmt.Errorf("%w: value %q", ErrBadPayload, out.Value)
	}
	return feed.DisputeRecord{
		Value:     value,
		Timestamp: time.Unix(out.Timestamp, 0),
		Disputed:  out.Disputed,
	}, nil
}

// Latest fetches the most recent crowd-reported record.
func (c *Client) Latest(ctx context.Context) (feed.DisputeRecord, error) {
	var out disputeResponse
	if err := c.get(ctx, nil, &out); err != nil {
		return feed.DisputeRecord{}, err
	}
	return decodeDisputeRecord(out)
}

// Before fetches the newest record observed strictly before ts.
func (c *Client) Before(ctx context.Context, ts time.Time) (feed.DisputeRecord, error) {
	params := url.Values{}
	params.Set("before", strconv.FormatInt(ts.Unix(), 10))

	var out disputeResponse
	if err := c.get(ctx, params, &out); err != nil {
		return feed.DisputeRecord{}, err
	}
	return decodeDisputeRecord(out)
}

// After fetches the oldest record observed strictly after ts.
func (c *Client) After(ctx context.Context, ts time.Time) (feed.DisputeRecord, error) {
	params := url.Values{}
	params.Set("after", strconv.FormatInt(ts.Unix(), 10))

	var out disputeResponse
	if err := c.get(ctx, params, &out); err != nil {
		return feed.DisputeRecord{}, err
	}
	return decodeDisputeRecord(out)
}

// Between fetches all records observed in [from, to].
func (c *Client) Between(ctx context.Context, from, to time.Time) ([]feed.DisputeRecord, error) {
	params := url.Values{}
	params.Set("from", strconv.FormatInt(from.Unix(), 10))
	params.Set("to", strconv.FormatInt(to.Unix(), 10))

	var out disputeListResponse
	if err := c.get(ctx, params, &out); err != nil {
		return nil, err
	}

	records := make([]feed.DisputeRecord, 0, len(out.Records))
	for _, entry := range out.Records {
		record, err := decodeDisputeRecord(entry)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// proxyResponse is the wire format of a proxy endpoint.
type proxyResponse struct {
	Value     string `json:"value"`
	Timestamp int64  `json:"timestamp"`
}

// LatestValue fetches the latest (value, timestamp) pair.
func (c *Client) LatestValue(ctx context.Context) (*big.Int, time.Time, error) {
	var out proxyResponse
	if err := c.get(ctx, nil, &out); err != nil {
		return nil, time.Time{}, err
	}

	value, ok := new(big.Int).SetString(out.Value, 10)
	if !ok {
		return nil, time.Time{}, fmt.Errorf("%w: value %q", ErrBadPayload, out.Value)
	}
	return value, time.Unix(out.Timestamp, 0), nil
}
