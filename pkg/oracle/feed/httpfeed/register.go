package httpfeed

import (
	"time"

	"tc.com/price-aggregator/pkg/oracle/feed"
)

const (
	defaultTwapWindow   = 1800 // seconds
	defaultTwapDecimals = 18
)

func init() {
	feed.Register(feed.TypeRound, newRoundFeed)
	feed.Register(feed.TypeTwap, newTwapFeed)
	feed.Register(feed.TypeDispute, newDisputeFeed)
	feed.Register(feed.TypeProxy, newProxyFeed)
}

func newRoundFeed(config map[string]interface{}) (feed.Feed, error) {
	client, err := clientFromConfig(config)
	if err != nil {
		return nil, err
	}
	heartbeat := time.Duration(getInt(config, "heartbeat", 0)) * time.Second
	return feed.NewRoundFeed(client, heartbeat), nil
}

func newTwapFeed(config map[string]interface{}) (feed.Feed, error) {
	client, err := clientFromConfig(config)
	if err != nil {
		return nil, err
	}
	window := time.Duration(getInt(config, "window", defaultTwapWindow)) * time.Second
	decimals := getInt(config, "decimals", defaultTwapDecimals)
	return feed.NewTwapFeed(client, window, uint8(decimals)), nil
}

func newDisputeFeed(config map[string]interface{}) (feed.Feed, error) {
	client, err := clientFromConfig(config)
	if err != nil {
		return nil, err
	}
	return feed.NewDisputeFeed(client), nil
}

func newProxyFeed(config map[string]interface{}) (feed.Feed, error) {
	client, err := clientFromConfig(config)
	if err != nil {
		return nil, err
	}
	return feed.NewProxyFeed(client), nil
}

func clientFromConfig(config map[string]interface{}) (*Client, error) {
	endpoint := getString(config, "url", "")
	if endpoint == "" {
		return nil, ErrURLRequired
	}
	timeout := time.Duration(getInt(config, "timeout", 0)) * time.Millisecond
	return NewClient(endpoint, timeout), nil
}

func getString(config map[string]interface{}, key, defaultValue string) string {
	if val, ok := config[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return defaultValue
}

func getInt(config map[string]interface{}, key string, defaultValue int) int {
	if val, ok := config[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return defaultValue
}
