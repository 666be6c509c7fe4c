// Package video creates ephemeral meeting rooms for exchange handovers via an
// external room provider.
package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

var ErrUnavailable = errors.New("video provider unavailable")

type Room struct {
	URL  string `json:"url"`
	Code string `json:"code"`
}

type RoomCreator interface {
	CreateRoom(ctx context.Context, exchangeID string) (Room, error)
}

type HTTPRoomCreator struct {
	url    string
	apiKey string
	client *http.Client
}

func NewHTTPRoomCreator(url, apiKey string) *HTTPRoomCreator {
	return &HTTPRoomCreator{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *HTTPRoomCreator) CreateRoom(ctx context.Context, exchangeID string) (Room, error) {
	if c.url == "" {
		return Room{}, ErrUnavailable
	}
	body, _ := json.Marshal(map[string]string{"name": "exchange-" + exchangeID})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/rooms", bytes.NewReader(body))
	if err != nil {
		return Room{}, ErrUnavailable
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.client.Do(req)
	if err != nil {
		return Room{}, ErrUnavailable
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return Room{}, ErrUnavailable
	}
	var room Room
	if err := json.NewDecoder(resp.Body).Decode(&room); err != nil {
		return Room{}, ErrUnavailable
	}
	return room, nil
}
