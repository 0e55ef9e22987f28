package watcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	"checkin-queue/internal/models"
)

const fetchTimeout = 5 * time.Second

// QueueURL derives the REST queue endpoint from the websocket URL.
func QueueURL(wsURL string) (string, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/api/queue"
	u.RawQuery = ""
	return u.String(), nil
}

// FetchQueue reads the authoritative waiting queue over HTTP.
func FetchQueue(queueURL string) ([]models.QueueEntry, error) {
	agent := fiber.Get(queueURL).Timeout(fetchTimeout)
	if err := agent.Parse(); err != nil {
		return nil, err
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if code != fiber.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", queueURL, code)
	}

	var entries []models.QueueEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode queue: %w", err)
	}
	return entries, nil
}
