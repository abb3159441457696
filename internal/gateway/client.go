// Package gateway talks to the spreadsheet-backed inspection service.
//
// The service answers every action with a JSON envelope carrying a success flag.
// The gateway never returns errors: a failed read is an absent or empty result, a
// failed write is "not accepted". Failures are logged.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/apex/log"

	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/domain"
)

const (
	ActionGetExtinguisher  = "getExtinguisher"
	ActionGetInspections   = "getInspections"
	ActionSubmitInspection = "submitInspection"
)

// maxBody caps how much of a reply is read.
const maxBody = 8 << 20

type extinguisherReply struct {
	Success      bool                 `json:"success"`
	Extinguisher *domain.Extinguisher `json:"extinguisher"`
}

type inspectionsReply struct {
	Success     bool                `json:"success"`
	Inspections []domain.Inspection `json:"inspections"`
}

type submitReply struct {
	Success bool `json:"success"`
}

// SubmitRequest is the body of a submitInspection call.
type SubmitRequest struct {
	Action  string            `json:"action"`
	Payload domain.Inspection `json:"payload"`
}

type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	log     log.Interface
}

// New returns a client for the service at baseURL. Each call is bounded by timeout;
// zero means 15s.
func New(baseURL string, timeout time.Duration, logger log.Interface) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		timeout: timeout,
		log:     logger,
	}
}

func (c *Client) FetchExtinguisher(ctx context.Context, id string) (*domain.Extinguisher, bool) {
	var reply extinguisherReply
	q := url.Values{"action": {ActionGetExtinguisher}, "id": {id}}
	if err := c.call(ctx, http.MethodGet, q, nil, &reply); err != nil {
		c.log.WithError(err).WithFields(log.Fields{"action": ActionGetExtinguisher, "id": id}).Error("backend call failed")
		return nil, false
	}
	if !reply.Success || reply.Extinguisher == nil {
		return nil, false
	}
	return reply.Extinguisher, true
}

func (c *Client) FetchInspections(ctx context.Context) []domain.Inspection {
	var reply inspectionsReply
	q := url.Values{"action": {ActionGetInspections}}
	if err := c.call(ctx, http.MethodGet, q, nil, &reply); err != nil {
		c.log.WithError(err).WithField("action", ActionGetInspections).Error("backend call failed")
		return []domain.Inspection{}
	}
	if !reply.Success || reply.Inspections == nil {
		return []domain.Inspection{}
	}
	return reply.Inspections
}

func (c *Client) SubmitInspection(ctx context.Context, record domain.Inspection) bool {
	var reply submitReply
	body := SubmitRequest{Action: ActionSubmitInspection, Payload: record}
	if err := c.call(ctx, http.MethodPost, nil, body, &reply); err != nil {
		c.log.WithError(err).WithFields(log.Fields{
			"action":       ActionSubmitInspection,
			"equipment_id": record.EquipmentID,
		}).Error("backend call failed")
		return false
	}
	return reply.Success
}

func (c *Client) call(ctx context.Context, method string, query url.Values, body interface{}, out interface{}) error {
	u := c.baseURL
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		bodyJSON, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		bodyReader = bytes.NewReader(bodyJSON)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(out); err != nil {
		return fmt.Errorf("failed to decode reply: %w", err)
	}
	return nil
}
