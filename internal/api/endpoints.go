package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

// Actions understood by the handler endpoint.
const (
	ActionGetDomains            = "getDomains"
	ActionBuyMailActivation     = "buyMailActivation"
	ActionGetMailHistory        = "getMailHistory"
	ActionCheckMailActivation   = "checkMailActivation"
	ActionReorderMailActivation = "reorderMailActivation"
	ActionCancelMailActivation  = "cancelMailActivation"
)

// GetDomains lists the mailbox domains available for receiving mail from site.
func (c *Client) GetDomains(ctx context.Context, site string) (*DomainsResponse, error) {
	payload, err := c.Call(ctx, ActionGetDomains, url.Values{"site": {site}})
	if err != nil {
		return nil, err
	}
	var result DomainsResponse
	if err := decodePayload(payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// BuyMailActivation purchases a mailbox on the given domain.
func (c *Client) BuyMailActivation(ctx context.Context, site string, mailType int, mailDomain string) (*MailActivationDTO, error) {
	payload, err := c.Call(ctx, ActionBuyMailActivation, url.Values{
		"site":        {site},
		"mail_type":   {strconv.Itoa(mailType)},
		"mail_domain": {mailDomain},
	})
	if err != nil {
		return nil, err
	}
	return decodeActivation(payload)
}

// GetMailHistory lists past activations. Empty Search is omitted; Sort is
// passed through as given.
func (c *Client) GetMailHistory(ctx context.Context, p HistoryParams) (*HistoryResponse, error) {
	params := url.Values{
		"page":     {strconv.Itoa(p.Page)},
		"per_page": {strconv.Itoa(p.PerPage)},
		"sort":     {p.Sort},
	}
	if p.Search != "" {
		params.Set("search", p.Search)
	}

	payload, err := c.Call(ctx, ActionGetMailHistory, params)
	if err != nil {
		return nil, err
	}
	var result HistoryResponse
	if err := decodePayload(payload, &result); err != nil {
		return nil, err
	}
	for _, entry := range result.List {
		if entry.ID == 0 || entry.Email == "" {
			return nil, &ServiceError{StatusCode: 200, Body: string(payload)}
		}
	}
	return &result, nil
}

// CheckMailActivation asks whether a message has arrived for activation id.
func (c *Client) CheckMailActivation(ctx context.Context, id int64) (*CheckResult, error) {
	payload, err := c.Call(ctx, ActionCheckMailActivation, idParams(id))
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		// Not an object, so no message field.
		return &CheckResult{}, nil
	}
	raw, ok := fields["full_message"]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return &CheckResult{}, nil
	}
	var msg String
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, &ServiceError{StatusCode: 200, Body: string(payload)}
	}
	return &CheckResult{Received: true, FullMessage: string(msg)}, nil
}

// ReorderMailActivation reactivates a mailbox; the service answers with a
// new id/email pair.
func (c *Client) ReorderMailActivation(ctx context.Context, id int64) (*MailActivationDTO, error) {
	payload, err := c.Call(ctx, ActionReorderMailActivation, idParams(id))
	if err != nil {
		return nil, err
	}
	return decodeActivation(payload)
}

// CancelMailActivation cancels a mailbox and returns the raw payload.
func (c *Client) CancelMailActivation(ctx context.Context, id int64) (json.RawMessage, error) {
	return c.Call(ctx, ActionCancelMailActivation, idParams(id))
}

func idParams(id int64) url.Values {
	return url.Values{"id": {strconv.FormatInt(id, 10)}}
}

func decodeActivation(payload json.RawMessage) (*MailActivationDTO, error) {
	var result MailActivationDTO
	if err := decodePayload(payload, &result); err != nil {
		return nil, err
	}
	if result.ID == 0 || result.Email == "" {
		return nil, &ServiceError{StatusCode: 200, Body: string(payload)}
	}
	return &result, nil
}

// decodePayload unmarshals a success payload. A payload that does not fit
// the expected shape is reported as a malformed response.
func decodePayload(payload json.RawMessage, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return &ServiceError{StatusCode: 200, Body: string(payload)}
	}
	return nil
}
