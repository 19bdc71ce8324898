package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pharmaorder/internal/model"
)

// Client wraps the order API endpoints the patient-side poller uses.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status: %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) ListPharmacies(ctx context.Context) ([]model.Pharmacy, error) {
	var pharmacies []model.Pharmacy
	if err := c.get(ctx, "/api/pharmacies", &pharmacies); err != nil {
		return nil, err
	}
	return pharmacies, nil
}

// LatestOrders fetches the patient's most recent order per pharmacy.
func (c *Client) LatestOrders(ctx context.Context, patientID, prescriptionID string) ([]model.Order, error) {
	q := url.Values{}
	q.Set("patientId", patientID)
	if prescriptionID != "" {
		q.Set("prescriptionId", prescriptionID)
	}

	var orders []model.Order
	if err := c.get(ctx, "/api/orders/latest?"+q.Encode(), &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// CreateOrder places an order. When the server reports a duplicate
// active order it returns the existing record in the conflict body;
// existed is true in that case and the returned order is the server's.
func (c *Client) CreateOrder(ctx context.Context, patientID, pharmacyID, prescriptionID string) (order *model.Order, existed bool, err error) {
	payload, err := json.Marshal(map[string]string{
		"patientId":      patientID,
		"pharmacyId":     pharmacyID,
		"prescriptionId": prescriptionID,
	})
	if err != nil {
		return nil, false, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/orders", strings.NewReader(string(payload)))
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusConflict:
		var o model.Order
		if err := json.NewDecoder(resp.Body).Decode(&o); err != nil {
			return nil, false, fmt.Errorf("decode response: %w", err)
		}
		return &o, resp.StatusCode == http.StatusConflict, nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, false, fmt.Errorf("unexpected status: %d, body: %s", resp.StatusCode, string(body))
	}
}
