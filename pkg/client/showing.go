package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"showings/pkg/model"
	"time"
)

type ShowingClient struct {
	httpClient *HttpClient
}

func NewShowingClient(baseUrl string) *ShowingClient {
	return &ShowingClient{
		httpClient: NewHttpClient(baseUrl),
	}
}

func (c *ShowingClient) Request(body any) (*Response, error) {
	return c.httpClient.POST("/api/v1/showings", body)
}

func (c *ShowingClient) RequestWithHeaders(body any, headers map[string]string) (*Response, error) {
	return c.httpClient.POSTWithHeaders("/api/v1/showings", body, headers)
}

func (c *ShowingClient) RequestRaw(rawBody []byte) (*Response, error) {
	return c.httpClient.POSTRaw("/api/v1/showings", rawBody)
}

func (c *ShowingClient) GetByID(id string) (*Response, error) {
	return c.httpClient.GET("/api/v1/showings/id/" + url.PathEscape(id))
}

func (c *ShowingClient) List(lotID string, status string, limit int, offset int64) (*Response, error) {
	q := url.Values{}
	if lotID != "" {
		q.Set("lot_id", lotID)
	}
	if status != "" {
		q.Set("status", status)
	}
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("offset", fmt.Sprintf("%d", offset))
	return c.httpClient.GET("/api/v1/showings?" + q.Encode())
}

func (c *ShowingClient) Cancel(id string) (*Response, error) {
	return c.httpClient.POST("/api/v1/showings/id/"+url.PathEscape(id)+"/cancel", nil)
}

func (c *ShowingClient) Complete(id string) (*Response, error) {
	return c.httpClient.POST("/api/v1/showings/id/"+url.PathEscape(id)+"/complete", nil)
}

func (c *ShowingClient) Reschedule(id string, start, end time.Time) (*Response, error) {
	body := model.RescheduleRequest{StartTime: start, EndTime: end}
	return c.httpClient.PATCH("/api/v1/showings/id/"+url.PathEscape(id)+"/reschedule", body)
}

func (c *ShowingClient) Conflicts(lotID string, start, end time.Time, excludeID string) (*Response, error) {
	q := url.Values{}
	q.Set("lot_id", lotID)
	q.Set("start_time", start.Format(time.RFC3339))
	q.Set("end_time", end.Format(time.RFC3339))
	if excludeID != "" {
		q.Set("exclude_id", excludeID)
	}
	return c.httpClient.GET("/api/v1/showings/conflicts?" + q.Encode())
}

func (c *ShowingClient) DailyAgenda(lotID string, date string) (*Response, error) {
	return c.httpClient.GET("/api/v1/lots/id/" + url.PathEscape(lotID) + "/showings?date=" + url.QueryEscape(date))
}

func (c *ShowingClient) Reconcile() (*Response, error) {
	return c.httpClient.POST("/api/v1/calendar-sync/reconcile", nil)
}

func (c *ShowingClient) WaitForHealthy(maxWait time.Duration) error {
	return c.httpClient.WaitForHealthy(maxWait)
}

func (c *ShowingClient) DecodeShowing(resp *Response) (*model.Showing, error) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, fmt.Errorf("could not decode showing wrapper:\n%+v\n%s", resp.ToString(), err)
	}

	var showing model.Showing
	if err := json.Unmarshal(wrapper.Data, &showing); err != nil {
		return nil, fmt.Errorf("could not decode showing json:\n%+v\n%s", resp.ToString(), err)
	}

	return &showing, nil
}

func (c *ShowingClient) DecodeShowings(resp *Response) ([]*model.Showing, *Metadata, error) {
	var wrapper struct {
		Data       json.RawMessage `json:"data"`
		TotalCount int64           `json:"total_count"`
		Limit      int             `json:"limit"`
		Offset     int64           `json:"offset"`
	}

	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, nil, fmt.Errorf("could not decode paginated resp:\n%+v\n%s", resp.ToString(), err)
	}

	var showings []*model.Showing
	if err := json.Unmarshal(wrapper.Data, &showings); err != nil {
		return nil, nil, fmt.Errorf("could not decode showing list:\n%+v\n%s", resp.ToString(), err)
	}

	metadata := &Metadata{
		TotalCount: wrapper.TotalCount,
		Limit:      wrapper.Limit,
		Offset:     wrapper.Offset,
	}

	return showings, metadata, nil
}
