package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"showings/pkg/model"
	"time"
)

type LotClient struct {
	httpClient *HttpClient
}

func NewLotClient(baseUrl string) *LotClient {
	return &LotClient{
		httpClient: NewHttpClient(baseUrl),
	}
}

func (c *LotClient) Create(body any) (*Response, error) {
	return c.httpClient.POST("/api/v1/lots", body)
}

func (c *LotClient) GetByID(id string) (*Response, error) {
	return c.httpClient.GET("/api/v1/lots/id/" + url.PathEscape(id))
}

func (c *LotClient) AddAvailability(lotID string, body any) (*Response, error) {
	return c.httpClient.POST("/api/v1/lots/id/"+url.PathEscape(lotID)+"/availability", body)
}

func (c *LotClient) ListAvailability(lotID string) (*Response, error) {
	return c.httpClient.GET("/api/v1/lots/id/" + url.PathEscape(lotID) + "/availability")
}

func (c *LotClient) DeleteAvailability(id string) (*Response, error) {
	return c.httpClient.DELETE("/api/v1/availability/id/" + url.PathEscape(id))
}

func (c *LotClient) Offerable(lotID string, start, end time.Time) (*Response, error) {
	q := url.Values{}
	q.Set("start_time", start.Format(time.RFC3339))
	q.Set("end_time", end.Format(time.RFC3339))
	return c.httpClient.GET("/api/v1/lots/id/" + url.PathEscape(lotID) + "/offerable?" + q.Encode())
}

func (c *LotClient) PutCalendarCredential(ownerID string, body any) (*Response, error) {
	return c.httpClient.PUT("/api/v1/owners/id/"+url.PathEscape(ownerID)+"/calendar-credential", body)
}

func (c *LotClient) DeleteCalendarCredential(ownerID string) (*Response, error) {
	return c.httpClient.DELETE("/api/v1/owners/id/" + url.PathEscape(ownerID) + "/calendar-credential")
}

func (c *LotClient) DecodeLot(resp *Response) (*model.Lot, error) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, fmt.Errorf("could not decode lot wrapper:\n%+v\n%s", resp.ToString(), err)
	}

	var lot model.Lot
	if err := json.Unmarshal(wrapper.Data, &lot); err != nil {
		return nil, fmt.Errorf("could not decode lot json:\n%+v\n%s", resp.ToString(), err)
	}

	return &lot, nil
}
