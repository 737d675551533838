package testutil

import (
	"time"

	"showings/pkg/model"
)

type LotBuilder struct {
	lot model.Lot
}

func NewLotBuilder() *LotBuilder {
	return &LotBuilder{
		lot: model.Lot{
			ParkID:   "park-1",
			OwnerID:  "owner-1",
			Name:     "Lot 12",
			Address:  "12 Pine Ridge Rd",
			TimeZone: "America/Denver",
		},
	}
}

func (b *LotBuilder) WithName(name string) *LotBuilder {
	b.lot.Name = name
	return b
}

func (b *LotBuilder) WithOwner(ownerID string) *LotBuilder {
	b.lot.OwnerID = ownerID
	return b
}

func (b *LotBuilder) WithTimeZone(tz string) *LotBuilder {
	b.lot.TimeZone = tz
	return b
}

func (b *LotBuilder) Build() model.Lot {
	return b.lot
}

type ShowingBuilder struct {
	req model.ShowingRequest
}

// NewShowingBuilder starts from a one hour showing tomorrow at 10:00 UTC.
func NewShowingBuilder(lotID string) *ShowingBuilder {
	start := time.Now().UTC().Add(24 * time.Hour).Truncate(24 * time.Hour).Add(10 * time.Hour)
	return &ShowingBuilder{
		req: model.ShowingRequest{
			LotID:       lotID,
			StartTime:   start,
			EndTime:     start.Add(time.Hour),
			ClientName:  "Jordan Avery",
			ClientEmail: "jordan@example.com",
			ClientPhone: "+14155550123",
		},
	}
}

func (b *ShowingBuilder) WithWindow(start, end time.Time) *ShowingBuilder {
	b.req.StartTime = start
	b.req.EndTime = end
	return b
}

func (b *ShowingBuilder) WithClientName(name string) *ShowingBuilder {
	b.req.ClientName = name
	return b
}

func (b *ShowingBuilder) WithNotes(notes string) *ShowingBuilder {
	b.req.Notes = notes
	return b
}

func (b *ShowingBuilder) Build() model.ShowingRequest {
	return b.req
}
