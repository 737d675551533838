package validator

import (
	"errors"
	"showings/pkg/logger"
	"showings/pkg/model"
	"testing"
	"time"
)

func newTestValidator() *ShowingValidator {
	return NewShowingValidator(logger.Discard())
}

func validRequest() *model.ShowingRequest {
	start := time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)
	return &model.ShowingRequest{
		LotID:       "lot-17",
		StartTime:   start,
		EndTime:     start.Add(30 * time.Minute),
		ClientName:  "Dana Levi",
		ClientEmail: "dana@example.com",
		ClientPhone: "+972541234567",
	}
}

func TestShowingValidator_ValidateRequest(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name      string
		mutate    func(r *model.ShowingRequest)
		wantErr   bool
		wantField string
	}{
		{name: "valid", mutate: func(r *model.ShowingRequest) {}},
		{name: "contact fields optional", mutate: func(r *model.ShowingRequest) { r.ClientEmail, r.ClientPhone = "", "" }},
		{name: "missing lot", mutate: func(r *model.ShowingRequest) { r.LotID = "" }, wantErr: true, wantField: "LotID"},
		{name: "missing client name", mutate: func(r *model.ShowingRequest) { r.ClientName = "" }, wantErr: true, wantField: "ClientName"},
		{name: "short client name", mutate: func(r *model.ShowingRequest) { r.ClientName = "D" }, wantErr: true, wantField: "ClientName"},
		{name: "bad email", mutate: func(r *model.ShowingRequest) { r.ClientEmail = "not-an-email" }, wantErr: true, wantField: "ClientEmail"},
		{name: "bad phone", mutate: func(r *model.ShowingRequest) { r.ClientPhone = "0541234567" }, wantErr: true, wantField: "ClientPhone"},
		{name: "missing start", mutate: func(r *model.ShowingRequest) { r.StartTime = time.Time{} }, wantErr: true, wantField: "StartTime"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)

			err := v.ValidateRequest(req)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %T: %v", err, err)
			}
			found := false
			for _, e := range verrs {
				if e.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %s, got %v", tt.wantField, verrs)
			}
		})
	}
}

func TestShowingValidator_ValidateReschedule(t *testing.T) {
	v := newTestValidator()

	if err := v.ValidateReschedule(&model.RescheduleRequest{}); err == nil {
		t.Error("expected error for empty reschedule request")
	}

	start := time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)
	if err := v.ValidateReschedule(&model.RescheduleRequest{StartTime: start, EndTime: start.Add(time.Hour)}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "LotID", Message: "LotID is required"},
		{Field: "ClientName", Message: "ClientName is required"},
	}
	want := "validation failed: 2 error(s): [LotID: LotID is required; ClientName: ClientName is required]"
	if errs.Error() != want {
		t.Errorf("Error() = %q, want %q", errs.Error(), want)
	}
}
