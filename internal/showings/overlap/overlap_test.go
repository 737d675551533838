package overlap

import (
	"showings/pkg/model"
	"testing"
	"time"
)

func at(hhmm string) time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		panic(err)
	}
	return time.Date(2030, 5, 1, t.Hour(), t.Minute(), 0, 0, time.UTC)
}

func TestConflicts(t *testing.T) {
	tests := []struct {
		name               string
		existing, proposed [2]string
		want               bool
	}{
		{name: "back to back after", existing: [2]string{"09:00", "09:30"}, proposed: [2]string{"09:30", "10:00"}, want: false},
		{name: "back to back before", existing: [2]string{"10:00", "10:30"}, proposed: [2]string{"09:30", "10:00"}, want: false},
		{name: "disjoint", existing: [2]string{"08:00", "08:30"}, proposed: [2]string{"09:00", "10:00"}, want: false},
		{name: "existing contains proposed", existing: [2]string{"09:00", "10:00"}, proposed: [2]string{"09:30", "09:45"}, want: true},
		{name: "proposed end inside existing", existing: [2]string{"09:00", "10:00"}, proposed: [2]string{"08:30", "09:30"}, want: true},
		{name: "proposed start inside existing", existing: [2]string{"09:00", "10:00"}, proposed: [2]string{"09:30", "10:30"}, want: true},
		{name: "proposed contains existing", existing: [2]string{"09:15", "09:45"}, proposed: [2]string{"09:00", "10:00"}, want: true},
		{name: "identical windows", existing: [2]string{"09:00", "10:00"}, proposed: [2]string{"09:00", "10:00"}, want: true},
		{name: "same start shorter", existing: [2]string{"09:00", "10:00"}, proposed: [2]string{"09:00", "09:30"}, want: true},
		{name: "same end shorter", existing: [2]string{"09:00", "10:00"}, proposed: [2]string{"09:30", "10:00"}, want: true},
		{name: "same start longer", existing: [2]string{"09:00", "09:30"}, proposed: [2]string{"09:00", "10:00"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Conflicts(at(tt.existing[0]), at(tt.existing[1]), at(tt.proposed[0]), at(tt.proposed[1]))
			if got != tt.want {
				t.Errorf("Conflicts(%v, %v) = %v, want %v", tt.existing, tt.proposed, got, tt.want)
			}
		})
	}
}

// The predicate must agree with half-open interval intersection for every valid pair.
func TestConflicts_MatchesHalfOpenIntersection(t *testing.T) {
	base := time.Date(2030, 5, 1, 8, 0, 0, 0, time.UTC)
	slot := func(i int) time.Time { return base.Add(time.Duration(i) * 15 * time.Minute) }

	for s := 0; s < 8; s++ {
		for e := s + 1; e <= 8; e++ {
			for S := 0; S < 8; S++ {
				for E := S + 1; E <= 8; E++ {
					want := s < E && S < e
					got := Conflicts(slot(s), slot(e), slot(S), slot(E))
					if got != want {
						t.Fatalf("existing [%d,%d) proposed [%d,%d): got %v, want %v", s, e, S, E, got, want)
					}
					if got != Conflicts(slot(S), slot(E), slot(s), slot(e)) {
						t.Fatalf("predicate not symmetric for [%d,%d) and [%d,%d)", s, e, S, E)
					}
				}
			}
		}
	}
}

func TestValidRange(t *testing.T) {
	if !ValidRange(at("09:00"), at("09:30")) {
		t.Error("09:00-09:30 should be valid")
	}
	if ValidRange(at("09:30"), at("09:30")) {
		t.Error("empty window should be invalid")
	}
	if ValidRange(at("10:00"), at("09:30")) {
		t.Error("inverted window should be invalid")
	}
}

func TestFindConflict(t *testing.T) {
	showings := []*model.Showing{
		{ID: "a", Status: model.StatusCanceled, StartTime: at("09:00"), EndTime: at("10:00")},
		{ID: "b", Status: model.StatusCompleted, StartTime: at("09:00"), EndTime: at("10:00")},
		{ID: "c", Status: model.StatusScheduled, StartTime: at("10:00"), EndTime: at("11:00")},
	}

	tests := []struct {
		name      string
		start     string
		end       string
		excludeID string
		wantID    string
	}{
		{name: "canceled and completed ignored", start: "09:00", end: "10:00", wantID: ""},
		{name: "scheduled conflict", start: "10:30", end: "11:30", wantID: "c"},
		{name: "touching scheduled", start: "11:00", end: "11:30", wantID: ""},
		{name: "excluded self", start: "10:00", end: "11:00", excludeID: "c", wantID: ""},
		{name: "exclude other id", start: "10:00", end: "11:00", excludeID: "a", wantID: "c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindConflict(showings, at(tt.start), at(tt.end), tt.excludeID)
			gotID := ""
			if got != nil {
				gotID = got.ID
			}
			if gotID != tt.wantID {
				t.Errorf("FindConflict() = %q, want %q", gotID, tt.wantID)
			}
		})
	}
}
