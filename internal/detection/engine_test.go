// Uploadwatch - Daily Upload Telemetry Incident Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/uploadwatch

package detection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/uploadwatch/internal/profile"
	"github.com/tomtom215/uploadwatch/internal/telemetry"
)

// mockDetector is a configurable Detector for engine tests.
type mockDetector struct {
	toggle
	typ      IncidentType
	desc     Descriptor
	checkFn  func(in *Input) (*Incident, error)
	calls    int
	sawInput []string
}

func newMockDetector(t IncidentType, fn func(in *Input) (*Incident, error)) *mockDetector {
	return &mockDetector{toggle: toggle{enabled: true}, typ: t, desc: Descriptor{Type: t}, checkFn: fn}
}

func (m *mockDetector) Type() IncidentType     { return m.typ }
func (m *mockDetector) Descriptor() Descriptor { return m.desc }
func (m *mockDetector) Configure(json.RawMessage) error {
	return nil
}

func (m *mockDetector) Check(_ context.Context, in *Input) (*Incident, error) {
	m.mu.Lock()
	m.calls++
	m.sawInput = append(m.sawInput, in.SourceID)
	m.mu.Unlock()
	return m.checkFn(in)
}

func scenarioInput() RunInput {
	stopped := rec("stopped_20250101.csv", 0)
	stopped.Status = telemetry.StatusStopped

	snap := &telemetry.Snapshot{
		Date: monday,
		Records: []telemetry.FileRecord{
			stopped,
			rec("a.csv", 500),
			{SourceID: "new", Filename: "n.csv", UploadedAt: monday.Add(time.Hour), Rows: 0, RowsKnown: true},
		},
	}
	p999 := newProfile().
		meanFiles(time.Monday, 10).
		rows(time.Monday, f64(500), f64(0)).
		stdev(50).
		window(time.Monday, "11:00:00–11:30:00 UTC").
		build()
	quiet := &profile.SourceProfile{SourceID: "111"}
	quiet.FileCounts[time.Monday] = &profile.FileCountStats{MeanFiles: f64(1)}

	return RunInput{Date: monday, Snapshot: snap, Profiles: profile.NewSet(p999, quiet)}
}

func TestEngine_RunScenario(t *testing.T) {
	e := NewDefaultEngine()

	res, err := e.Run(context.Background(), scenarioInput())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantSources := []string{"111", "999", "new"}
	if len(res.SourceIDs) != len(wantSources) {
		t.Fatalf("SourceIDs = %v, want %v", res.SourceIDs, wantSources)
	}
	for i := range wantSources {
		if res.SourceIDs[i] != wantSources[i] {
			t.Errorf("SourceIDs[%d] = %s, want %s", i, res.SourceIDs[i], wantSources[i])
		}
	}

	type key struct {
		source string
		typ    IncidentType
	}
	want := []key{
		{"111", IncidentMissingFiles},
		{"999", IncidentDuplicateOrFailed},
		{"999", IncidentMissingFiles},
		{"999", IncidentVolumeVariation},
		{"999", IncidentStaleCoverage},
		{"new", IncidentUnexpectedEmpty},
	}
	if len(res.Incidents) != len(want) {
		t.Fatalf("Incidents = %+v, want %d", res.Incidents, len(want))
	}
	for i, w := range want {
		got := key{res.Incidents[i].SourceID, res.Incidents[i].Type}
		if got != w {
			t.Errorf("Incidents[%d] = %v, want %v", i, got, w)
		}
	}

	m := e.Metrics()
	if m.RunsCompleted != 1 || m.SourcesEvaluated != 3 {
		t.Errorf("Metrics() = %+v", m)
	}
	// Sources without a profile skip the profile-only detectors.
	if got := m.DetectorMetrics[IncidentMissingFiles].Skipped; got != 1 {
		t.Errorf("MissingFiles skipped = %d, want 1", got)
	}
	if got := m.DetectorMetrics[IncidentMissingFiles].Incidents; got != 2 {
		t.Errorf("MissingFiles incidents = %d, want 2", got)
	}
}

func TestEngine_Idempotent(t *testing.T) {
	e := NewDefaultEngine()
	in := scenarioInput()

	first, err := e.Run(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Run(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}

	a, _ := json.Marshal(first.Incidents)
	b, _ := json.Marshal(second.Incidents)
	if string(a) != string(b) {
		t.Errorf("runs differ:\n%s\n%s", a, b)
	}
}

func TestEngine_NoSources(t *testing.T) {
	e := NewDefaultEngine()
	_, err := e.Run(context.Background(), RunInput{Date: monday, Snapshot: &telemetry.Snapshot{}})
	if !errors.Is(err, ErrNoSources) {
		t.Errorf("Run() error = %v, want ErrNoSources", err)
	}

	_, err = e.Run(context.Background(), RunInput{Date: monday})
	if !errors.Is(err, ErrNoSources) {
		t.Errorf("Run() with nil inputs error = %v, want ErrNoSources", err)
	}
}

func TestEngine_NoDate(t *testing.T) {
	e := NewDefaultEngine()
	in := scenarioInput()
	in.Date = time.Time{}
	if _, err := e.Run(context.Background(), in); !errors.Is(err, ErrNoDate) {
		t.Errorf("Run() error = %v, want ErrNoDate", err)
	}
}

func TestEngine_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewDefaultEngine().Run(ctx, scenarioInput()); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestEngine_PanicRecovery(t *testing.T) {
	e := NewEngine()
	panicky := newMockDetector(IncidentDuplicateOrFailed, func(in *Input) (*Incident, error) {
		if in.SourceID == "b" {
			panic("boom")
		}
		return &Incident{Type: IncidentDuplicateOrFailed, TotalIncidents: 1}, nil
	})
	failing := newMockDetector(IncidentMissingFiles, func(*Input) (*Incident, error) {
		return nil, errors.New("bad input")
	})
	healthy := newMockDetector(IncidentStaleCoverage, func(in *Input) (*Incident, error) {
		return &Incident{SourceID: in.SourceID, Type: IncidentStaleCoverage, TotalIncidents: 1}, nil
	})
	e.RegisterDetector(panicky)
	e.RegisterDetector(failing)
	e.RegisterDetector(healthy)

	in := RunInput{Date: monday, Profiles: profile.NewSet(
		&profile.SourceProfile{SourceID: "a"},
		&profile.SourceProfile{SourceID: "b"},
		&profile.SourceProfile{SourceID: "c"},
	)}
	res, err := e.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// a: panicky + healthy, b: healthy only, c: panicky + healthy.
	if len(res.Incidents) != 5 {
		t.Errorf("Incidents = %d, want 5: %+v", len(res.Incidents), res.Incidents)
	}
	for _, inc := range res.Incidents {
		if inc.SourceID == "" {
			t.Errorf("incident without source id: %+v", inc)
		}
		if inc.FilesToReview == nil {
			t.Errorf("incident with nil FilesToReview: %+v", inc)
		}
	}
	// One panic plus three plain errors.
	if len(res.Errors) != 4 {
		t.Errorf("Errors = %+v, want 4", res.Errors)
	}
	if got := e.Metrics().DetectionErrors; got != 4 {
		t.Errorf("DetectionErrors = %d, want 4", got)
	}
}

func TestEngine_EnableDisable(t *testing.T) {
	e := NewDefaultEngine()
	for _, typ := range AllIncidentTypes {
		if err := e.SetDetectorEnabled(typ, false); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.SetDetectorEnabled(IncidentDuplicateOrFailed, true); err != nil {
		t.Fatal(err)
	}
	if err := e.SetDetectorEnabled("Nope", true); err == nil {
		t.Error("SetDetectorEnabled() expected error for unknown type")
	}

	res, err := e.Run(context.Background(), scenarioInput())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Incidents) != 1 || res.Incidents[0].Type != IncidentDuplicateOrFailed {
		t.Errorf("Incidents = %+v, want only the duplicate/failed incident", res.Incidents)
	}
}

func TestEngine_ConfigureDetector(t *testing.T) {
	e := NewDefaultEngine()
	if err := e.ConfigureDetector(IncidentStaleCoverage, json.RawMessage(`{"max_age_days": 1000}`)); err != nil {
		t.Fatal(err)
	}
	if err := e.ConfigureDetector(IncidentStaleCoverage, json.RawMessage(`{"max_age_days": -1}`)); err == nil {
		t.Error("ConfigureDetector() expected validation error")
	}
	if err := e.ConfigureDetector("Unknown", json.RawMessage(`{}`)); err == nil {
		t.Error("ConfigureDetector() expected error for unknown type")
	}

	res, err := e.Run(context.Background(), scenarioInput())
	if err != nil {
		t.Fatal(err)
	}
	for _, inc := range res.Incidents {
		if inc.Type == IncidentStaleCoverage {
			t.Errorf("stale coverage incident after reconfiguration: %+v", inc)
		}
	}
}

func TestEngine_RegisterReplaces(t *testing.T) {
	e := NewDefaultEngine()
	replacement := newMockDetector(IncidentMissingFiles, func(*Input) (*Incident, error) { return nil, nil })
	e.RegisterDetector(replacement)

	ds := e.Detectors()
	if len(ds) != len(AllIncidentTypes) {
		t.Fatalf("Detectors() = %d, want %d", len(ds), len(AllIncidentTypes))
	}
	if ds[2] != Detector(replacement) {
		t.Error("replacement should keep the registration slot")
	}
}

func TestSourceUniverse(t *testing.T) {
	snap := &telemetry.Snapshot{Records: []telemetry.FileRecord{{SourceID: "z"}, {SourceID: "a"}}}
	set := profile.NewSet(&profile.SourceProfile{SourceID: "m"}, &profile.SourceProfile{SourceID: "a"})

	got := SourceUniverse(snap, set)
	want := []string{"a", "m", "z"}
	if len(got) != len(want) {
		t.Fatalf("SourceUniverse() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SourceUniverse()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if got := SourceUniverse(nil, nil); len(got) != 0 {
		t.Errorf("SourceUniverse(nil, nil) = %v", got)
	}
}
