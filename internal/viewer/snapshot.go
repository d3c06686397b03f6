package viewer

import (
	"encoding/json"
	"fmt"

	"github.com/open-sspm/open-cbom/internal/cbom"
)

// Snapshot is the part of State kept in the HTTP session between requests.
// Datasets are never included; they are rebuilt per request.
type Snapshot struct {
	Mode               SearchMode `json:"mode"`
	Query              string     `json:"q,omitempty"`
	Tab                string     `json:"tab,omitempty"`
	Application        string     `json:"app,omitempty"`
	ServiceApplication string     `json:"svcApp,omitempty"`
	Service            string     `json:"svc,omitempty"`
	Node               string     `json:"node,omitempty"`
	ShowDetails        bool       `json:"details,omitempty"`
	DrillDownQuery     string     `json:"ddq,omitempty"`
	DrillDownType      string     `json:"ddt,omitempty"`
	DataSourceID       string     `json:"ds,omitempty"`
}

func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Mode:        s.SearchMode,
		Query:       s.LastSearchQuery,
		Tab:         s.ActiveTab,
		Application: s.SelectedApplication.OrElse(""),
		Node:        s.SelectedNode.OrElse(""),
		ShowDetails: s.ShowServiceDetails,
	}
	if ref, ok := s.SelectedService.Get(); ok {
		snap.ServiceApplication = ref.Application
		snap.Service = ref.Service
	}
	if req, ok := s.drillDown.Get(); ok {
		snap.DrillDownQuery = req.Query
		snap.DrillDownType = string(req.ComponentType)
	}
	if id, ok := s.selectedDataSource.Get(); ok {
		snap.DataSourceID = id
	}
	return snap
}

// Restore returns a state rebuilt from snap. Values that no longer parse fall
// back to defaults; selections are checked once a dataset is loaded.
func Restore(snap Snapshot) *State {
	s := New()
	if mode, err := ParseSearchMode(string(snap.Mode)); err == nil {
		_ = s.SetSearchMode(mode)
	}
	if snap.Tab != "" {
		_ = s.SetActiveTab(snap.Tab)
	}
	s.LastSearchQuery = snap.Query
	if snap.Application != "" {
		s.SelectedApplication = Some(snap.Application)
	}
	if snap.Service != "" && snap.ServiceApplication != "" {
		s.SelectedService = Some(cbom.ServiceRef{Application: snap.ServiceApplication, Service: snap.Service})
		s.ShowServiceDetails = snap.ShowDetails
	}
	if snap.Node != "" {
		s.SelectedNode = Some(snap.Node)
	}
	if ct, err := cbom.ParseComponentType(snap.DrillDownType); err == nil {
		s.drillDown = Some(drillDownRequest{Query: snap.DrillDownQuery, ComponentType: ct})
	}
	if snap.DataSourceID != "" {
		s.selectedDataSource = Some(snap.DataSourceID)
	}
	return s
}

// EncodeSnapshot and DecodeSnapshot store snapshots as session strings.
func EncodeSnapshot(snap Snapshot) (string, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode viewer snapshot: %w", err)
	}
	return string(raw), nil
}

func DecodeSnapshot(raw string) (Snapshot, error) {
	var snap Snapshot
	if raw == "" {
		return Snapshot{Mode: ModeCBOM}, nil
	}
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return Snapshot{Mode: ModeCBOM}, fmt.Errorf("decode viewer snapshot: %w", err)
	}
	return snap, nil
}
