// Package viewer holds the dashboard's per-session viewer state: search mode,
// loaded datasets, selection, drill-down context and data sources.
package viewer

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/open-sspm/open-cbom/internal/cbom"
	"github.com/open-sspm/open-cbom/internal/datasource"
)

type SearchMode string

const (
	ModeCBOM            SearchMode = "cbom"
	ModeCryptoMaterials SearchMode = "crypto-materials"
)

func ParseSearchMode(raw string) (SearchMode, error) {
	switch SearchMode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeCBOM:
		return ModeCBOM, nil
	case ModeCryptoMaterials:
		return ModeCryptoMaterials, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSearchMode, raw)
	}
}

const (
	TabOverview     = "overview"
	TabApplications = "applications"
	TabLibraries    = "libraries"
	TabAlgorithms   = "algorithms"
	TabProtocols    = "protocols"
	TabLanguages    = "languages"
	TabGraph        = "graph"
	TabCertificates = "certificates"
	TabMaterials    = "materials"
)

var modeTabs = map[SearchMode][]string{
	ModeCBOM:            {TabOverview, TabApplications, TabLibraries, TabAlgorithms, TabProtocols, TabLanguages, TabGraph},
	ModeCryptoMaterials: {TabCertificates, TabMaterials},
}

// Tabs lists the tabs available in mode, the first being the default.
func Tabs(mode SearchMode) []string {
	return slices.Clone(modeTabs[mode])
}

var (
	ErrInvalidSearchMode = errors.New("invalid search mode")
	ErrUnknownTab        = errors.New("unknown tab")
	ErrUnknownDataSource = errors.New("unknown data source")
	ErrUnknownSelection  = errors.New("selection is not in the loaded dataset")
	ErrNoDataset         = errors.New("no dataset loaded for the current search mode")
	ErrNoServiceSelected = errors.New("no service selected")
)

// Dataset is the dataset authoritative for a search mode. Exactly one of
// CBOM and Materials is set when Present is true.
type Dataset struct {
	Mode      SearchMode
	CBOM      *cbom.Inventory
	Materials *cbom.MaterialsInventory
	Present   bool
}

type drillDownRequest struct {
	Query         string
	ComponentType cbom.ComponentType
}

// State is one session's viewer state. Data sources are kept private so the
// selected source is always one of them.
type State struct {
	SearchMode              SearchMode
	CBOMData                Optional[*cbom.Inventory]
	CryptoMaterialsData     Optional[*cbom.MaterialsInventory]
	SelectedApplication     Optional[string]
	SelectedService         Optional[cbom.ServiceRef]
	SelectedNode            Optional[string]
	Loading                 bool
	ShowServiceDetails      bool
	ActiveTab               string
	ComponentsDrillDownData Optional[cbom.DrillDown]
	LastSearchQuery         string

	drillDown          Optional[drillDownRequest]
	dataSources        []datasource.Descriptor
	selectedDataSource Optional[string]
}

// New returns the initial state: every optional field absent, not loading,
// cbom mode on the overview tab.
func New() *State {
	return &State{
		SearchMode: ModeCBOM,
		ActiveTab:  TabOverview,
	}
}

// SetSearchMode switches mode. Selections, drill-down and the detail panel
// belong to one mode's dataset and are cleared.
func (s *State) SetSearchMode(mode SearchMode) error {
	if _, ok := modeTabs[mode]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidSearchMode, mode)
	}
	if s.SearchMode == mode {
		return nil
	}
	s.SearchMode = mode
	s.ActiveTab = modeTabs[mode][0]
	s.ClearSelection()
	s.ClearDrillDown()
	return nil
}

// BeginLoading records query as the last search and marks a load pending.
func (s *State) BeginLoading(query string) {
	s.LastSearchQuery = strings.TrimSpace(query)
	s.Loading = true
}

func (s *State) FailLoading() {
	s.Loading = false
}

// CompleteCBOMSearch stores inv, drops selections it no longer contains and
// recomputes a pending drill-down against it.
func (s *State) CompleteCBOMSearch(inv *cbom.Inventory) {
	s.Loading = false
	if inv == nil {
		s.CBOMData = None[*cbom.Inventory]()
		return
	}
	s.CBOMData = Some(inv)
	if s.SearchMode != ModeCBOM {
		return
	}
	s.pruneSelection(inv)
	if req, ok := s.drillDown.Get(); ok {
		if dd, err := cbom.BuildDrillDown(inv, req.Query, req.ComponentType); err == nil {
			s.ComponentsDrillDownData = Some(dd)
		} else {
			s.ClearDrillDown()
		}
	}
}

func (s *State) CompleteCryptoMaterialsSearch(m *cbom.MaterialsInventory) {
	s.Loading = false
	if m == nil {
		s.CryptoMaterialsData = None[*cbom.MaterialsInventory]()
		return
	}
	s.CryptoMaterialsData = Some(m)
}

func (s *State) pruneSelection(inv *cbom.Inventory) {
	if name, ok := s.SelectedApplication.Get(); ok {
		app, found := inv.Application(name)
		if !found {
			s.ClearSelection()
			return
		}
		s.SelectedApplication = Some(app.Name)
	}
	if ref, ok := s.SelectedService.Get(); ok {
		app, found := inv.Application(ref.Application)
		if !found {
			s.SelectedService = None[cbom.ServiceRef]()
			s.ShowServiceDetails = false
		} else if svc, found := app.Service(ref.Service); !found {
			s.SelectedService = None[cbom.ServiceRef]()
			s.ShowServiceDetails = false
		} else {
			s.SelectedService = Some(cbom.ServiceRef{Application: app.Name, Service: svc.Name})
		}
	}
	if id, ok := s.SelectedNode.Get(); ok && !cbom.BuildGraph(inv).HasNode(id) {
		s.SelectedNode = None[string]()
	}
}

// ActiveDataset returns the dataset for the current search mode only.
func (s *State) ActiveDataset() Dataset {
	switch s.SearchMode {
	case ModeCryptoMaterials:
		m, ok := s.CryptoMaterialsData.Get()
		return Dataset{Mode: s.SearchMode, Materials: m, Present: ok && m != nil}
	default:
		inv, ok := s.CBOMData.Get()
		return Dataset{Mode: ModeCBOM, CBOM: inv, Present: ok && inv != nil}
	}
}

func (s *State) activeInventory() (*cbom.Inventory, error) {
	ds := s.ActiveDataset()
	if !ds.Present || ds.CBOM == nil {
		return nil, ErrNoDataset
	}
	return ds.CBOM, nil
}

// SelectApplication selects an application of the loaded CBOM dataset.
func (s *State) SelectApplication(name string) error {
	inv, err := s.activeInventory()
	if err != nil {
		return err
	}
	app, ok := inv.Application(name)
	if !ok {
		return fmt.Errorf("%w: application %q", ErrUnknownSelection, name)
	}
	s.SelectedApplication = Some(app.Name)
	s.SelectedService = None[cbom.ServiceRef]()
	s.SelectedNode = Some(cbom.ApplicationNodeID(app.Name))
	s.ShowServiceDetails = false
	return nil
}

// SelectService selects a service and its application.
func (s *State) SelectService(application, service string) error {
	inv, err := s.activeInventory()
	if err != nil {
		return err
	}
	app, ok := inv.Application(application)
	if !ok {
		return fmt.Errorf("%w: application %q", ErrUnknownSelection, application)
	}
	svc, ok := app.Service(service)
	if !ok {
		return fmt.Errorf("%w: service %q of %q", ErrUnknownSelection, service, app.Name)
	}
	s.SelectedApplication = Some(app.Name)
	s.SelectedService = Some(cbom.ServiceRef{Application: app.Name, Service: svc.Name})
	s.SelectedNode = Some(cbom.ServiceNodeID(app.Name, svc.Name))
	return nil
}

// SelectNode selects a graph node of the loaded CBOM dataset.
func (s *State) SelectNode(id string) error {
	inv, err := s.activeInventory()
	if err != nil {
		return err
	}
	if !cbom.BuildGraph(inv).HasNode(id) {
		return fmt.Errorf("%w: node %q", ErrUnknownSelection, id)
	}
	s.SelectedNode = Some(id)
	return nil
}

func (s *State) ClearSelection() {
	s.SelectedApplication = None[string]()
	s.SelectedService = None[cbom.ServiceRef]()
	s.SelectedNode = None[string]()
	s.ShowServiceDetails = false
}

// ShowDetails opens the detail panel for the selected service.
func (s *State) ShowDetails() error {
	if !s.SelectedService.IsPresent() {
		return ErrNoServiceSelected
	}
	s.ShowServiceDetails = true
	return nil
}

func (s *State) HideDetails() {
	s.ShowServiceDetails = false
}

func (s *State) SetActiveTab(tab string) error {
	tab = strings.ToLower(strings.TrimSpace(tab))
	if !slices.Contains(modeTabs[s.SearchMode], tab) {
		return fmt.Errorf("%w: %q in %s mode", ErrUnknownTab, tab, s.SearchMode)
	}
	s.ActiveTab = tab
	return nil
}

// SetDrillDown narrows the loaded CBOM dataset to one component type.
func (s *State) SetDrillDown(query string, componentType cbom.ComponentType) error {
	inv, err := s.activeInventory()
	if err != nil {
		return err
	}
	dd, err := cbom.BuildDrillDown(inv, query, componentType)
	if err != nil {
		return err
	}
	s.drillDown = Some(drillDownRequest{Query: dd.Query, ComponentType: componentType})
	s.ComponentsDrillDownData = Some(dd)
	return nil
}

func (s *State) ClearDrillDown() {
	s.drillDown = None[drillDownRequest]()
	s.ComponentsDrillDownData = None[cbom.DrillDown]()
}

// SetDataSources replaces the data source list. The current selection is kept
// when still listed, otherwise the first source is selected.
func (s *State) SetDataSources(sources []datasource.Descriptor) {
	s.dataSources = slices.Clone(sources)
	if id, ok := s.selectedDataSource.Get(); ok && s.dataSourceIndex(id) >= 0 {
		return
	}
	if len(s.dataSources) == 0 {
		s.selectedDataSource = None[string]()
		return
	}
	s.selectedDataSource = Some(s.dataSources[0].ID)
}

func (s *State) SelectDataSource(id string) error {
	if s.dataSourceIndex(id) < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownDataSource, id)
	}
	s.selectedDataSource = Some(id)
	return nil
}

func (s *State) DataSources() []datasource.Descriptor {
	return slices.Clone(s.dataSources)
}

// SelectedDataSourceID returns the ID of the selected member of DataSources.
// The selection is held by ID, so it always refers to an entry of the
// current list.
func (s *State) SelectedDataSourceID() Optional[string] {
	if id, ok := s.selectedDataSource.Get(); ok && s.dataSourceIndex(id) >= 0 {
		return Some(id)
	}
	return None[string]()
}

// SelectedDataSource returns a copy of the selected member of DataSources
// as it stands now. Later SetDataSources calls are not reflected in it.
func (s *State) SelectedDataSource() Optional[datasource.Descriptor] {
	id, ok := s.selectedDataSource.Get()
	if !ok {
		return None[datasource.Descriptor]()
	}
	i := s.dataSourceIndex(id)
	if i < 0 {
		return None[datasource.Descriptor]()
	}
	return Some(s.dataSources[i])
}

func (s *State) dataSourceIndex(id string) int {
	return slices.IndexFunc(s.dataSources, func(d datasource.Descriptor) bool { return d.ID == id })
}

type stateJSON struct {
	SearchMode              SearchMode                         `json:"searchMode"`
	CBOMData                Optional[*cbom.Inventory]          `json:"cbomData"`
	CryptoMaterialsData     Optional[*cbom.MaterialsInventory] `json:"cryptoMaterialsData"`
	SelectedApplication     Optional[string]                   `json:"selectedApplication"`
	SelectedService         Optional[cbom.ServiceRef]          `json:"selectedService"`
	SelectedNode            Optional[string]                   `json:"selectedNode"`
	Loading                 bool                               `json:"loading"`
	ShowServiceDetails      bool                               `json:"showServiceDetails"`
	ActiveTab               string                             `json:"activeTab"`
	ComponentsDrillDownData Optional[cbom.DrillDown]           `json:"componentsDrillDownData"`
	LastSearchQuery         string                             `json:"lastSearchQuery"`
	DataSources             []datasource.Descriptor            `json:"dataSources"`
	SelectedDataSource      Optional[datasource.Descriptor]    `json:"selectedDataSource"`
}

func (s *State) MarshalJSON() ([]byte, error) {
	sources := s.DataSources()
	if sources == nil {
		sources = []datasource.Descriptor{}
	}
	return json.Marshal(stateJSON{
		SearchMode:              s.SearchMode,
		CBOMData:                s.CBOMData,
		CryptoMaterialsData:     s.CryptoMaterialsData,
		SelectedApplication:     s.SelectedApplication,
		SelectedService:         s.SelectedService,
		SelectedNode:            s.SelectedNode,
		Loading:                 s.Loading,
		ShowServiceDetails:      s.ShowServiceDetails,
		ActiveTab:               s.ActiveTab,
		ComponentsDrillDownData: s.ComponentsDrillDownData,
		LastSearchQuery:         s.LastSearchQuery,
		DataSources:             sources,
		SelectedDataSource:      s.SelectedDataSource(),
	})
}
