package viewer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/open-sspm/open-cbom/internal/cbom"
	"github.com/open-sspm/open-cbom/internal/datasource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopBOM = `{
  "bomFormat": "CycloneDX",
  "specVersion": "1.6",
  "metadata": {"component": {"type": "application", "name": "shop"}},
  "services": [{"bom-ref": "svc-cart", "name": "cart"}, {"bom-ref": "svc-auth", "name": "auth"}],
  "components": [
    {"type": "library", "bom-ref": "lib-jose", "name": "jose", "version": "4.0.0", "purl": "pkg:npm/jose@4.0.0"},
    {"type": "cryptographic-asset", "bom-ref": "alg-es256", "name": "ECDSA-P256",
     "cryptoProperties": {"assetType": "algorithm"}}
  ],
  "dependencies": [
    {"ref": "svc-cart", "dependsOn": ["lib-jose"]},
    {"ref": "svc-auth", "dependsOn": ["lib-jose", "alg-es256"]}
  ]
}`

func testInventory(t *testing.T) *cbom.Inventory {
	t.Helper()
	bom, err := cbom.Parse([]byte(shopBOM))
	require.NoError(t, err)
	return cbom.Build([]cbom.Source{{Name: "shop.json", BOM: bom}})
}

func TestNewState(t *testing.T) {
	s := New()

	assert.Equal(t, ModeCBOM, s.SearchMode)
	assert.Equal(t, TabOverview, s.ActiveTab)
	assert.False(t, s.Loading)
	assert.False(t, s.ShowServiceDetails)
	assert.False(t, s.CBOMData.IsPresent())
	assert.False(t, s.CryptoMaterialsData.IsPresent())
	assert.False(t, s.SelectedApplication.IsPresent())
	assert.False(t, s.SelectedService.IsPresent())
	assert.False(t, s.SelectedNode.IsPresent())
	assert.False(t, s.ComponentsDrillDownData.IsPresent())
	assert.False(t, s.SelectedDataSource().IsPresent())
	assert.False(t, s.ActiveDataset().Present)
}

func TestLoadingLifecycle(t *testing.T) {
	s := New()
	s.BeginLoading("  jose ")
	assert.True(t, s.Loading)
	assert.Equal(t, "jose", s.LastSearchQuery)

	inv := testInventory(t)
	s.CompleteCBOMSearch(inv)
	assert.False(t, s.Loading)
	ds := s.ActiveDataset()
	require.True(t, ds.Present)
	assert.Same(t, inv, ds.CBOM)
	assert.Nil(t, ds.Materials)

	s.BeginLoading("x")
	s.FailLoading()
	assert.False(t, s.Loading)
	assert.Equal(t, "x", s.LastSearchQuery)
}

func TestActiveDatasetFollowsSearchMode(t *testing.T) {
	s := New()
	inv := testInventory(t)
	mats := cbom.BuildMaterials(nil, time.Now())
	s.CompleteCBOMSearch(inv)
	s.CompleteCryptoMaterialsSearch(mats)

	require.NoError(t, s.SetSearchMode(ModeCryptoMaterials))
	ds := s.ActiveDataset()
	assert.Equal(t, ModeCryptoMaterials, ds.Mode)
	assert.Same(t, mats, ds.Materials)
	assert.Nil(t, ds.CBOM)
	assert.Equal(t, TabCertificates, s.ActiveTab)

	require.NoError(t, s.SetSearchMode(ModeCBOM))
	ds = s.ActiveDataset()
	assert.Same(t, inv, ds.CBOM)
	assert.Nil(t, ds.Materials)

	assert.ErrorIs(t, s.SetSearchMode("graph"), ErrInvalidSearchMode)
}

func TestSelection(t *testing.T) {
	s := New()
	assert.ErrorIs(t, s.SelectApplication("shop"), ErrNoDataset)

	s.CompleteCBOMSearch(testInventory(t))

	require.NoError(t, s.SelectApplication("SHOP"))
	assert.Equal(t, Some("shop"), s.SelectedApplication)
	assert.Equal(t, Some(cbom.ApplicationNodeID("shop")), s.SelectedNode)

	assert.ErrorIs(t, s.SelectApplication("bank"), ErrUnknownSelection)
	assert.ErrorIs(t, s.SelectService("shop", "billing"), ErrUnknownSelection)
	assert.ErrorIs(t, s.ShowDetails(), ErrNoServiceSelected)

	require.NoError(t, s.SelectService("shop", "Auth"))
	assert.Equal(t, Some(cbom.ServiceRef{Application: "shop", Service: "auth"}), s.SelectedService)
	require.NoError(t, s.ShowDetails())
	assert.True(t, s.ShowServiceDetails)
	s.HideDetails()
	assert.False(t, s.ShowServiceDetails)

	require.NoError(t, s.SelectNode("lib:jose"))
	assert.ErrorIs(t, s.SelectNode("lib:openssl"), ErrUnknownSelection)

	require.NoError(t, s.ShowDetails())
	require.NoError(t, s.SetSearchMode(ModeCryptoMaterials))
	assert.False(t, s.SelectedApplication.IsPresent())
	assert.False(t, s.SelectedService.IsPresent())
	assert.False(t, s.SelectedNode.IsPresent())
	assert.False(t, s.ShowServiceDetails)
}

func TestCompleteSearchPrunesStaleSelections(t *testing.T) {
	s := New()
	inv := testInventory(t)
	s.CompleteCBOMSearch(inv)
	require.NoError(t, s.SelectService("shop", "cart"))
	require.NoError(t, s.ShowDetails())

	narrowed := cbom.Search(inv, "ecdsa")
	s.CompleteCBOMSearch(narrowed)
	assert.Equal(t, Some("shop"), s.SelectedApplication)
	assert.False(t, s.SelectedService.IsPresent())
	assert.False(t, s.ShowServiceDetails)

	s.CompleteCBOMSearch(cbom.Search(inv, "nothing"))
	assert.False(t, s.SelectedApplication.IsPresent())
}

func TestTabs(t *testing.T) {
	s := New()
	require.NoError(t, s.SetActiveTab(" Libraries "))
	assert.Equal(t, TabLibraries, s.ActiveTab)
	assert.ErrorIs(t, s.SetActiveTab(TabCertificates), ErrUnknownTab)
	assert.Equal(t, TabLibraries, s.ActiveTab)

	assert.Equal(t, TabOverview, Tabs(ModeCBOM)[0])
	tabs := Tabs(ModeCBOM)
	tabs[0] = "mutated"
	assert.Equal(t, TabOverview, Tabs(ModeCBOM)[0])
}

func TestDrillDown(t *testing.T) {
	s := New()
	assert.ErrorIs(t, s.SetDrillDown("jose", cbom.ComponentLibraries), ErrNoDataset)

	inv := testInventory(t)
	s.CompleteCBOMSearch(inv)
	require.NoError(t, s.SetDrillDown("jose", cbom.ComponentLibraries))
	dd, ok := s.ComponentsDrillDownData.Get()
	require.True(t, ok)
	assert.Equal(t, "jose", dd.Query)
	assert.Equal(t, cbom.ComponentLibraries, dd.ComponentType)
	assert.Equal(t, 2, dd.TotalServices)
	assert.Equal(t, 1, dd.TotalApplications)

	assert.ErrorIs(t, s.SetDrillDown("x", "algorithms"), cbom.ErrInvalidComponentType)

	s.ClearDrillDown()
	assert.False(t, s.ComponentsDrillDownData.IsPresent())
}

func TestDataSourceSelectionInvariant(t *testing.T) {
	s := New()
	a := datasource.Descriptor{ID: "a", Name: "A", ConnectionType: datasource.ConnectionSingle, Status: datasource.StatusActive}
	b := datasource.Descriptor{ID: "b", Name: "B", ConnectionType: datasource.ConnectionGitHub, Status: datasource.StatusProcessing}

	s.SetDataSources([]datasource.Descriptor{a, b})
	sel, ok := s.SelectedDataSource().Get()
	require.True(t, ok)
	assert.Equal(t, "a", sel.ID)

	require.NoError(t, s.SelectDataSource("b"))
	assert.ErrorIs(t, s.SelectDataSource("c"), ErrUnknownDataSource)
	sel, _ = s.SelectedDataSource().Get()
	assert.Equal(t, "b", sel.ID)
	id, ok := s.SelectedDataSourceID().Get()
	require.True(t, ok)
	assert.Equal(t, "b", id)

	b.Status = datasource.StatusActive
	s.SetDataSources([]datasource.Descriptor{b, a})
	sel, _ = s.SelectedDataSource().Get()
	assert.Equal(t, "b", sel.ID, "selection kept when still listed")
	assert.Equal(t, datasource.StatusActive, sel.Status)

	s.SetDataSources([]datasource.Descriptor{a})
	sel, _ = s.SelectedDataSource().Get()
	assert.Equal(t, "a", sel.ID, "falls back to first source")
	sel.Name = "changed"
	again, _ := s.SelectedDataSource().Get()
	assert.Equal(t, "A", again.Name, "returned descriptor is a copy")

	s.SetDataSources(nil)
	assert.False(t, s.SelectedDataSource().IsPresent())
	assert.False(t, s.SelectedDataSourceID().IsPresent())
	assert.Empty(t, s.DataSources())
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := New()
	s.SetDataSources([]datasource.Descriptor{{ID: "a"}, {ID: "b"}})
	require.NoError(t, s.SelectDataSource("b"))
	s.BeginLoading("jose")
	s.CompleteCBOMSearch(testInventory(t))
	require.NoError(t, s.SetActiveTab(TabGraph))
	require.NoError(t, s.SelectService("shop", "auth"))
	require.NoError(t, s.ShowDetails())
	require.NoError(t, s.SetDrillDown("jose", cbom.ComponentLibraries))

	raw, err := EncodeSnapshot(s.Snapshot())
	require.NoError(t, err)
	assert.NotContains(t, raw, "ECDSA", "datasets are not stored")

	snap, err := DecodeSnapshot(raw)
	require.NoError(t, err)
	restored := Restore(snap)

	assert.Equal(t, "jose", restored.LastSearchQuery)
	assert.Equal(t, TabGraph, restored.ActiveTab)
	assert.True(t, restored.ShowServiceDetails)
	assert.False(t, restored.CBOMData.IsPresent())
	assert.False(t, restored.ComponentsDrillDownData.IsPresent())

	restored.SetDataSources([]datasource.Descriptor{{ID: "a"}, {ID: "b"}})
	sel, _ := restored.SelectedDataSource().Get()
	assert.Equal(t, "b", sel.ID)

	restored.CompleteCBOMSearch(testInventory(t))
	assert.Equal(t, Some(cbom.ServiceRef{Application: "shop", Service: "auth"}), restored.SelectedService)
	dd, ok := restored.ComponentsDrillDownData.Get()
	require.True(t, ok)
	assert.Equal(t, "jose", dd.Query)
}

func TestDecodeSnapshotFallsBack(t *testing.T) {
	snap, err := DecodeSnapshot("")
	require.NoError(t, err)
	assert.Equal(t, ModeCBOM, snap.Mode)

	_, err = DecodeSnapshot("{")
	assert.Error(t, err)

	restored := Restore(Snapshot{Mode: "bogus", Tab: "bogus"})
	assert.Equal(t, ModeCBOM, restored.SearchMode)
	assert.Equal(t, TabOverview, restored.ActiveTab)
}

func TestStateJSON(t *testing.T) {
	s := New()
	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "cbom", got["searchMode"])
	assert.Nil(t, got["cbomData"])
	assert.Nil(t, got["selectedDataSource"])
	assert.Equal(t, []any{}, got["dataSources"])
	assert.Equal(t, false, got["loading"])
}

func TestOptional(t *testing.T) {
	o := None[int]()
	assert.False(t, o.IsPresent())
	assert.Equal(t, 7, o.OrElse(7))
	_, ok := o.Get()
	assert.False(t, ok)

	o = Some(3)
	v, ok := o.Get()
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	raw, err := json.Marshal(struct {
		A Optional[int] `json:"a"`
		B Optional[int] `json:"b"`
	}{A: Some(0), B: None[int]()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":0,"b":null}`, string(raw))

	var decoded struct {
		A Optional[string] `json:"a"`
		B Optional[string] `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"x","b":null}`), &decoded))
	assert.Equal(t, Some("x"), decoded.A)
	assert.False(t, decoded.B.IsPresent())
}
