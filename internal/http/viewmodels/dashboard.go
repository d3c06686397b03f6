package viewmodels

import "github.com/open-sspm/open-cbom/internal/cbom"

// SearchBarData drives the search form and its mode toggle.
type SearchBarData struct {
	Action          string
	Mode            string
	Query           string
	Tab             string
	Language        string
	Quantum         string
	PerPage         int
	CBOMHref        string
	MaterialsHref   string
	ResetHref       string
	LanguageOptions []FilterOption
	QuantumOptions  []FilterOption
}

type FilterOption struct {
	Value    string
	Label    string
	Count    int
	Selected bool
}

type TabLink struct {
	Key    string
	Label  string
	Href   string
	Active bool
}

type SummaryCard struct {
	Label string
	Value int
	Tone  string
}

type ApplicationRow struct {
	Name       string
	Version    string
	Href       string
	Services   int
	Languages  []string
	Vulnerable int
	Selected   bool
}

type LibraryRow struct {
	cbom.LibraryUsage
	DrillDownHref string
}

type LanguageRow struct {
	cbom.LanguageUsage
	DrillDownHref string
}

type GraphNodeRow struct {
	ID       string
	Kind     string
	Label    string
	Risk     string
	Href     string
	Selected bool
}

type GraphData struct {
	NodeCount    int
	EdgeCount    int
	SelectedNode string
	Nodes        []GraphNodeRow
	JSONHref     string
}

// DashboardViewData renders both search modes; only the slices of the
// active tab are filled.
type DashboardViewData struct {
	Layout        LayoutData
	Search        SearchBarData
	Tabs          []TabLink
	ActiveTab     string
	HasDataset    bool
	EmptyStateMsg string
	Cards         []SummaryCard
	QuantumMix    []FilterOption
	Applications  []ApplicationRow
	Libraries     []LibraryRow
	Algorithms    []cbom.AlgorithmUsage
	Protocols     []cbom.ProtocolUsage
	Languages     []LanguageRow
	Graph         GraphData
	Certificates  []cbom.Certificate
	Materials     []cbom.Material
	Pager         Pager
	DrillDownHref string
}
