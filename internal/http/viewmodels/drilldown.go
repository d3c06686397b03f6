package viewmodels

type ServiceLink struct {
	Label string
	Href  string
}

type DrillDownRow struct {
	Name         string
	Language     string
	Versions     []string
	Applications []string
	Services     []ServiceLink
}

type DrillDownViewData struct {
	Layout            LayoutData
	Query             string
	ComponentType     string
	Rows              []DrillDownRow
	TotalApplications int
	TotalServices     int
	Pager             Pager
	HasDataset        bool
	BackHref          string
}
