package viewmodels

type DataSourceRow struct {
	ID           string
	Name         string
	Type         string
	Format       string
	Status       string
	LastError    string
	LastUpdated  string
	ServiceCount int
	Selected     bool
}

type DataSourcesViewData struct {
	Layout     LayoutData
	Sources    []DataSourceRow
	CanResync  bool
	HasSources bool
}
