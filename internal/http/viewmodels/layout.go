package viewmodels

type LayoutData struct {
	Title       string
	CSRFToken   string
	UserEmail   string
	UserRole    string
	IsAdmin     bool
	AuthEnabled bool
	Toast       *ToastViewData
	ActivePath  string
	Breadcrumbs []Breadcrumb
	DataSources []DataSourceOption
}

type ToastViewData struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Breadcrumb is one header path segment. The last crumb has no Href.
type Breadcrumb struct {
	Label string
	Href  string
}

// DataSourceOption is an entry of the header data source selector.
type DataSourceOption struct {
	ID       string
	Name     string
	Status   string
	Selected bool
}

// Pager holds the numbered page links of a paginated list.
type Pager struct {
	Page        int
	PerPage     int
	TotalPages  int
	TotalCount  int
	ShowingFrom int
	ShowingTo   int
	PrevHref    string
	NextHref    string
	Links       []PageLink
}

type PageLink struct {
	Number  int
	Href    string
	Current bool
}
