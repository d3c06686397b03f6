package viewmodels

import "github.com/open-sspm/open-cbom/internal/cbom"

type ServiceRow struct {
	Name       string
	Language   string
	Href       string
	Libraries  int
	Algorithms int
	Protocols  int
	Vulnerable int
	Selected   bool
}

type ServiceDetail struct {
	Service   cbom.Service
	CloseHref string
}

type ApplicationViewData struct {
	Layout   LayoutData
	Name     string
	Version  string
	Sources  []string
	Services []ServiceRow
	Detail   *ServiceDetail
	BackHref string
}
