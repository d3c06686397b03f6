package views

import (
	"net/url"
	"strconv"
	"strings"
	"unicode"
)

func FormatInt(v int) string {
	return strconv.Itoa(v)
}

func QueryEscape(v string) string {
	return url.QueryEscape(v)
}

func ApplicationURL(name, service string) string {
	href := "/applications/" + url.PathEscape(strings.TrimSpace(name))
	if service = strings.TrimSpace(service); service != "" {
		href += "?service=" + url.QueryEscape(service)
	}
	return href
}

func DrillDownURL(query, componentType string) string {
	values := url.Values{}
	values.Set("type", componentType)
	if query = strings.TrimSpace(query); query != "" {
		values.Set("q", query)
	}
	return "/drilldown?" + values.Encode()
}

func DataSourceStatusBadgeClass(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active":
		return "badge badge-success"
	case "processing":
		return "badge badge-warning"
	case "error":
		return "badge badge-danger"
	default:
		return "badge badge-outline"
	}
}

func QuantumBadgeClass(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "vulnerable":
		return "badge badge-danger"
	case "weakened":
		return "badge badge-warning"
	case "safe":
		return "badge badge-success"
	default:
		return "badge badge-outline"
	}
}

func HumanizeQuantum(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "vulnerable":
		return "Vulnerable"
	case "weakened":
		return "Weakened"
	case "safe":
		return "Safe"
	default:
		return "Unknown"
	}
}

func ExpiryBadgeClass(state string) string {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "expired":
		return "badge badge-danger"
	case "expiring":
		return "badge badge-warning"
	case "valid":
		return "badge badge-success"
	default:
		return "badge badge-outline"
	}
}

func CardClass(tone string) string {
	if tone = strings.TrimSpace(tone); tone != "" {
		return "card " + tone
	}
	return "card"
}

func ToastClass(category string) string {
	switch category {
	case "success", "error", "warning":
		return "toast toast-" + category
	default:
		return "toast"
	}
}

// JoinOrDash joins values with ", " and renders an empty list as a dash.
func JoinOrDash(values []string) string {
	if len(values) == 0 {
		return "—"
	}
	return strings.Join(values, ", ")
}

func OrDash(value string) string {
	if value = strings.TrimSpace(value); value == "" {
		return "—"
	}
	return value
}

func IsActivePath(activePath, target string) bool {
	activePath = strings.TrimSpace(activePath)
	target = strings.TrimSpace(target)
	if target == "/" {
		return activePath == "/" || strings.HasPrefix(activePath, "/applications/") || activePath == "/drilldown"
	}
	return strings.HasPrefix(activePath, target)
}

func AriaCurrent(activePath, target string) string {
	if IsActivePath(activePath, target) {
		return "page"
	}
	return ""
}

func HumanizeAuthUserRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "admin":
		return "Admin"
	case "viewer":
		return "Viewer"
	default:
		return OrDash(role)
	}
}

func Humanize(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "—"
	}
	parts := strings.FieldsFunc(strings.ToLower(value), func(r rune) bool {
		return r == '_' || r == ':' || r == '-'
	})
	for idx, part := range parts {
		runes := []rune(part)
		if len(runes) == 0 {
			continue
		}
		runes[0] = unicode.ToUpper(runes[0])
		parts[idx] = string(runes)
	}
	if len(parts) == 0 {
		return value
	}
	return strings.Join(parts, " ")
}
