package httpapi

import (
	"path"
	"strings"
)

// mount is where the page lives: the route prefix the engine serves under
// and the <base href> the page resolves its assets and API calls against.
type mount struct {
	prefix string
	href   string
}

func newMount(baseURL, basePath string) mount {
	prefix := cleanPrefix(basePath)
	href := strings.TrimRight(strings.TrimSpace(baseURL), "/") + prefix
	if href != "" {
		href += "/"
	}
	return mount{prefix: prefix, href: href}
}

// cleanPrefix turns a configured base path into "" or "/a/b".
func cleanPrefix(value string) string {
	value = strings.Trim(strings.TrimSpace(value), "/")
	if value == "" {
		return ""
	}
	if cleaned := path.Clean("/" + value); cleaned != "/" {
		return cleaned
	}
	return ""
}
