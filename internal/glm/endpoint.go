package glm

import (
	"fmt"
	"net/url"
	"strings"
)

// Regions reported on snapshots.
const (
	RegionGlobal = "global"
	RegionChina  = "china"
)

// ResolveEndpoint maps the configured base URL to the monitor root and the
// region. Any path on the base URL (/api/anthropic, /api/coding/paas/v4) is
// dropped: the monitor API lives at the host root. Hosts under bigmodel.cn
// are the China region, everything else is global.
func ResolveEndpoint(baseURL string) (root, region string, err error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", "", fmt.Errorf("parse base URL: %w", err)
	}
	if u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", "", fmt.Errorf("base URL %q must be an absolute http(s) URL", baseURL)
	}

	region = RegionGlobal
	if strings.Contains(strings.ToLower(u.Hostname()), "bigmodel.cn") {
		region = RegionChina
	}
	return u.Scheme + "://" + u.Host, region, nil
}
