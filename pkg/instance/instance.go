package instance

import "github.com/nhannt26/e-commerce-website-v3/pkg/env"

// ID identifies this process in logs. STOREFRONT_INSTANCE_ID wins, then the
// platform dyno name, then the service kind.
func ID(kind string) string {
	if kind == "" {
		kind = "local"
	}
	return env.Get("STOREFRONT_INSTANCE_ID", env.Get("DYNO", kind))
}
