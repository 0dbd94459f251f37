// Package sources imports all public IP resolver packages to trigger their init() registration.
package sources

import (
	_ "github.com/yuriy-kovalchuk/yk-ddns/internal/publicip/static"
	_ "github.com/yuriy-kovalchuk/yk-ddns/internal/publicip/whoami"
)
