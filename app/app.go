package app

import (
	"github.com/go-chi/oauth"

	"github.com/mbolis/quick-feedback/config"
	"github.com/mbolis/quick-feedback/feedback"
)

// App bundles what the controllers need. The feedback core is reached
// only through the embedded service.
type App struct {
	*feedback.Service
	*oauth.BearerServer
	config.Config
}
