package http

import (
	"github.com/go-passwordless/internal/application/audit"
	"github.com/go-passwordless/internal/application/auth"
)

// Deps holds the application services the router exposes.
type Deps struct {
	EmailAuth auth.Controller
	// SMSAuth is nil when the SMS channel is disabled.
	SMSAuth auth.Controller
	// Audit is nil when the audit log is disabled.
	Audit audit.Service
}
