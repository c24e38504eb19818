package switchover

import (
	"fmt"
	"strings"

	errors "github.com/veloserve/veloctl/internal/errors"
)

// State is the controller's view of which engine owns the shared ports.
type State string

const (
	StateVeloServeActive State = "veloserve_active"
	StateApacheActive    State = "apache_active"
	StateTransitioning   State = "transitioning"
	StateUnknown         State = "unknown"
)

// Service identifies one of the two serving engines.
type Service string

const (
	ServiceVeloServe Service = "veloserve"
	ServiceApache    Service = "apache"
)

// ParseService resolves a user-supplied service name. Apache answers to its
// unit names as well.
func ParseService(name string) (Service, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "veloserve":
		return ServiceVeloServe, nil
	case "apache", "httpd", "apache2":
		return ServiceApache, nil
	default:
		return "", errors.Validation(fmt.Sprintf("unknown service %q (want veloserve or apache)", name))
	}
}

// Other returns the competing service.
func (s Service) Other() Service {
	if s == ServiceVeloServe {
		return ServiceApache
	}
	return ServiceVeloServe
}

// State returns the stable state in which s owns the ports.
func (s Service) State() State {
	if s == ServiceVeloServe {
		return StateVeloServeActive
	}
	return StateApacheActive
}

// serviceOfProcess maps a listening process name to its engine, or ""
// for a foreign listener.
func serviceOfProcess(name string) Service {
	switch strings.ToLower(name) {
	case "veloserve":
		return ServiceVeloServe
	case "httpd", "apache2", "apache":
		return ServiceApache
	default:
		return ""
	}
}
