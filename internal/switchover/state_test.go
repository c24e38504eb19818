package switchover

import (
	"testing"

	errors "github.com/veloserve/veloctl/internal/errors"
)

func TestParseService(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Service
		wantErr bool
	}{
		{name: "veloserve", input: "veloserve", want: ServiceVeloServe},
		{name: "mixed case", input: "VeloServe", want: ServiceVeloServe},
		{name: "apache", input: "apache", want: ServiceApache},
		{name: "httpd unit name", input: "httpd", want: ServiceApache},
		{name: "apache2 unit name", input: "apache2", want: ServiceApache},
		{name: "surrounding whitespace", input: "  httpd ", want: ServiceApache},
		{name: "unknown service", input: "nginx", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseService(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseService(%q) expected error, got %q", tt.input, got)
				}
				if errors.Code(err) != errors.ErrCodeValidation {
					t.Errorf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseService(%q) returned error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseService(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestServiceOther(t *testing.T) {
	if got := ServiceVeloServe.Other(); got != ServiceApache {
		t.Errorf("veloserve competitor = %q, want apache", got)
	}
	if got := ServiceApache.Other(); got != ServiceVeloServe {
		t.Errorf("apache competitor = %q, want veloserve", got)
	}
}

func TestServiceState(t *testing.T) {
	if got := ServiceVeloServe.State(); got != StateVeloServeActive {
		t.Errorf("veloserve state = %q, want %q", got, StateVeloServeActive)
	}
	if got := ServiceApache.State(); got != StateApacheActive {
		t.Errorf("apache state = %q, want %q", got, StateApacheActive)
	}
}

func TestServiceOfProcess(t *testing.T) {
	tests := []struct {
		process string
		want    Service
	}{
		{"veloserve", ServiceVeloServe},
		{"httpd", ServiceApache},
		{"apache2", ServiceApache},
		{"Apache", ServiceApache},
		{"nginx", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := serviceOfProcess(tt.process); got != tt.want {
			t.Errorf("serviceOfProcess(%q) = %q, want %q", tt.process, got, tt.want)
		}
	}
}
