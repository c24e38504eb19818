package registry

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/veloserve/veloctl/internal/logger"
)

const sampleRegistry = `# VeloServe main configuration
[server]
listen = 80
keepalive = true

[[virtualhost]]
domain = "example.com"
root = "/home/alice/public_html"
platform = "wordpress"
index = ["index.php", "index.html"]

[virtualhost.cache]
enabled = true
ttl = 300

[[virtualhost]]
domain = "shop.example.net"
root = "/home/bob/public_html"
ssl_certificate = "/etc/ssl/shop.crt"
ssl_certificate_key = "/etc/ssl/shop.key"
error_pages = { 404 = "/404.html" }
`

func TestParse_Records(t *testing.T) {
	reg := Parse([]byte(sampleRegistry), &logger.NilLogger{})

	records := reg.Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if reg.MalformedBlocks() != 0 {
		t.Errorf("expected no malformed blocks, got %d", reg.MalformedBlocks())
	}

	first := records[0]
	if first.Domain != "example.com" {
		t.Errorf("expected domain example.com, got %s", first.Domain)
	}
	if first.Root != "/home/alice/public_html" {
		t.Errorf("expected alice root, got %s", first.Root)
	}
	if first.Platform != "wordpress" {
		t.Errorf("expected wordpress platform, got %s", first.Platform)
	}
	if first.HasSSL() {
		t.Error("first record should not have SSL")
	}

	second := records[1]
	if second.Domain != "shop.example.net" {
		t.Errorf("expected domain shop.example.net, got %s", second.Domain)
	}
	if second.SSLCertificate != "/etc/ssl/shop.crt" {
		t.Errorf("expected shop cert, got %s", second.SSLCertificate)
	}
	if second.SSLCertificateKey != "/etc/ssl/shop.key" {
		t.Errorf("expected shop key, got %s", second.SSLCertificateKey)
	}
	if !second.HasSSL() {
		t.Error("second record should have SSL")
	}
}

func TestParse_RoundTripIdentity(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "full registry",
			input: sampleRegistry,
		},
		{
			name:  "empty",
			input: "",
		},
		{
			name:  "preamble only",
			input: "[server]\nlisten = 80\n",
		},
		{
			name:  "no trailing newline",
			input: "[[virtualhost]]\ndomain = \"example.com\"\nroot = \"/srv/www\"",
		},
		{
			name:  "malformed block keeps its bytes",
			input: "[[virtualhost]]\ndomain = \"a.com\"\n\n[[virtualhost]]\ndomain =\n\n[[virtualhost]]\ndomain = \"c.com\"\n",
		},
		{
			name:  "comments and blank lines",
			input: "# header\n\n[[virtualhost]]\n# site comment\ndomain = \"a.com\"  # inline\n\nroot = \"/srv/a\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := Parse([]byte(tt.input), &logger.NilLogger{})
			got := string(reg.Serialize())
			if diff := cmp.Diff(tt.input, got); diff != "" {
				t.Errorf("serialize mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_MalformedBlockSkipped(t *testing.T) {
	input := "[[virtualhost]]\n" +
		"domain = \"good.example.com\"\n" +
		"root = \"/home/alice/public_html\"\n" +
		"\n" +
		"[[virtualhost]]\n" +
		"domain = \n" + // invalid TOML
		"root = \"/home/broken/public_html\"\n" +
		"\n" +
		"[[virtualhost]]\n" +
		"domain = \"also-good.example.com\"\n" +
		"root = \"/home/bob/public_html\"\n"

	reg := Parse([]byte(input), &logger.NilLogger{})

	records := reg.Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 records around the malformed block, got %d", len(records))
	}
	if records[0].Domain != "good.example.com" {
		t.Errorf("expected first record good.example.com, got %s", records[0].Domain)
	}
	if records[1].Domain != "also-good.example.com" {
		t.Errorf("expected second record also-good.example.com, got %s", records[1].Domain)
	}
	if reg.MalformedBlocks() != 1 {
		t.Errorf("expected 1 malformed block, got %d", reg.MalformedBlocks())
	}

	// The broken block is demoted, not dropped.
	if string(reg.Serialize()) != input {
		t.Error("malformed block bytes should survive serialization")
	}
}

func TestParse_MissingDomainSkipped(t *testing.T) {
	input := "[[virtualhost]]\nroot = \"/srv/www\"\n"

	reg := Parse([]byte(input), &logger.NilLogger{})

	if len(reg.Records()) != 0 {
		t.Errorf("expected no records, got %d", len(reg.Records()))
	}
	if reg.MalformedBlocks() != 1 {
		t.Errorf("expected 1 malformed block, got %d", reg.MalformedBlocks())
	}
}

func TestParse_DuplicateDomainFirstWins(t *testing.T) {
	input := "[[virtualhost]]\n" +
		"domain = \"example.com\"\n" +
		"root = \"/home/first/public_html\"\n" +
		"\n" +
		"[[virtualhost]]\n" +
		"domain = \"example.com\"\n" +
		"root = \"/home/second/public_html\"\n"

	reg := Parse([]byte(input), &logger.NilLogger{})

	records := reg.Records()
	if len(records) != 1 {
		t.Fatalf("expected 1 record for duplicated domain, got %d", len(records))
	}
	if records[0].Root != "/home/first/public_html" {
		t.Errorf("first block should win, got root %s", records[0].Root)
	}
	if reg.MalformedBlocks() != 1 {
		t.Errorf("duplicate should be counted, got %d", reg.MalformedBlocks())
	}

	if string(reg.Serialize()) != input {
		t.Error("duplicate block bytes should survive serialization")
	}
}

func TestParse_NilInput(t *testing.T) {
	reg := Parse(nil, &logger.NilLogger{})

	if len(reg.Records()) != 0 {
		t.Errorf("expected no records, got %d", len(reg.Records()))
	}
	if len(reg.Serialize()) != 0 {
		t.Error("expected empty serialization")
	}
}
