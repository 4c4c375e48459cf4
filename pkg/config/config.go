// Package config loads the process configuration from the environment.
package config

import (
	"log"
	"os"
	"text/tabwriter"

	"github.com/kelseyhightower/envconfig"
)

const (
	prefix      = "smtpsink"
	tableFormat = `Smtpsink is configured via the environment. The following environment
variables can be used:

KEY	DEFAULT	REQUIRED	DESCRIPTION
{{range .}}{{usage_key .}}	{{usage_default .}}	{{usage_required .}}	{{usage_description .}}
{{end}}`
)

var (
	// Version of this build, set by main
	Version = ""

	// BuildDate for this build, set by main
	BuildDate = ""
)

// Root wraps all other configurations.
type Root struct {
	LogLevel string `required:"true" default:"info" desc:"debug, info, warn, or error"`
	SMTP     SMTP
	Web      Web
}

// SMTP contains the SMTP server configuration.
type SMTP struct {
	Addr            string `required:"true" default:"0.0.0.0:2500" desc:"SMTP server IP4 host:port"`
	Domain          string `required:"true" default:"smtpsink" desc:"HELO domain"`
	MaxRecipients   int    `required:"true" default:"200" desc:"Maximum RCPT TO per message"`
	MaxMessageBytes int64  `required:"true" default:"10240000" desc:"Maximum message size"`
	Debug           bool   `ignored:"true"`
}

// Web contains the HTTP server configuration.
type Web struct {
	Addr           string   `required:"true" default:"0.0.0.0:9000" desc:"Web server IP4 host:port"`
	MonitorHistory int      `required:"true" default:"30" desc:"Monitor remembered messages"`
	CORSOrigins    []string `default:"*" desc:"Allowed CORS origins"`
}

// Process loads and parses configuration from the environment.
func Process() (*Root, error) {
	c := &Root{}
	err := envconfig.Process(prefix, c)
	return c, err
}

// Usage prints out the envconfig usage to Stderr.
func Usage() {
	tabs := tabwriter.NewWriter(os.Stderr, 1, 0, 4, ' ', 0)
	if err := envconfig.Usagef(prefix, &Root{}, tabs, tableFormat); err != nil {
		log.Fatalf("Unable to parse env config: %v", err)
	}
	tabs.Flush()
}
