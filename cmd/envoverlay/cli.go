package main

import (
	"github.com/alecthomas/kingpin/v2"

	"github.com/eugenenazirov/envoverlay/internal/config"
)

// cli holds the parsed command line. Flags that must distinguish "unset"
// from their zero value are tracked with IsSetByUser.
type cli struct {
	app   *kingpin.Application
	apply *kingpin.CmdClause
	serve *kingpin.CmdClause

	settingsFile    *string
	sources         *[]string
	rules           *[]string
	format          *string
	logLevel        *string
	nullForUnset    *bool
	nullSet         bool
	requireExisting *bool
	requireSet      bool

	output *string

	port           *string
	rateLimitRPS   *float64
	rpsSet         bool
	rateLimitBurst *int
	burstSet       bool
}

func newCLI() *cli {
	c := &cli{
		app: kingpin.New("envoverlay", "Overlays environment variables onto YAML, JSON or TOML configuration documents"),
	}

	c.settingsFile = c.app.Flag("settings", "Path to envoverlay's YAML settings file").Short('s').String()
	c.sources = c.app.Flag("config", "Configuration document to load; repeat to merge several in order").Short('c').Strings()
	c.rules = c.app.Flag("rule", "Overlay rule NAME=path.to.key; repeatable").Short('r').Strings()
	c.format = c.app.Flag("format", "Output format (yaml, json, toml)").String()
	c.logLevel = c.app.Flag("log-level", "Log level (debug, info, warn, error)").String()
	c.nullForUnset = c.app.Flag("null-for-unset", "Write null for rules whose variable is unset").IsSetByUser(&c.nullSet).Bool()
	c.requireExisting = c.app.Flag("require-existing", "Fail instead of creating missing intermediate keys").IsSetByUser(&c.requireSet).Bool()

	c.apply = c.app.Command("apply", "Render the overlaid document once").Default()
	c.output = c.apply.Flag("output", "Write the result to this file instead of stdout").Short('o').String()

	c.serve = c.app.Command("serve", "Serve the overlaid document over HTTP")
	c.port = c.serve.Flag("port", "HTTP port exposed by the service").String()
	c.rateLimitRPS = c.serve.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").IsSetByUser(&c.rpsSet).Float64()
	c.rateLimitBurst = c.serve.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").IsSetByUser(&c.burstSet).Int()

	return c
}

// parse returns the selected command and the flag overrides for config.Load.
func (c *cli) parse(args []string) (string, *config.CLIOverrides, error) {
	command, err := c.app.Parse(args)
	if err != nil {
		return "", nil, err
	}

	overrides := &config.CLIOverrides{
		ConfigFile: *c.settingsFile,
		Sources:    *c.sources,
		Rules:      *c.rules,
	}

	if *c.format != "" {
		overrides.Format = c.format
	}

	if *c.logLevel != "" {
		overrides.LogLevel = c.logLevel
	}

	if c.nullSet {
		overrides.NullForUnset = c.nullForUnset
	}

	if c.requireSet {
		overrides.RequireExisting = c.requireExisting
	}

	if *c.output != "" {
		overrides.Output = c.output
	}

	if *c.port != "" {
		overrides.Port = c.port
	}

	if c.rpsSet {
		overrides.RateLimitRPS = c.rateLimitRPS
	}

	if c.burstSet {
		overrides.RateLimitBurst = c.rateLimitBurst
	}

	return command, overrides, nil
}
