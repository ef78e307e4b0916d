package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/florianilch/rabota-client/internal/app"
)

// flagOverrides maps global flags to config keys.
var flagOverrides = []struct {
	flag string
	key  string
	isBool bool
}{
	{flag: "app-id", key: "app_id"},
	{flag: "sandbox", key: "sandbox", isBool: true},
	{flag: "host", key: "host"},
	{flag: "log-level", key: "log.level"},
	{flag: "log-format", key: "log.format"},
	{flag: "debug", key: "debug", isBool: true},
}

// loadConfig loads the config file at path (required only when --config was
// given explicitly), the environment, and explicitly set flags.
func loadConfig(path string, cmd *cli.Command, environ func() []string) (*app.Config, error) {
	overrides := make(map[string]any)
	for _, o := range flagOverrides {
		if !cmd.IsSet(o.flag) {
			continue
		}
		if o.isBool {
			overrides[o.key] = cmd.Bool(o.flag)
		} else {
			overrides[o.key] = cmd.String(o.flag)
		}
	}

	return app.LoadConfig(path, cmd.IsSet("config"), overrides, environ)
}
