// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"grimm.is/airqos/internal/errors"
)

// GenerateHCL renders a configuration as formatted HCL.
func GenerateHCL(cfg *Config) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	api := body.AppendNewBlock("api", nil).Body()
	api.SetAttributeValue("listen_addr", cty.StringVal(cfg.API.ListenAddr))
	api.SetAttributeValue("read_timeout_sec", cty.NumberIntVal(int64(cfg.API.ReadTimeoutSec)))
	api.SetAttributeValue("write_timeout_sec", cty.NumberIntVal(int64(cfg.API.WriteTimeoutSec)))
	body.AppendNewline()

	qos := body.AppendNewBlock("qos", nil).Body()
	qos.SetAttributeValue("control_socket", cty.StringVal(cfg.QoS.ControlSocket))
	qos.SetAttributeValue("confirmation_timeout_ms", cty.NumberIntVal(int64(cfg.QoS.ConfirmationTimeoutMS)))
	body.AppendNewline()

	links := body.AppendNewBlock("links", nil).Body()
	patterns := make([]cty.Value, len(cfg.Links.Patterns))
	for i, p := range cfg.Links.Patterns {
		patterns[i] = cty.StringVal(p)
	}
	links.SetAttributeValue("patterns", cty.ListVal(patterns))
	body.AppendNewline()

	logging := body.AppendNewBlock("logging", nil).Body()
	logging.SetAttributeValue("level", cty.StringVal(cfg.Logging.Level))
	logging.SetAttributeValue("console", cty.BoolVal(cfg.Logging.Console))

	return f.Bytes()
}

// WriteDefault writes a default configuration file. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.Errorf(errors.KindConflict, "config file %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, errors.KindInternal, "creating config directory")
	}
	if err := os.WriteFile(path, GenerateHCL(Default()), 0o644); err != nil {
		return errors.Wrap(err, errors.KindInternal, "writing config file")
	}
	return nil
}
