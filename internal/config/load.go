// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"grimm.is/airqos/internal/errors"
)

// LoadFile loads a config file, HCL or JSON depending on extension.
// Files without a recognized extension are tried as HCL first. Defaults
// are applied and the result is validated.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindNotFound, "reading config file")
	}

	var cfg *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		cfg, err = LoadJSON(data)
	case ".hcl":
		cfg, err = LoadHCL(data, path)
	default:
		cfg, err = LoadHCL(data, path)
		if err != nil {
			if jsonCfg, jsonErr := LoadJSON(data); jsonErr == nil {
				cfg, err = jsonCfg, nil
			}
		}
	}
	if err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadHCL decodes config from HCL bytes. Defaults and validation are
// left to the caller.
func LoadHCL(data []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, errors.Errorf(errors.KindValidation, "parsing HCL: %s", diags.Error())
	}

	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, errors.Errorf(errors.KindValidation, "decoding config: %s", diags.Error())
	}
	return &cfg, nil
}

// LoadJSON decodes config from JSON bytes.
func LoadJSON(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.KindValidation, "parsing JSON config")
	}
	return &cfg, nil
}
