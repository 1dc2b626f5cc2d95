package adapters

import (
	"fmt"
	"os"
	"sort"

	"github.com/tidwall/sjson"
	"gopkg.in/yaml.v3"
)

// ProfileFile is the on-disk launch profile document:
//
//	configurations:
//	  - name: hello
//	    type: gdb
//	    request: launch
//	    program: ./hello
//	    extra:
//	      stopAtBeginningOfMainSubprogram: true
type ProfileFile struct {
	Configurations []Config `yaml:"configurations"`
}

// LoadProfiles reads launch profiles from a YAML file.
func LoadProfiles(path string) ([]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles %s: %w", path, err)
	}
	return ParseProfiles(data)
}

// ParseProfiles parses launch profiles from YAML data.
func ParseProfiles(data []byte) ([]Config, error) {
	var file ProfileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}

	seen := make(map[string]bool, len(file.Configurations))
	for i, c := range file.Configurations {
		if c.Name == "" {
			return nil, fmt.Errorf("configuration %d: name is required", i)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("configuration %q defined twice", c.Name)
		}
		seen[c.Name] = true
		if c.Type == "" {
			file.Configurations[i].Type = AdapterGDB
		}
		if c.Request == "" {
			file.Configurations[i].Request = "launch"
		}
	}
	return file.Configurations, nil
}

// FindProfile returns the profile with the given name.
func FindProfile(profiles []Config, name string) (Config, bool) {
	for _, p := range profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Config{}, false
}

// ApplyExtra sets each extra key (an sjson path) on the JSON object raw.
// Keys are applied in sorted order so nested paths are deterministic.
func ApplyExtra(raw []byte, extra map[string]any) ([]byte, error) {
	if len(extra) == 0 {
		return raw, nil
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := raw
	for _, k := range keys {
		var err error
		out, err = sjson.SetBytes(out, k, extra[k])
		if err != nil {
			return nil, fmt.Errorf("apply extra %q: %w", k, err)
		}
	}
	return out, nil
}
