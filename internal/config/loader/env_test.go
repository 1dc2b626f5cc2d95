package loader

import (
	"reflect"
	"testing"
)

func envLoader(vars ...string) *EnvLoader {
	l := NewEnvLoader(EnvPrefix)
	l.environ = func() []string { return vars }
	return l
}

func TestEnvLoader_Load(t *testing.T) {
	l := envLoader(
		"REGHOVER_LOG_LEVEL=debug",
		"REGHOVER_INSPECT_ROW_WIDTH=8",
		"REGHOVER_HOVER_GROUP_DIGITS=yes",
		`REGHOVER_HOVER_LANGUAGES=["asm","nasm"]`,
		"PATH=/usr/bin",
	)

	config, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if val, ok := getByPath(config, "logging.level"); !ok || val != "debug" {
		t.Errorf("logging.level = %v, want 'debug'", val)
	}
	if val, ok := getByPath(config, "inspect.rowWidth"); !ok || val != int64(8) {
		t.Errorf("inspect.rowWidth = %v (%T), want 8", val, val)
	}
	if val, ok := getByPath(config, "hover.groupDigits"); !ok || val != true {
		t.Errorf("hover.groupDigits = %v, want true", val)
	}
	val, _ := getByPath(config, "hover.languages")
	if !reflect.DeepEqual(val, []any{"asm", "nasm"}) {
		t.Errorf("hover.languages = %v", val)
	}
	if _, ok := config["path"]; ok {
		t.Error("unprefixed variables should be ignored")
	}
}

func TestEnvLoader_Mapping(t *testing.T) {
	l := envLoader("REGHOVER_HOOK=/tmp/hook.lua", "CUSTOM_VAR=x")
	l.AddMapping("CUSTOM_VAR", "custom.path")

	config, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if val, ok := getByPath(config, "plugin.hook"); !ok || val != "/tmp/hook.lua" {
		t.Errorf("plugin.hook = %v", val)
	}
	if val, ok := getByPath(config, "custom.path"); !ok || val != "x" {
		t.Errorf("custom.path = %v", val)
	}
	if _, ok := getByPath(config, "hook"); ok {
		t.Error("mapped variables should not also be scanned")
	}
}

func TestEnvLoader_envToPath(t *testing.T) {
	l := NewEnvLoader(EnvPrefix)

	tests := []struct {
		env      string
		expected string
	}{
		{"REGHOVER_INSPECT_ROW_WIDTH", "inspect.rowWidth"},
		{"REGHOVER_HOVER_LOCALE", "hover.locale"},
		{"REGHOVER_SIMPLE", "simple"},
		{"REGHOVER_DEBUG_MAX_NODES", "debug.maxNodes"},
	}

	for _, tt := range tests {
		if got := l.envToPath(tt.env); got != tt.expected {
			t.Errorf("envToPath(%q) = %q, want %q", tt.env, got, tt.expected)
		}
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		input    string
		expected any
	}{
		{"true", true},
		{"YES", true},
		{"on", true},
		{"false", false},
		{"no", false},
		{"off", false},
		{"1", int64(1)},
		{"0", int64(0)},
		{"42", int64(42)},
		{"-10", int64(-10)},
		{"3.14", 3.14},
		{"hello", "hello"},
		{"en-US", "en-US"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := parseValue(tt.input); got != tt.expected {
			t.Errorf("parseValue(%q) = %v (%T), want %v (%T)",
				tt.input, got, got, tt.expected, tt.expected)
		}
	}

	if got := parseValue(`{"k":"v"}`); !reflect.DeepEqual(got, map[string]any{"k": "v"}) {
		t.Errorf("parseValue(object) = %v", got)
	}
	if got := parseValue("[broken"); got != "[broken" {
		t.Errorf("parseValue(invalid json) = %v, want raw string", got)
	}
}

func getByPath(data map[string]any, path string) (any, bool) {
	current := any(data)
	for _, part := range splitPath(path) {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		val, exists := m[part]
		if !exists {
			return nil, false
		}
		current = val
	}
	return current, true
}

func splitPath(path string) []string {
	var result []string
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '.' {
			if i > start {
				result = append(result, path[start:i])
			}
			start = i + 1
		}
	}
	return result
}
