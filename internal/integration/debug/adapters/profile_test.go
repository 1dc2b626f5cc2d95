package adapters

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleProfiles = `
configurations:
  - name: hello
    type: cppdbg
    program: ./hello
    extra:
      stopAtEntry: true
      setupCommands.1.text: "set disassembly-flavor intel"
  - name: remote
    request: attach
    target: localhost:1234
`

func TestParseProfiles(t *testing.T) {
	profiles, err := ParseProfiles([]byte(sampleProfiles))
	if err != nil {
		t.Fatalf("ParseProfiles: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}

	hello, ok := FindProfile(profiles, "hello")
	if !ok {
		t.Fatal("hello profile not found")
	}
	if hello.Type != AdapterCppdbg || hello.Request != "launch" {
		t.Errorf("defaults not applied: %+v", hello)
	}

	remote, _ := FindProfile(profiles, "remote")
	if remote.Type != AdapterGDB {
		t.Errorf("expected default type gdb, got %s", remote.Type)
	}

	if _, ok := FindProfile(profiles, "missing"); ok {
		t.Error("unexpected profile found")
	}
}

func TestParseProfilesErrors(t *testing.T) {
	tests := map[string]string{
		"no name":   "configurations:\n  - type: gdb\n",
		"duplicate": "configurations:\n  - name: a\n  - name: a\n",
		"bad yaml":  "configurations: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseProfiles([]byte(doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestExtraOverridesLaunchArgs(t *testing.T) {
	profiles, err := ParseProfiles([]byte(sampleProfiles))
	if err != nil {
		t.Fatalf("ParseProfiles: %v", err)
	}
	hello, _ := FindProfile(profiles, "hello")

	a, err := NewRegistry().Create(hello)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	raw, err := a.GetLaunchArgs()
	if err != nil {
		t.Fatalf("GetLaunchArgs: %v", err)
	}
	args := decodeArgs(t, raw)

	if args["stopAtEntry"] != true {
		t.Errorf("stopAtEntry not overridden: %v", args["stopAtEntry"])
	}
	setup := args["setupCommands"].([]interface{})
	if len(setup) != 2 {
		t.Fatalf("expected appended setup command, got %v", setup)
	}
	if setup[1].(map[string]interface{})["text"] != "set disassembly-flavor intel" {
		t.Errorf("unexpected setup command %v", setup[1])
	}
}

func TestApplyExtraEmpty(t *testing.T) {
	raw := []byte(`{"a":1}`)
	out, err := ApplyExtra(raw, nil)
	if err != nil || string(out) != `{"a":1}` {
		t.Errorf("ApplyExtra(nil) = %s, %v", out, err)
	}
}

func TestLoadProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launch.yaml")
	if err := os.WriteFile(path, []byte(sampleProfiles), 0o600); err != nil {
		t.Fatal(err)
	}

	profiles, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	if len(profiles) != 2 {
		t.Errorf("expected 2 profiles, got %d", len(profiles))
	}

	if _, err := LoadProfiles(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
