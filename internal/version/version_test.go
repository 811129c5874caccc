package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	info := Info()
	if !strings.HasPrefix(info, "runstats "+Version) {
		t.Errorf("Info() = %q, want prefix %q", info, "runstats "+Version)
	}
}

func TestMap(t *testing.T) {
	m := Map()
	for _, key := range []string{"version", "git_commit", "build_date", "go_version"} {
		if m[key] == "" {
			t.Errorf("Map()[%q] is empty", key)
		}
	}
	if m["version"] != Short() {
		t.Errorf("Map()[version] = %q, want %q", m["version"], Short())
	}
}
