package utils

import (
	"strings"
	"testing"
)

func TestVersionStrings(t *testing.T) {
	t.Parallel()

	long := GetBuildVersion()
	short := GetVersionShort()

	for _, v := range []string{long, short} {
		if !strings.Contains(v, "v"+Version) {
			t.Errorf("%q should contain v%s", v, Version)
		}

		if !strings.Contains(v, "(") || !strings.Contains(v, ")") {
			t.Errorf("%q should carry the commit in parentheses", v)
		}
	}

	if !strings.Contains(long, "built at") {
		t.Errorf("GetBuildVersion() = %q, want build time", long)
	}

	if strings.Contains(short, "built at") {
		t.Errorf("GetVersionShort() = %q should not carry build time", short)
	}
}

func TestGetBuildInfo(t *testing.T) {
	t.Parallel()

	info := GetBuildInfo()

	for _, key := range []string{"version", "commit", "build_time", "vcs_modified"} {
		if _, ok := info[key]; !ok {
			t.Errorf("GetBuildInfo() missing %q", key)
		}
	}

	if info["version"] != Version {
		t.Errorf("version = %q, want %q", info["version"], Version)
	}

	if m := info["vcs_modified"]; m != "true" && m != "false" {
		t.Errorf("vcs_modified = %q", m)
	}

	if commit := info["commit"]; commit != "unknown" && len(commit) > 7 {
		t.Errorf("commit %q should be shortened", commit)
	}
}
