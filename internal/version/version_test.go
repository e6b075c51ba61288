package version

import (
	"runtime"
	"runtime/debug"
	"testing"
)

func TestFillFromBuildInfo(t *testing.T) {
	bi := &debug.BuildInfo{
		Main: debug.Module{Version: "v1.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.time", Value: "2026-01-27T10:30:00Z"},
		},
	}

	tests := []struct {
		name string
		in   Info
		want Info
	}{
		{
			name: "defaults replaced",
			in:   Info{Version: "dev", GitCommit: "unknown", BuildDate: "unknown"},
			want: Info{Version: "v1.4.0", GitCommit: "abc123", BuildDate: "2026-01-27T10:30:00Z"},
		},
		{
			name: "ldflags win",
			in:   Info{Version: "2.0.0", GitCommit: "fff", BuildDate: "today"},
			want: Info{Version: "2.0.0", GitCommit: "fff", BuildDate: "today"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in
			fillFromBuildInfo(&got, bi)
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFillFromDevelBuild(t *testing.T) {
	info := Info{Version: "dev"}
	fillFromBuildInfo(&info, &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
	if info.Version != "dev" {
		t.Errorf("Version = %q, want dev", info.Version)
	}
	fillFromBuildInfo(&info, nil)
}

func TestGetRuntime(t *testing.T) {
	info := Get()
	if info.GoVersion != runtime.Version() || info.Compiler != runtime.Compiler {
		t.Errorf("runtime fields = %+v", info)
	}
}
