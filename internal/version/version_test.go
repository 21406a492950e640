package version

import "testing"

func TestShort(t *testing.T) {
	tests := []struct {
		info Info
		want string
	}{
		{Info{Version: "dev"}, "dev"},
		{Info{Version: "1.0.0", Revision: "0123456789abcdef"}, "1.0.0 (01234567)"},
		{Info{Version: "1.0.0", Revision: "abc", Modified: true}, "1.0.0 (abc+dirty)"},
	}
	for _, tt := range tests {
		if got := tt.info.Short(); got != tt.want {
			t.Errorf("Short() = %q, want %q", got, tt.want)
		}
	}
}

func TestWarning(t *testing.T) {
	if w := (Info{Version: "dev"}).Warning(); w == "" {
		t.Error("dev build without revision should warn")
	}
	if w := (Info{Version: "1.0.0", Revision: "abc"}).Warning(); w != "" {
		t.Errorf("clean release warned: %q", w)
	}
	if w := (Info{Version: "1.0.0", Revision: "abc", Modified: true}).Warning(); w == "" {
		t.Error("modified tree should warn")
	}
}

func TestGet(t *testing.T) {
	info := Get()
	if info.Version != Version {
		t.Errorf("Version = %q, want %q", info.Version, Version)
	}
}
