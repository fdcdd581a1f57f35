package dispatch

import "testing"

func TestNormalizeEntryFilename(t *testing.T) {
	cases := []struct {
		in, want string
		wantErr  bool
	}{
		{"", "/index.js", false},
		{"app.js", "/app.js", false},
		{"./lib/a.js", "/lib/a.js", false},
		{"/already/abs.js", "/already/abs.js", false},
		{"pkg/", "/pkg/index.js", false},
		{"../escape.js", "", true},
		{"..", "", true},
		{"../../etc", "", true},
	}
	for _, c := range cases {
		got, err := NormalizeEntryFilename(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("NormalizeEntryFilename(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeEntryFilename(%q): unexpected error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("NormalizeEntryFilename(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPathGuardDenylist(t *testing.T) {
	g := NewPathGuard("/etc/", "/proc/")
	if !g.Denied("/etc/passwd") {
		t.Fatal("expected /etc/passwd denied")
	}
	if g.Denied("/home/user/app.js") {
		t.Fatal("expected unrelated path allowed")
	}
}
