package buildinfo

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	oldV, oldC, oldD := Version, Commit, Date
	defer func() { Version, Commit, Date = oldV, oldC, oldD }()

	Version, Commit, Date = "v1.2.3", "abc1234", "2024-01-02T03:04:05Z"

	got := String()
	for _, want := range []string{"version: v1.2.3", "commit: abc1234", "built: 2024-01-02T03:04:05Z"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, missing %q", got, want)
		}
	}
	if !strings.Contains(Template(), "{{.Name}} v1.2.3") {
		t.Errorf("Template() = %q", Template())
	}
	if UserAgent() != "qrraster/v1.2.3" {
		t.Errorf("UserAgent() = %q", UserAgent())
	}
}
