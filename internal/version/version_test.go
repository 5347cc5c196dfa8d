package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "v1.2.3"
	s := String()
	if !strings.Contains(s, "v1.2.3") || !strings.Contains(s, GitSHA) {
		t.Errorf("String() = %q, missing version metadata", s)
	}
}
