package modkit

import "testing"

func TestBuild_DefaultsAndOverrides(t *testing.T) {
	t.Parallel()

	b := Build("collect")
	if b.Name != "collect" || b.Ports != nil {
		t.Fatalf("unexpected defaults: %+v", b)
	}

	b = Build("collect", WithName("members"), WithPorts(3))
	if b.Name != "members" || b.Ports != 3 {
		t.Fatalf("options not applied: %+v", b)
	}
}
