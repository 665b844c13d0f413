package view

import "testing"

func TestResolvePaths(t *testing.T) {
	cases := []struct {
		path string
		want View
	}{
		{"/risk", Leaderboards},
		{"/risk/", Leaderboards},
		{"/risk/ip", IPMonitoring},
		{"/risk/banned", BannedList},
		{"/risk/audit", AuditLogs},
		{"/risk/ai", AIBan},
		{"/unknown", Leaderboards},
		{"", Leaderboards},
	}
	for _, tc := range cases {
		res := Resolve(tc.path, "")
		if res.View != tc.want {
			t.Fatalf("path %q: got %s, want %s", tc.path, res.View, tc.want)
		}
		if res.Migrated {
			t.Fatalf("path %q: path resolution must not flag migration", tc.path)
		}
	}
}

func TestResolveLegacyHash(t *testing.T) {
	res := Resolve("/console", "#risk-ip")
	if res.View != IPMonitoring {
		t.Fatalf("got %s, want %s", res.View, IPMonitoring)
	}
	if !res.Migrated {
		t.Fatal("legacy hash resolution must flag migration")
	}
	if res.CanonicalPath != "/risk/ip" {
		t.Fatalf("unexpected canonical path %q", res.CanonicalPath)
	}
}

func TestResolvePathWinsOverHash(t *testing.T) {
	res := Resolve("/risk/banned", "#risk-ai")
	if res.View != BannedList {
		t.Fatalf("got %s, want %s", res.View, BannedList)
	}
	if res.Migrated {
		t.Fatal("a resolving path must suppress hash migration")
	}
}

func TestResolveIdempotent(t *testing.T) {
	first := Resolve("/console", "#risk-audit")
	second := Resolve(first.CanonicalPath, "")
	if second.View != first.View {
		t.Fatalf("re-resolving canonical path changed the view: %s -> %s", first.View, second.View)
	}
	if second.Migrated {
		t.Fatal("canonical path must not re-flag migration")
	}
	if second.CanonicalPath != first.CanonicalPath {
		t.Fatalf("canonical path drifted: %q -> %q", first.CanonicalPath, second.CanonicalPath)
	}
}

func TestRouterInitialMigrationRewritesInPlace(t *testing.T) {
	h := NewMemoryHistory("/console")
	r := NewRouter(h)

	res := r.ResolveInitial("/console", "#risk-banned")
	if res.View != BannedList {
		t.Fatalf("got %s, want %s", res.View, BannedList)
	}
	if h.Current() != "/risk/banned" {
		t.Fatalf("history not rewritten: %q", h.Current())
	}
	if h.Len() != 1 {
		t.Fatalf("migration must replace, not push; got %d entries", h.Len())
	}
}

func TestRouterSetViewPushesOncePerPathChange(t *testing.T) {
	h := NewMemoryHistory("/risk")
	r := NewRouter(h)
	r.ResolveInitial("/risk", "")

	if _, changed := r.SetView(IPMonitoring); !changed {
		t.Fatal("expected view change")
	}
	if h.Len() != 2 {
		t.Fatalf("expected one pushed entry, got %d total", h.Len())
	}

	// Re-selecting the active view must not pile up duplicates.
	if _, changed := r.SetView(IPMonitoring); changed {
		t.Fatal("re-selecting the active view must not report a change")
	}
	if h.Len() != 2 {
		t.Fatalf("duplicate entry pushed; got %d total", h.Len())
	}
}

func TestRouterNavigateReplacesNotPushes(t *testing.T) {
	h := NewMemoryHistory("/risk")
	r := NewRouter(h)
	r.ResolveInitial("/risk", "")
	r.SetView(AIBan)

	path, ok := h.Back()
	if !ok {
		t.Fatal("expected a back entry")
	}
	prev, changed := r.Navigate(path)
	if !changed || prev != AIBan {
		t.Fatalf("unexpected navigate result prev=%s changed=%v", prev, changed)
	}
	if r.Current() != Leaderboards {
		t.Fatalf("got %s, want %s", r.Current(), Leaderboards)
	}
	if h.Len() != 2 {
		t.Fatalf("navigate must not push; got %d entries", h.Len())
	}
}

func TestRouterSetViewFallsBackToDefault(t *testing.T) {
	h := NewMemoryHistory("/risk")
	r := NewRouter(h)
	r.ResolveInitial("/risk/ai", "")

	r.SetView(View("bogus"))
	if r.Current() != Default {
		t.Fatalf("got %s, want default %s", r.Current(), Default)
	}
}
