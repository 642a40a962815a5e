package surface

import "testing"

func TestMatchesVersionSurface(t *testing.T) {
	got := Matches("SELECT id FROM lix_version")
	if len(got) != 1 || got[0] != Version {
		t.Errorf("Matches(lix_version) = %v, want [Version]", got)
	}
}

func TestMatchesIsCaseInsensitive(t *testing.T) {
	got := Matches("SELECT id FROM LIX_VERSION")
	if len(got) != 1 || got[0] != Version {
		t.Errorf("Matches(LIX_VERSION) = %v, want [Version]", got)
	}
}

func TestMatchesStateByVersionDoesNotAlsoMatchPlainState(t *testing.T) {
	// lix_state_by_version starts with "lix_state", but that match is not
	// followed by a word boundary, so it must not also report State.
	got := Matches("SELECT entity_id FROM lix_state_by_version WHERE version_id = ?")
	found := map[Surface]bool{}
	for _, s := range got {
		found[s] = true
	}
	if !found[StateByVersion] {
		t.Error("expected StateByVersion to match")
	}
	if found[State] {
		t.Error("lix_state_by_version unexpectedly also matched plain State")
	}
}

func TestMatchesFilesystemVariants(t *testing.T) {
	for _, table := range []string{"lix_file", "lix_directory", "lix_file_by_version", "lix_file_history"} {
		got := Matches("SELECT id FROM " + table)
		found := false
		for _, s := range got {
			if s == Filesystem {
				found = true
			}
		}
		if !found {
			t.Errorf("Matches(%q) = %v, want Filesystem included", table, got)
		}
	}
}

func TestMatchesAnyRejectsUnrelatedSurface(t *testing.T) {
	if MatchesAny("SELECT id FROM lix_version", State) {
		t.Error("MatchesAny(lix_version, State) = true, want false")
	}
	if !MatchesAny("SELECT id FROM lix_version", Version) {
		t.Error("MatchesAny(lix_version, Version) = false, want true")
	}
}

func TestDispatchOrderEndsWithPassthrough(t *testing.T) {
	order := DispatchOrder()
	if len(order) == 0 || order[len(order)-1] != Passthrough {
		t.Fatalf("DispatchOrder() = %v, want last entry Passthrough", order)
	}
}

func TestDispatchOrderIncludesInternalStateVtable(t *testing.T) {
	for _, s := range DispatchOrder() {
		if s == InternalStateVtable {
			return
		}
	}
	t.Fatal("DispatchOrder() omits InternalStateVtable; its rewrite rule would never run")
}

func TestDispatchOrderPutsWriteSurfacesBeforeReadSurfaces(t *testing.T) {
	order := DispatchOrder()
	// State and StateByVersion sit in both WriteOrder and ReadOrder, so a
	// write surface is placed by its first slot and a read surface by its
	// last one.
	first := map[Surface]int{}
	last := map[Surface]int{}
	for i, s := range order {
		if _, ok := first[s]; !ok {
			first[s] = i
		}
		last[s] = i
	}
	for _, w := range WriteOrder {
		for _, r := range ReadOrder {
			if first[w] > last[r] {
				t.Errorf("write surface %v dispatched after read surface %v", w, r)
			}
		}
	}
}
