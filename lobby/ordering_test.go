package lobby

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSnapshot_ReflectsLobbyState(t *testing.T) {
	l := New(Options{ID: 0x77, IsGame: true, MaxClients: 4})
	defer l.Shutdown()
	l.SetName("arena")
	l.SetEpisodeModeDifficulty(EpisodeEp2, ModeBattle, 2)

	got := l.Snapshot()
	want := ListingInfo{
		LobbyID:    0x77,
		Name:       "arena",
		Mode:       ModeBattle,
		Episode:    EpisodeEp2,
		Difficulty: 2,
		MaxClients: 4,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestCompare_FullLobbiesSortAfterJoinable(t *testing.T) {
	full := ListingInfo{Name: "full", NumClients: 4, MaxClients: 4}
	joinable := ListingInfo{Name: "joinable", NumClients: 1, MaxClients: 4}
	if !Compare(joinable, full) {
		t.Fatalf("expected joinable lobby to sort before full lobby")
	}
	if Compare(full, joinable) {
		t.Fatalf("expected full lobby not to sort before joinable lobby")
	}
}

func TestCompare_QuestOrBattleInFlightSortsLast(t *testing.T) {
	busy := ListingInfo{Name: "a", QuestOrBattleInFlight: true}
	idle := ListingInfo{Name: "z", NumClients: 1, MaxClients: 4}
	if !Compare(idle, busy) {
		t.Fatalf("expected idle lobby to sort before a busy one regardless of name")
	}
}

func TestCompare_PasswordThenNameTiebreak(t *testing.T) {
	locked := ListingInfo{Name: "aaa", PasswordSet: true, NumClients: 1, MaxClients: 4}
	public := ListingInfo{Name: "zzz", PasswordSet: false, NumClients: 1, MaxClients: 4}
	if !Compare(public, locked) {
		t.Fatalf("expected public lobby to sort before locked lobby even with a later name")
	}
}

func TestCompare_IsAStrictWeakOrder(t *testing.T) {
	infos := []ListingInfo{
		{Name: "c", NumClients: 1, MaxClients: 4},
		{Name: "a", NumClients: 1, MaxClients: 4},
		{Name: "b", PasswordSet: true, NumClients: 1, MaxClients: 4},
		{Name: "d", NumClients: 4, MaxClients: 4},
		{Name: "e", NumClients: 0, MaxClients: 4},
		{Name: "f", QuestOrBattleInFlight: true, NumClients: 1, MaxClients: 4},
	}
	rand.Shuffle(len(infos), func(i, j int) { infos[i], infos[j] = infos[j], infos[i] })
	sort.Slice(infos, func(i, j int) bool { return Compare(infos[i], infos[j]) })

	for i := 0; i < len(infos); i++ {
		if Compare(infos[i], infos[i]) {
			t.Fatalf("Compare must be irreflexive, got Compare(x, x) = true for %+v", infos[i])
		}
	}
	for i := 0; i+1 < len(infos); i++ {
		if Compare(infos[i+1], infos[i]) {
			t.Fatalf("sorted order is not consistent with Compare at index %d", i)
		}
	}
}
