package registry

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
)

func TestJoin_CreatesRoomAndReportsHost(t *testing.T) {
	r := New()
	r.Connect("host")
	r.Connect("viewer")

	if _, err := r.DeclareHost("host", "ABC123"); err != nil {
		t.Fatalf("declare host: %v", err)
	}
	if res, err := r.Join("host", "ABC123"); err != nil || res.Size != 1 || res.HostID != "" {
		t.Fatalf("host join: %+v, %v", res, err)
	}

	res, err := r.Join("viewer", "ABC123")
	if err != nil {
		t.Fatalf("viewer join: %v", err)
	}
	if res.Size != 2 {
		t.Fatalf("expected size 2, got %d", res.Size)
	}
	if res.HostID != "host" {
		t.Fatalf("expected host id, got %q", res.HostID)
	}
	if len(res.Others) != 1 || res.Others[0] != "host" {
		t.Fatalf("unexpected others: %v", res.Others)
	}
	if r.Role("viewer") != RoleClient || r.Role("host") != RoleHost {
		t.Fatalf("unexpected roles: viewer=%s host=%s", r.Role("viewer"), r.Role("host"))
	}
}

func TestJoin_EmptyRoomAndUnknownConnection(t *testing.T) {
	r := New()
	r.Connect("a")

	if _, err := r.Join("a", ""); err != ErrEmptyRoomID {
		t.Fatalf("expected ErrEmptyRoomID, got %v", err)
	}
	if _, err := r.Join("ghost", "room"); err != ErrUnknownConnection {
		t.Fatalf("expected ErrUnknownConnection, got %v", err)
	}
	if _, err := r.DeclareHost("ghost", "room"); err != ErrUnknownConnection {
		t.Fatalf("expected ErrUnknownConnection, got %v", err)
	}
}

func TestDeclareHost_LastDeclarationWins(t *testing.T) {
	r := New()
	for _, id := range []string{"a", "b", "c"} {
		r.Connect(id)
		if _, err := r.Join(id, "room"); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}

	if _, err := r.DeclareHost("a", "room"); err != nil {
		t.Fatalf("declare a: %v", err)
	}
	res, err := r.DeclareHost("b", "room")
	if err != nil {
		t.Fatalf("declare b: %v", err)
	}
	if res.Previous != "a" {
		t.Fatalf("expected a to be displaced, got %q", res.Previous)
	}
	if got := fmt.Sprint(res.Clients); got != "[a c]" {
		t.Fatalf("expected clients [a c], got %s", got)
	}

	host, ok := r.Host("room")
	if !ok || host != "b" {
		t.Fatalf("expected host b, got %q", host)
	}
	if r.Role("a") != RoleClient {
		t.Fatalf("displaced host should be a client, got %s", r.Role("a"))
	}
}

func TestDeclareHost_BeforeJoinKeepsRoomAlive(t *testing.T) {
	r := New()
	r.Connect("h")

	res, err := r.DeclareHost("h", "lobby")
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	if len(res.Clients) != 0 {
		t.Fatalf("expected no clients, got %v", res.Clients)
	}
	if r.Size("lobby") != 0 {
		t.Fatalf("declaring host must not count as membership")
	}
	if r.Rooms() != 1 {
		t.Fatalf("room should exist while it has a host")
	}

	left := r.Leave("h")
	if !left.WasHost || left.RoomID != "lobby" {
		t.Fatalf("unexpected leave result: %+v", left)
	}
	if r.Rooms() != 0 {
		t.Fatalf("room should be collected after its host leaves")
	}
}

func TestLeave_CollectsEmptyRoom(t *testing.T) {
	r := New()
	r.Connect("a")
	r.Connect("b")
	r.Join("a", "room")
	r.Join("b", "room")

	res := r.Leave("a")
	if res.Size != 1 || len(res.Remaining) != 1 || res.Remaining[0] != "b" {
		t.Fatalf("unexpected leave result: %+v", res)
	}

	r.Leave("b")
	if r.Rooms() != 0 {
		t.Fatalf("expected room to be collected")
	}
	if res := r.Leave("b"); res.RoomID != "" {
		t.Fatalf("second leave should be a no-op, got %+v", res)
	}
}

func TestJoin_SwitchingRoomsLeavesPrevious(t *testing.T) {
	r := New()
	r.Connect("a")
	r.Join("a", "one")
	r.Join("a", "two")

	if r.Size("one") != 0 || r.Size("two") != 1 {
		t.Fatalf("expected membership to move: one=%d two=%d", r.Size("one"), r.Size("two"))
	}
	if r.RoomOf("a") != "two" {
		t.Fatalf("expected room two, got %q", r.RoomOf("a"))
	}
}

// TestRandomSequences checks membership counts and host uniqueness against a
// simple model over random operation sequences.
func TestRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	rooms := []string{"r1", "r2", "r3"}

	for iter := 0; iter < 200; iter++ {
		r := New()
		model := map[string]string{} // conn -> room (joined only)
		hosts := map[string]string{} // room -> host

		for step := 0; step < 50; step++ {
			conn := fmt.Sprintf("c%d", rng.Intn(6))
			room := rooms[rng.Intn(len(rooms))]

			switch rng.Intn(3) {
			case 0:
				r.Connect(conn)
				if _, err := r.Join(conn, room); err != nil {
					t.Fatalf("join: %v", err)
				}
				for rm, h := range hosts {
					if h == conn && rm != room {
						delete(hosts, rm)
					}
				}
				model[conn] = room
			case 1:
				r.Connect(conn)
				if _, err := r.DeclareHost(conn, room); err != nil {
					t.Fatalf("declare: %v", err)
				}
				if prev, ok := model[conn]; ok && prev != room {
					delete(model, conn)
				}
				for rm, h := range hosts {
					if h == conn {
						delete(hosts, rm)
					}
				}
				hosts[room] = conn
			case 2:
				r.Leave(conn)
				delete(model, conn)
				for rm, h := range hosts {
					if h == conn {
						delete(hosts, rm)
					}
				}
			}

			for _, room := range rooms {
				want := 0
				for _, rm := range model {
					if rm == room {
						want++
					}
				}
				if got := r.Size(room); got != want {
					t.Fatalf("iter %d step %d: room %s size %d, want %d", iter, step, room, got, want)
				}

				host, ok := r.Host(room)
				if want, wantOK := hosts[room]; ok != wantOK || host != want {
					t.Fatalf("iter %d step %d: room %s host %q, want %q", iter, step, room, host, want)
				}
			}
		}
	}
}

func TestConcurrentJoinLeave(t *testing.T) {
	r := New()
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i)
			r.Connect(id)
			r.Join(id, "shared")
			if i%4 == 0 {
				r.DeclareHost(id, "shared")
			}
			if i%2 == 0 {
				r.Leave(id)
			}
		}(i)
	}
	wg.Wait()

	if got := r.Size("shared"); got != 16 {
		t.Fatalf("expected 16 members, got %d", got)
	}
	if host, ok := r.Host("shared"); ok {
		t.Fatalf("every declared host left, got %q", host)
	}
}
