package teacher

import (
	"encoding/json"
	"sync"
	"testing"

	"chalkboard/internal/bus"
	"chalkboard/internal/locks"
	"chalkboard/internal/storage"
	"chalkboard/pkg/types"
)

// recorder captures everything a console emits onto the classroom bus.
type recorder struct {
	bc *bus.Broadcast

	mu   sync.Mutex
	seen []types.Event
}

func newRecorder() *recorder {
	r := &recorder{bc: bus.NewBroadcast()}
	r.bc.Open().Listen(func(e types.Event) {
		r.mu.Lock()
		r.seen = append(r.seen, e)
		r.mu.Unlock()
	})
	return r
}

func (r *recorder) bus() *bus.Bus {
	return bus.New(r.bc.Open(), nil)
}

func (r *recorder) lastOfType(typ string) (types.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.seen) - 1; i >= 0; i-- {
		if r.seen[i].Type == typ {
			return r.seen[i], true
		}
	}
	return types.Event{}, false
}

// console builds a Store with an explicit locker identity so tests can
// model two consoles contending over one shared lock store.
func console(st storage.Store, b *bus.Bus, lockerID string) *Store {
	s := &Store{
		storage:  st,
		locks:    locks.NewStore(st, KeyLock),
		bus:      b,
		lockerID: lockerID,
		session:  storage.ReadJSON(st, KeySession, sessionState{}),
	}
	s.AutoRelogin()
	return s
}

func TestLoginRequiresPassword(t *testing.T) {
	st := storage.NewMemoryStore()
	s := NewStore(st, newRecorder().bus())

	if err := s.Login("letmein"); err != ErrWrongPassword {
		t.Fatalf("login = %v, want ErrWrongPassword", err)
	}
	if s.IsLoggedIn() {
		t.Error("failed login must not log the console in")
	}
	// A failed password attempt must not claim the seat.
	if _, held := locks.NewStore(st, KeyLock).Owner(locks.TeacherSeat); held {
		t.Error("seat claimed despite wrong password")
	}

	if err := s.Login("123456"); err != nil {
		t.Fatalf("login = %v, want success", err)
	}
	if !s.IsLoggedIn() {
		t.Error("console should be logged in")
	}
}

func TestSeatIsExclusive(t *testing.T) {
	st := storage.NewMemoryStore()
	a := console(st, newRecorder().bus(), "console-a")
	b := console(st, newRecorder().bus(), "console-b")

	if err := a.Login("123456"); err != nil {
		t.Fatalf("first console login = %v", err)
	}
	if err := b.Login("123456"); err != ErrSeatTaken {
		t.Fatalf("second console login = %v, want ErrSeatTaken", err)
	}
	if b.IsLoggedIn() {
		t.Error("second console must not be logged in")
	}

	// The holder can log in again without friction.
	if err := a.Login("123456"); err != nil {
		t.Errorf("holder re-login = %v", err)
	}

	// Once the seat is released the other console gets it.
	a.Logout()
	if err := b.Login("123456"); err != nil {
		t.Errorf("login after release = %v", err)
	}
	if a.IsLoggedIn() {
		t.Error("first console still claims the seat")
	}
	if !b.IsLoggedIn() {
		t.Error("second console should hold the seat now")
	}
}

func TestLogoutClearsSessionAndDemoArtifacts(t *testing.T) {
	st := storage.NewMemoryStore()
	rec := newRecorder()
	s := NewStore(st, rec.bus())

	if err := s.Login("123456"); err != nil {
		t.Fatal(err)
	}
	s.SetDemoCode("heads + legs", []types.VarBinding{{Name: "heads", Value: json.RawMessage("10")}})
	s.Logout()

	if s.IsLoggedIn() {
		t.Error("console should be logged out")
	}
	if _, held := locks.NewStore(st, KeyLock).Owner(locks.TeacherSeat); held {
		t.Error("seat should be free after logout")
	}
	if _, _, ok := s.DemoCode(); ok {
		t.Error("demo code must be cleared on logout")
	}
	if _, ok := rec.lastOfType(types.EventTeacherLogout); !ok {
		t.Error("logout must be announced so the relay drops retained broadcasts")
	}
}

func TestAutoRelogin(t *testing.T) {
	st := storage.NewMemoryStore()
	a := console(st, newRecorder().bus(), "console-a")
	if err := a.Login("123456"); err != nil {
		t.Fatal(err)
	}

	// The same console restarted still owns the seat: logged in without
	// a password.
	restarted := console(st, newRecorder().bus(), "console-a")
	if !restarted.IsLoggedIn() {
		t.Error("restart must keep the seat holder logged in")
	}

	// A different console waking up against a held seat is forced out.
	intruder := console(st, newRecorder().bus(), "console-b")
	if intruder.IsLoggedIn() {
		t.Error("a console without the seat must wake up logged out")
	}
}

func TestAutoReloginLeavesFreeSeatAlone(t *testing.T) {
	st := storage.NewMemoryStore()
	s := console(st, newRecorder().bus(), "console-a")
	if s.IsLoggedIn() {
		t.Error("no seat, no session")
	}
	if err := s.CanLogin(); err != nil {
		t.Errorf("free seat should be loginable: %v", err)
	}
}

func TestDemoCodeRoundTrip(t *testing.T) {
	st := storage.NewMemoryStore()
	s := NewStore(st, newRecorder().bus())

	if _, _, ok := s.DemoCode(); ok {
		t.Error("no demo code saved yet")
	}

	bindings := []types.VarBinding{
		{Name: "heads", Value: json.RawMessage("10")},
		{Name: "legs", Value: json.RawMessage("28")},
	}
	s.SetDemoCode("heads + legs", bindings)

	code, info, ok := s.DemoCode()
	if !ok || code != "heads + legs" {
		t.Fatalf("code = %q/%v", code, ok)
	}
	if len(info) != 2 || info[0].Name != "heads" || string(info[1].Value) != "28" {
		t.Errorf("bindings = %+v", info)
	}
}

func TestBroadcastActivity2CarriesContent(t *testing.T) {
	rec := newRecorder()
	s := NewStore(storage.NewMemoryStore(), rec.bus())

	s.BroadcastActivity2(types.BroadcastContent{
		Code:       "heads + legs",
		CodeInfo:   []types.VarBinding{{Name: "heads", Value: json.RawMessage("10")}},
		TotalHeads: 10,
		TotalLegs:  28,
	})

	evt, ok := rec.lastOfType(types.EventTeacherBroadcast)
	if !ok || evt.Activity != types.ActivityA2 {
		t.Fatalf("broadcast = %+v", evt)
	}
	var content types.BroadcastContent
	if err := json.Unmarshal(evt.Data, &content); err != nil {
		t.Fatalf("bad data: %v", err)
	}
	if content.Code != "heads + legs" || content.TotalHeads != 10 || content.TotalLegs != 28 {
		t.Errorf("content = %+v", content)
	}
}

func TestBroadcastActivity3CarriesDirections(t *testing.T) {
	rec := newRecorder()
	s := NewStore(storage.NewMemoryStore(), rec.bus())

	s.BroadcastActivity3([]string{"N", "E", "S"})

	evt, ok := rec.lastOfType(types.EventActivity3Broadcast)
	if !ok || evt.Activity != types.ActivityA3 {
		t.Fatalf("broadcast = %+v", evt)
	}
	var content types.Activity3Content
	if err := json.Unmarshal(evt.Data, &content); err != nil {
		t.Fatalf("bad data: %v", err)
	}
	if len(content.Directions) != 3 || content.Directions[1] != "E" {
		t.Errorf("directions = %v", content.Directions)
	}
	if content.Timestamp == 0 {
		t.Error("activity 3 content must carry its push timestamp")
	}
}

func TestPingAndClearBroadcasts(t *testing.T) {
	rec := newRecorder()
	s := NewStore(storage.NewMemoryStore(), rec.bus())

	s.Ping()
	if _, ok := rec.lastOfType(types.EventTeacherPing); !ok {
		t.Error("ping not announced")
	}
	s.ClearBroadcasts()
	if _, ok := rec.lastOfType(types.EventTeacherClearBroadcasts); !ok {
		t.Error("clear-broadcasts not announced")
	}
}
