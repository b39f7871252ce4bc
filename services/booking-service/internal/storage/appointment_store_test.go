package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/barberbook/libs/kv"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/model"
)

type faultyKV struct {
	kv.Store
	failGet bool
	failSet bool
}

func (f *faultyKV) Get(ctx context.Context, key string) (string, bool, error) {
	if f.failGet {
		return "", false, errors.New("disk unplugged")
	}
	return f.Store.Get(ctx, key)
}

func (f *faultyKV) Set(ctx context.Context, key, value string) error {
	if f.failSet {
		return errors.New("disk full")
	}
	return f.Store.Set(ctx, key, value)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, backend kv.Store) *Store {
	t.Helper()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick := 0
	return New(backend,
		WithLogger(quietLogger()),
		WithClock(func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			tick++
			return base.Add(time.Duration(tick) * time.Second)
		}),
	)
}

func form(name, date, clock string, svc model.ServiceKind) model.Form {
	return model.Form{ClientName: name, Date: date, Time: clock, Service: svc}
}

func TestStore_EmptySlotListsNothing(t *testing.T) {
	s := newTestStore(t, kv.NewMemoryStore())
	appts, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if appts == nil || len(appts) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", appts)
	}
}

func TestStore_SaveAndList(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, kv.NewMemoryStore())

	saved, err := s.Save(ctx, form("Ana", "15/12/2099", "10:00", model.ServiceHaircut))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.ID == "" || saved.CreatedAt.IsZero() {
		t.Fatalf("expected id and createdAt to be assigned: %#v", saved)
	}

	appts, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(appts) != 1 {
		t.Fatalf("expected 1 appointment, got %d", len(appts))
	}
	got := appts[0]
	if got.ID != saved.ID || got.ClientName != "Ana" || got.Date != "15/12/2099" || got.Time != "10:00" || got.Service != model.ServiceHaircut {
		t.Fatalf("unexpected record %#v", got)
	}
	if !got.CreatedAt.Equal(saved.CreatedAt) {
		t.Fatalf("createdAt changed in round trip: %v vs %v", got.CreatedAt, saved.CreatedAt)
	}
}

func TestStore_SaveDoesNotCheckSlot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, kv.NewMemoryStore())
	for i := 0; i < 2; i++ {
		if _, err := s.Save(ctx, form("Ana", "15/12/2099", "10:00", model.ServiceBeard)); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	appts, _ := s.List(ctx)
	if len(appts) != 2 {
		t.Fatalf("expected 2 records, got %d", len(appts))
	}
}

func TestStore_CheckAvailability(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, kv.NewMemoryStore())

	ok, err := s.CheckAvailability(ctx, "20/12/2099", "09:00")
	if err != nil || !ok {
		t.Fatalf("expected free slot, got ok=%v err=%v", ok, err)
	}
	if _, err := s.Save(ctx, form("Bruno", "20/12/2099", "09:00", model.ServiceBoth)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	ok, err = s.CheckAvailability(ctx, "20/12/2099", "09:00")
	if err != nil || ok {
		t.Fatalf("expected taken slot, got ok=%v err=%v", ok, err)
	}
	ok, err = s.CheckAvailability(ctx, "20/12/2099", "09:30")
	if err != nil || !ok {
		t.Fatalf("expected neighbouring slot free, got ok=%v err=%v", ok, err)
	}
}

func TestStore_SaveIfAvailable(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, kv.NewMemoryStore())

	if _, err := s.SaveIfAvailable(ctx, form("Ana", "15/12/2099", "10:00", model.ServiceHaircut)); err != nil {
		t.Fatalf("first SaveIfAvailable: %v", err)
	}
	_, err := s.SaveIfAvailable(ctx, form("Bia", "15/12/2099", "10:00", model.ServiceBeard))
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
	if errors.Is(err, ErrStorage) {
		t.Fatalf("a taken slot is not a storage fault")
	}
	appts, _ := s.List(ctx)
	if len(appts) != 1 {
		t.Fatalf("expected 1 record after conflict, got %d", len(appts))
	}
}

func TestStore_OneDigitHourRecordClaimsSlot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, kv.NewMemoryStore())

	if _, err := s.Save(ctx, form("Ana", "15/12/2099", "9:30", model.ServiceHaircut)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	ok, err := s.CheckAvailability(ctx, "15/12/2099", "09:30")
	if err != nil || ok {
		t.Fatalf("expected 09:30 taken by a 9:30 record, got ok=%v err=%v", ok, err)
	}
	if _, err := s.SaveIfAvailable(ctx, form("Bia", "15/12/2099", "09:30", model.ServiceBeard)); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
}

func TestStore_GetByID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, kv.NewMemoryStore())
	saved, _ := s.Save(ctx, form("Ana", "15/12/2099", "10:00", model.ServiceHaircut))

	got, err := s.GetByID(ctx, saved.ID)
	if err != nil || got == nil || got.ID != saved.ID {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	missing, err := s.GetByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil,nil for unknown id, got %v %v", missing, err)
	}
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, kv.NewMemoryStore())
	a, _ := s.Save(ctx, form("Ana", "15/12/2099", "10:00", model.ServiceHaircut))
	b, _ := s.Save(ctx, form("Bia", "15/12/2099", "11:00", model.ServiceBeard))

	for i := 0; i < 2; i++ {
		ok, err := s.Delete(ctx, a.ID)
		if err != nil || !ok {
			t.Fatalf("Delete #%d: ok=%v err=%v", i, ok, err)
		}
	}
	ok, err := s.Delete(ctx, "never-existed")
	if err != nil || !ok {
		t.Fatalf("Delete unknown: ok=%v err=%v", ok, err)
	}

	appts, _ := s.List(ctx)
	if len(appts) != 1 || appts[0].ID != b.ID {
		t.Fatalf("expected only %s to remain, got %#v", b.ID, appts)
	}
	free, _ := s.CheckAvailability(ctx, "15/12/2099", "10:00")
	if !free {
		t.Fatalf("deleted appointment should free its slot")
	}
}

func TestStore_ListRecent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, kv.NewMemoryStore())
	var ids []string
	for i := 0; i < 3; i++ {
		a, err := s.Save(ctx, form(fmt.Sprintf("c%d", i), "15/12/2099", fmt.Sprintf("1%d:00", i), model.ServiceBeard))
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
		ids = append(ids, a.ID)
	}
	recent, err := s.ListRecent(ctx)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	for i, a := range recent {
		if a.ID != ids[len(ids)-1-i] {
			t.Fatalf("position %d: got %s want %s", i, a.ID, ids[len(ids)-1-i])
		}
	}
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, kv.NewMemoryStore())
	_, _ = s.Save(ctx, form("Ana", "15/12/2099", "10:00", model.ServiceHaircut))
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	appts, err := s.List(ctx)
	if err != nil || len(appts) != 0 {
		t.Fatalf("expected empty after Clear, got %d err=%v", len(appts), err)
	}
}

func TestStore_ConcurrentSavesKeepEveryRecord(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, kv.NewMemoryStore())

	const n = 40
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Save(ctx, form(fmt.Sprintf("client-%d", i), "15/12/2099", "10:00", model.ServiceHaircut))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	appts, _ := s.List(ctx)
	if len(appts) != n {
		t.Fatalf("lost update: expected %d records, got %d", n, len(appts))
	}
}

func TestStore_ConcurrentSaveIfAvailableAdmitsOne(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, kv.NewMemoryStore())

	const n = 25
	var wg sync.WaitGroup
	var mu sync.Mutex
	won, lost := 0, 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.SaveIfAvailable(ctx, form(fmt.Sprintf("client-%d", i), "15/12/2099", "10:00", model.ServiceHaircut))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won++
			case errors.Is(err, ErrSlotTaken):
				lost++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if won != 1 || lost != n-1 {
		t.Fatalf("expected 1 winner and %d conflicts, got %d/%d", n-1, won, lost)
	}
}

func TestStore_BackendFaults(t *testing.T) {
	ctx := context.Background()

	readFault := newTestStore(t, &faultyKV{Store: kv.NewMemoryStore(), failGet: true})
	if _, err := readFault.List(ctx); !errors.Is(err, ErrStorage) {
		t.Fatalf("List: expected ErrStorage, got %v", err)
	}
	if _, err := readFault.CheckAvailability(ctx, "15/12/2099", "10:00"); !errors.Is(err, ErrStorage) {
		t.Fatalf("CheckAvailability: expected ErrStorage, got %v", err)
	}
	if ok, err := readFault.Delete(ctx, "x"); ok || !errors.Is(err, ErrStorage) {
		t.Fatalf("Delete: expected false + ErrStorage, got %v %v", ok, err)
	}

	writeFault := newTestStore(t, &faultyKV{Store: kv.NewMemoryStore(), failSet: true})
	if _, err := writeFault.Save(ctx, form("Ana", "15/12/2099", "10:00", model.ServiceHaircut)); !errors.Is(err, ErrStorage) {
		t.Fatalf("Save: expected ErrStorage, got %v", err)
	}
	if _, err := writeFault.SaveIfAvailable(ctx, form("Ana", "15/12/2099", "10:00", model.ServiceHaircut)); !errors.Is(err, ErrStorage) {
		t.Fatalf("SaveIfAvailable: expected ErrStorage, got %v", err)
	}
}

func TestStore_CorruptPayload(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryStore()
	_ = backend.Set(ctx, DefaultSlot, "{not json")
	s := newTestStore(t, backend)

	_, err := s.List(ctx)
	if !errors.Is(err, ErrCorrupt) || !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrCorrupt wrapped in ErrStorage, got %v", err)
	}
	if _, err := s.Save(ctx, form("Ana", "15/12/2099", "10:00", model.ServiceHaircut)); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Save over corrupt slot should refuse, got %v", err)
	}
	raw, _, _ := backend.Get(ctx, DefaultSlot)
	if raw != "{not json" {
		t.Fatalf("corrupt payload must be left untouched, got %q", raw)
	}
}

func TestStore_ReadsEpochCreatedAt(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryStore()
	payload := `[{"id":"a","clientName":"Ana","date":"15/12/2099","time":"10:00","service":"haircut","createdAt":"1748779200000"}]`
	_ = backend.Set(ctx, "custom", payload)
	s := New(backend, WithSlot("custom"), WithLogger(quietLogger()))

	appts, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := time.UnixMilli(1748779200000).UTC()
	if len(appts) != 1 || !appts[0].CreatedAt.Equal(want) {
		t.Fatalf("expected createdAt %v, got %#v", want, appts)
	}
}
