package runstore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/actionrun/internal/core"
)

// backends lists every RunStore implementation; each contract test runs
// against all of them.
func backends(t *testing.T) map[string]core.RunStore {
	t.Helper()

	lite, err := NewSQLite(MemoryDSN)
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = lite.Close() })

	return map[string]core.RunStore{
		"memory": NewMemory(),
		"sqlite": lite,
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			run, err := store.Create(ctx, "u1", core.NewRun{
				ActionType:     "notes:add",
				Source:         "dashboard",
				LeadID:         "lead-9",
				RequestPayload: map[string]any{"actionType": "notes:add"},
			})
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if run.ID == "" {
				t.Fatal("Create() must assign an id")
			}
			if run.Status != core.RunStatusPending {
				t.Errorf("Status = %q, want pending", run.Status)
			}
			if run.CreatedAt.IsZero() {
				t.Error("CreatedAt must be set")
			}
			if run.StartedAt != nil || run.CompletedAt != nil || run.Error != nil {
				t.Errorf("new run carries lifecycle fields: %+v", run)
			}

			got, err := store.Get(ctx, "u1", run.ID)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got.ActionType != "notes:add" || got.LeadID != "lead-9" || got.OwnerToken != "u1" {
				t.Errorf("Get() = %+v", got)
			}
			if !got.CreatedAt.Equal(run.CreatedAt) {
				t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, run.CreatedAt)
			}
		})
	}
}

func TestStore_UniqueIDs(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			seen := make(map[string]bool)
			for i := 0; i < 50; i++ {
				run, err := store.Create(ctx, "u1", core.NewRun{ActionType: "lead:tag"})
				if err != nil {
					t.Fatalf("Create() error = %v", err)
				}
				if seen[run.ID] {
					t.Fatalf("duplicate id %s", run.ID)
				}
				seen[run.ID] = true
			}
		})
	}
}

func TestStore_OwnerIsolation(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			run, err := store.Create(ctx, "u1", core.NewRun{ActionType: "notes:add"})
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			if _, err := store.Get(ctx, "u2", run.ID); !core.IsNotFound(err) {
				t.Errorf("Get() by other owner: err = %v, want not found", err)
			}
			if _, err := store.Update(ctx, "u2", run.ID, core.StartPatch(time.Now())); !core.IsNotFound(err) {
				t.Errorf("Update() by other owner: err = %v, want not found", err)
			}

			list, err := store.List(ctx, "u2")
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(list) != 0 {
				t.Errorf("List() for other owner returned %d runs", len(list))
			}

			got, _ := store.Get(ctx, "u1", run.ID)
			if got.Status != core.RunStatusPending {
				t.Errorf("other owner's update leaked: status = %s", got.Status)
			}
		})
	}
}

func TestStore_GetMissing(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(context.Background(), "u1", "nope")
			if !core.IsNotFound(err) {
				t.Fatalf("err = %v, want not found", err)
			}
		})
	}
}

func TestStore_UpdateLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			run, _ := store.Create(ctx, "u1", core.NewRun{ActionType: "notes:add", LeadID: "lead-9"})
			now := time.Now().UTC()

			started, err := store.Update(ctx, "u1", run.ID, core.StartPatch(now))
			if err != nil {
				t.Fatalf("start: %v", err)
			}
			if started.Status != core.RunStatusInProgress || started.StartedAt == nil {
				t.Fatalf("started = %+v", started)
			}

			done, err := store.Update(ctx, "u1", run.ID, core.CompletePatch(now, "done", map[string]any{"ok": true}))
			if err != nil {
				t.Fatalf("complete: %v", err)
			}
			if done.Status != core.RunStatusCompleted || done.CompletedAt == nil {
				t.Fatalf("done = %+v", done)
			}

			_, err = store.Update(ctx, "u1", run.ID, core.FailPatch(now, "late", nil, core.RunError{Code: "x"}))
			if !core.IsCategory(err, core.ErrCatState) {
				t.Fatalf("terminal run accepted a transition: err = %v", err)
			}

			got, _ := store.Get(ctx, "u1", run.ID)
			if got.Status != core.RunStatusCompleted || got.Result != "done" {
				t.Errorf("rejected update changed the record: %+v", got)
			}
			if got.ResponsePayload["ok"] != true {
				t.Errorf("ResponsePayload = %v", got.ResponsePayload)
			}
		})
	}
}

func TestStore_ListKeepsCreationOrder(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var ids []string
			for _, action := range []string{"a", "b", "c"} {
				run, _ := store.Create(ctx, "u1", core.NewRun{ActionType: action})
				ids = append(ids, run.ID)
			}
			_, _ = store.Create(ctx, "u2", core.NewRun{ActionType: "other"})

			list, err := store.List(ctx, "u1")
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(list) != 3 {
				t.Fatalf("List() returned %d runs, want 3", len(list))
			}
			for i, run := range list {
				if run.ID != ids[i] {
					t.Errorf("List()[%d] = %s, want %s", i, run.ID, ids[i])
				}
			}
		})
	}
}

func TestStore_ConcurrentResolutionHasOneWinner(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			run, _ := store.Create(ctx, "u1", core.NewRun{ActionType: "notes:add"})
			if _, err := store.Update(ctx, "u1", run.ID, core.StartPatch(time.Now())); err != nil {
				t.Fatalf("start: %v", err)
			}

			var wins atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					patch := core.CompletePatch(time.Now(), "ok", nil)
					if i%2 == 0 {
						patch = core.FailPatch(time.Now(), "failed", nil, core.RunError{Code: "x"})
					}
					if _, err := store.Update(ctx, "u1", run.ID, patch); err == nil {
						wins.Add(1)
					}
				}(i)
			}
			wg.Wait()

			if wins.Load() != 1 {
				t.Fatalf("%d terminal transitions recorded, want exactly 1", wins.Load())
			}
		})
	}
}

func TestMemory_ReadersNeverSeePartialRecords(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	var ids []string
	for i := 0; i < 20; i++ {
		run, _ := store.Create(ctx, "u1", core.NewRun{ActionType: "notes:add"})
		ids = append(ids, run.ID)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for _, id := range ids {
			now := time.Now()
			_, _ = store.Update(ctx, "u1", id, core.StartPatch(now))
			_, _ = store.Update(ctx, "u1", id, core.CompletePatch(now, "done", map[string]any{"ok": true}))
		}
		close(stop)
	}()

	var bad atomic.Int32
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				runs, _ := store.List(ctx, "u1")
				for _, run := range runs {
					switch run.Status {
					case core.RunStatusInProgress:
						if run.StartedAt == nil || run.CompletedAt != nil {
							bad.Add(1)
						}
					case core.RunStatusCompleted:
						if run.CompletedAt == nil || run.Result == "" || run.ResponsePayload == nil {
							bad.Add(1)
						}
					}
				}
			}
		}()
	}
	wg.Wait()

	if bad.Load() != 0 {
		t.Fatalf("observed %d partially applied records", bad.Load())
	}
}

func TestMemory_CreateCopiesPayload(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(WithIDGenerator(func() string { return "fixed" }))

	payload := map[string]any{"k": "v"}
	run, _ := store.Create(ctx, "u1", core.NewRun{ActionType: "a", RequestPayload: payload})
	payload["k"] = "changed"
	run.RequestPayload["k"] = "changed too"

	got, _ := store.Get(ctx, "u1", "fixed")
	if got.RequestPayload["k"] != "v" {
		t.Fatalf("stored payload was mutated through a caller reference: %v", got.RequestPayload)
	}
}
