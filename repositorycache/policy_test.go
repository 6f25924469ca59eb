package repositorycache

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-content-repository/cache"
)

type testWidget struct {
	id   int
	name string
}

func newTestPolicy(t *testing.T) (*DefaultPolicy[*testWidget], cache.CacheService) {
	t.Helper()
	svc, err := cache.NewCacheService(cache.DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	policy := NewDefaultPolicy(svc, Options[*testWidget]{
		IDOf: func(w *testWidget) int { return w.id },
		Clone: func(w *testWidget) *testWidget {
			c := *w
			return &c
		},
	})
	return policy, svc
}

func TestNamespace(t *testing.T) {
	if got := Namespace[*testWidget](); got != "test_widget" {
		t.Errorf("expected test_widget, got %q", got)
	}
	policy, _ := newTestPolicy(t)
	if got := policy.Key(5); got != "uRepo_test_widget_5" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestDefaultPolicy_GetReadsThrough(t *testing.T) {
	policy, _ := newTestPolicy(t)
	ctx := context.Background()

	calls := 0
	fetch := func(ctx context.Context, id int) (*testWidget, bool, error) {
		calls++
		return &testWidget{id: id, name: "first"}, true, nil
	}

	w, found, err := policy.Get(ctx, 1, fetch)
	if err != nil || !found {
		t.Fatalf("Get() found=%v err=%v", found, err)
	}
	w.name = "mutated"

	cached, found, err := policy.Get(ctx, 1, fetch)
	if err != nil || !found {
		t.Fatalf("Get() found=%v err=%v", found, err)
	}
	if calls != 1 {
		t.Errorf("expected one fetch, got %d", calls)
	}
	if cached.name != "first" {
		t.Errorf("cached entity must not share state with callers, got %q", cached.name)
	}
}

func TestDefaultPolicy_GetMissIsNotCached(t *testing.T) {
	policy, _ := newTestPolicy(t)
	ctx := context.Background()

	calls := 0
	fetch := func(ctx context.Context, id int) (*testWidget, bool, error) {
		calls++
		return nil, false, nil
	}
	for i := 0; i < 2; i++ {
		if _, found, err := policy.Get(ctx, 9, fetch); found || err != nil {
			t.Fatalf("expected miss, got found=%v err=%v", found, err)
		}
	}
	if calls != 2 {
		t.Errorf("expected misses to reach the fetch every time, got %d", calls)
	}
}

func TestDefaultPolicy_GetAll(t *testing.T) {
	policy, _ := newTestPolicy(t)
	ctx := context.Background()

	calls := 0
	fetch := func(ctx context.Context, ids []int) ([]*testWidget, error) {
		calls++
		out := make([]*testWidget, 0, len(ids))
		for _, id := range ids {
			out = append(out, &testWidget{id: id})
		}
		return out, nil
	}

	if _, err := policy.GetAll(ctx, []int{1, 2}, fetch); err != nil {
		t.Fatal(err)
	}
	got, err := policy.GetAll(ctx, []int{2, 1}, fetch)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("expected cached second read, got %d fetches", calls)
	}
	if len(got) != 2 || got[0].id != 2 || got[1].id != 1 {
		t.Errorf("expected ids in request order, got %+v", got)
	}

	if _, err := policy.GetAll(ctx, []int{1, 3}, fetch); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("expected partial hit to fetch, got %d fetches", calls)
	}
}

func TestDefaultPolicy_SaveInvalidates(t *testing.T) {
	policy, svc := newTestPolicy(t)
	ctx := context.Background()

	w := &testWidget{id: 4, name: "v1"}
	fetch := func(ctx context.Context, id int) (*testWidget, bool, error) {
		return &testWidget{id: id, name: w.name}, true, nil
	}
	lookup := func(ctx context.Context) (*testWidget, bool, error) {
		return &testWidget{id: 4, name: w.name}, true, nil
	}

	if _, _, err := policy.Get(ctx, 4, fetch); err != nil {
		t.Fatal(err)
	}
	if _, _, err := policy.Lookup(ctx, "GetByName", []any{"v1"}, lookup); err != nil {
		t.Fatal(err)
	}

	err := policy.Save(ctx, w, func(ctx context.Context, w *testWidget) error {
		w.name = "v2"
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := svc.Get(ctx, policy.Key(4)); ok {
		t.Error("expected entity key to be dropped on save")
	}
	if _, ok := svc.Get(ctx, "uRepo_test_widget::GetByName::v1"); ok {
		t.Error("expected lookup entries to be dropped on save")
	}

	got, _, _ := policy.Get(ctx, 4, fetch)
	if got.name != "v2" {
		t.Errorf("expected fresh read after save, got %q", got.name)
	}
}

func TestDefaultPolicy_FailedPersistStillInvalidates(t *testing.T) {
	policy, svc := newTestPolicy(t)
	ctx := context.Background()
	svc.Set(ctx, policy.Key(3), &testWidget{id: 3})

	boom := errors.New("boom")
	err := policy.Delete(ctx, &testWidget{id: 3}, func(ctx context.Context, w *testWidget) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, ok := svc.Get(ctx, policy.Key(3)); ok {
		t.Error("expected key to be dropped after failed delete")
	}
}

func TestDefaultPolicy_ClearAllKeepsOtherNamespaces(t *testing.T) {
	policy, svc := newTestPolicy(t)
	ctx := context.Background()

	svc.Set(ctx, policy.Key(1), &testWidget{id: 1})
	svc.Set(ctx, "uRepo_test_widget_group_1", "other")

	if err := policy.ClearAll(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := svc.Get(ctx, policy.Key(1)); ok {
		t.Error("expected entity cleared")
	}
	if _, ok := svc.Get(ctx, "uRepo_test_widget_group_1"); !ok {
		t.Error("expected other namespace kept")
	}
}

func TestNoCachePolicy_PassesThrough(t *testing.T) {
	var policy Policy[*testWidget] = NoCachePolicy[*testWidget]{}
	ctx := context.Background()

	calls := 0
	fetch := func(ctx context.Context, id int) (*testWidget, bool, error) {
		calls++
		return &testWidget{id: id}, true, nil
	}
	policy.Get(ctx, 1, fetch)
	policy.Get(ctx, 1, fetch)
	if calls != 2 {
		t.Errorf("expected every read to fetch, got %d", calls)
	}
}

func TestToSnake(t *testing.T) {
	cases := map[string]string{
		"Member":        "member",
		"MemberGroup":   "member_group",
		"ContentType":   "content_type",
		"HTTPServer":    "http_server",
		"Box[int]":      "box_int",
		"DataType2":     "data_type_2",
		"already_snake": "already_snake",
	}
	for in, want := range cases {
		if got := toSnake(in); got != want {
			t.Errorf("toSnake(%q) = %q, want %q", in, got, want)
		}
	}
}
