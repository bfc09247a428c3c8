package platform

import (
	"context"
	"errors"
	"testing"
	"time"

	"showrunner/internal/automation"
	"showrunner/pkg/logx"
)

type countingFetcher struct {
	mods     []automation.UserRef
	vips     []automation.UserRef
	modCalls int
	vipCalls int
	err      error
}

func (f *countingFetcher) ListModerators(context.Context) ([]automation.UserRef, error) {
	f.modCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.mods, nil
}

func (f *countingFetcher) ListVIPs(context.Context) ([]automation.UserRef, error) {
	f.vipCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vips, nil
}

func TestRolesCachesWithinTTL(t *testing.T) {
	t.Parallel()
	f := &countingFetcher{mods: []automation.UserRef{{ID: "m1"}}}
	r := NewRoles("owner", f, time.Minute, logx.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := r.IsModerator(ctx, "m1")
		if err != nil || !ok {
			t.Fatalf("IsModerator = %v, %v", ok, err)
		}
	}
	if f.modCalls != 1 {
		t.Fatalf("fetcher called %d times within ttl, want 1", f.modCalls)
	}

	if ok, _ := r.IsModerator(ctx, "stranger"); ok {
		t.Fatal("unknown user reported as moderator")
	}
}

func TestRolesInvalidateForcesRefetch(t *testing.T) {
	t.Parallel()
	f := &countingFetcher{vips: []automation.UserRef{{ID: "v1"}}}
	r := NewRoles("owner", f, time.Hour, logx.Nop())
	ctx := context.Background()

	if ok, _ := r.IsVIP(ctx, "v1"); !ok {
		t.Fatal("v1 should be a vip")
	}

	// Role change on the platform: v1 loses VIP.
	f.vips = nil
	if ok, _ := r.IsVIP(ctx, "v1"); !ok {
		t.Fatal("cached set should still say vip before invalidation")
	}

	r.InvalidateVIPs()
	if ok, _ := r.IsVIP(ctx, "v1"); ok {
		t.Fatal("invalidation must force a refetch")
	}
	if f.vipCalls != 2 {
		t.Fatalf("fetcher called %d times, want 2", f.vipCalls)
	}
}

func TestRolesPropagateFetchErrors(t *testing.T) {
	t.Parallel()
	f := &countingFetcher{err: errors.New("api down")}
	r := NewRoles("owner", f, time.Minute, logx.Nop())

	if _, err := r.IsModerator(context.Background(), "m1"); err == nil {
		t.Fatal("fetch failure must surface to the caller")
	}
}

func TestRolesWithoutFetcher(t *testing.T) {
	t.Parallel()
	r := NewRoles("owner", nil, time.Minute, logx.Nop())
	ok, err := r.IsModerator(context.Background(), "anyone")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("no fetcher means empty role sets")
	}
}
