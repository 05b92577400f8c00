package chain

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestParallelJoinsByBranchName(t *testing.T) {
	topic := NewLabel[string]("topic")
	pro := NewLabel[string]("pro")
	con := NewLabel[string]("con")
	bad := NewLabel[string]("bad")
	views := NewLabel[map[string]string]("views")

	c := mustBuild(t, NewBuilder(DefaultConfig()).Then(
		Prompt("topic", topic, Text()).User("topic?"),
		Parallel(views).
			Branch("pro", Prompt("pro", pro, Text()).User("argue for ${topic}")).
			Branch("con", Prompt("con", con, Text()).User("argue against ${topic}")).
			Branch("bad", Prompt("bad", bad, Text()).User("explode")),
	))
	caller := (&scriptedCaller{}).
		when("topic?", "tabs").
		when("argue for tabs", "yes").
		when("argue against tabs", "no").
		fail("explode", errors.New("nope"))

	res := c.Run(context.Background(), caller)

	got, err := Get(res, views)
	if err != nil {
		t.Fatalf("views: %v", err)
	}
	if !reflect.DeepEqual(got, map[string]string{"pro": "yes", "con": "no"}) {
		t.Fatalf("got %v", got)
	}
	if !errors.Is(res.Error(bad), ErrTransport) {
		t.Fatalf("expected failure recorded for bad branch")
	}
	if res.Has(pro) || res.Has(con) {
		t.Fatalf("branch results leaked into parent")
	}
	if len(res.History()) != 2 {
		t.Fatalf("branch history leaked into parent: %d", len(res.History()))
	}
}

func TestParallelBuildErrors(t *testing.T) {
	a := NewLabel[string]("a")
	n := NewLabel[int]("n")
	views := NewLabel[map[string]string]("views")

	if _, err := Parallel(views).Build(); err == nil {
		t.Fatalf("expected error for no branches")
	}
	dup := Parallel(views).
		Branch("x", Prompt("a", a, Text()).User("1")).
		Branch("x", Prompt("a", a, Text()).User("2"))
	if _, err := dup.Build(); err == nil {
		t.Fatalf("expected duplicate branch error")
	}
	mismatch := Parallel(views).Branch("n", Prompt("n", n, JSON[int]()).User("1"))
	if _, err := mismatch.Build(); err == nil {
		t.Fatalf("expected type mismatch error")
	}
}

func TestParallelBranchOrder(t *testing.T) {
	a := NewLabel[string]("a")
	b := NewLabel[string]("b")
	views := NewLabel[map[string]string]("views")
	st, err := Parallel(views).Branch("z", Prompt("a", a, Text()).User("1")).Branch("y", Prompt("b", b, Text()).User("2")).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := st.(*ParallelStep[string]).Branches(); !reflect.DeepEqual(got, []string{"z", "y"}) {
		t.Fatalf("got %v", got)
	}
}
