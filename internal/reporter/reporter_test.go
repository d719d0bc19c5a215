package reporter

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
}

func TestStepGroupsRestoreCursor(t *testing.T) {
	r := New()
	c := r.AddTest("case")
	start := r.Current()
	require.Same(t, c.Node(), start)

	for depth := 1; depth <= 4; depth++ {
		for i := 0; i < depth; i++ {
			r.AddStepGroup("group")
		}
		for i := 0; i < depth; i++ {
			r.EndStepGroup()
		}
		assert.Same(t, start, r.Current(), "depth %d", depth)
	}
}

func TestUnbalancedEndsStopAtRoot(t *testing.T) {
	r := New()
	r.EndStepGroup()
	r.EndTest()
	r.EndList()
	assert.Same(t, r.Root(), r.Current())

	r.AddStepGroup("g")
	r.EndStepGroup()
	r.EndStepGroup()
	assert.Same(t, r.Root(), r.Current())
}

func TestScopeEndClosesNestedScopes(t *testing.T) {
	r := New()
	l := r.AddList("list")
	c := r.AddTest("case")
	r.AddStepGroup("outer")
	r.AddStepGroup("inner") // never ended

	c.End()
	assert.Same(t, l.Node(), r.Current())

	// ending twice is harmless
	c.End()
	assert.Same(t, l.Node(), r.Current())

	l.End()
	assert.Same(t, r.Root(), r.Current())
}

func TestScopeEndAfterEnclosingScopeIsNoop(t *testing.T) {
	r := New()
	outer := r.AddStepGroup("outer")
	inner := r.AddStepGroup("inner")

	outer.End()
	require.Same(t, r.Root(), r.Current())

	inner.End()
	assert.Same(t, r.Root(), r.Current())
}

func TestEndTestRecoversFromOpenGroups(t *testing.T) {
	r := New()
	r.AddList("list")
	list := r.Current()
	r.AddTest("case")
	r.AddStepGroup("TEST")
	r.AddStepGroup("login")
	r.Add(StatusPass, "username", "")

	r.EndTest()
	assert.Same(t, list, r.Current())

	r.EndList()
	assert.Same(t, r.Root(), r.Current())
}

func TestNestedListsEndInOrder(t *testing.T) {
	r := New()
	r.AddList("outer")
	outer := r.Current()
	r.AddList("inner")

	r.EndList()
	assert.Same(t, outer, r.Current())
	r.EndList()
	assert.Same(t, r.Root(), r.Current())
}

func TestChildrenOfCasesAreSteps(t *testing.T) {
	r := New()
	r.AddTest("case")
	s := r.AddList("not really a list")

	assert.Equal(t, NodeStep, s.Node().Type)
}

func TestStatusIsSticky(t *testing.T) {
	r := New()
	r.AddTest("case")
	g := r.AddStepGroup("group")
	r.Add(StatusFail, "broken", "")

	for _, s := range []Status{StatusPass, StatusInfo, StatusPass} {
		r.Add(s, "later", "")
	}
	assert.Equal(t, StatusFail, g.Node().Status)
	assert.Equal(t, StatusFail, g.Node().Parent().Status)
}

func TestPassIsNotDowngradedByInfo(t *testing.T) {
	r := New()
	c := r.AddTest("case")
	r.Add(StatusPass, "ok", "")
	r.Add(StatusInfo, "note", "")

	assert.Equal(t, StatusPass, c.Node().Status)
}

func TestFailurePropagatesToCaseAndList(t *testing.T) {
	r := New()
	l := r.AddList("list")
	c := r.AddTest("case")
	r.AddStepGroup("a")
	r.AddStepGroup("b")
	r.AddStepGroup("c")
	r.Add(StatusFail, "deep", "")

	assert.Equal(t, StatusFail, c.Node().Status)
	assert.Equal(t, StatusFail, l.Node().Status)
	assert.Equal(t, StatusInfo, r.Root().Status, "root never takes a status")
}

func TestSecondFailureKeepsFirstSeverity(t *testing.T) {
	r := New()
	c := r.AddTest("case")
	r.Add(StatusException, "boom", "")
	r.Add(StatusFail, "then fail", "")

	assert.Equal(t, StatusException, c.Node().Status)
}

func TestStats(t *testing.T) {
	empty := New()
	assert.Equal(t, Stats{}, empty.CaseStats())
	assert.Equal(t, Stats{}, empty.LeafStats())

	r := New()
	r.AddTest("case")
	r.Add(StatusPass, "one", "")
	r.Add(StatusFail, "two", "")
	r.EndTest()

	assert.Equal(t, Stats{Pass: 1, Fail: 1}, r.LeafStats())
	assert.Equal(t, Stats{Fail: 1}, r.CaseStats())
}

func TestStatsAcrossLists(t *testing.T) {
	r := New()
	r.AddList("list")
	r.AddTest("a")
	r.Add(StatusPass, "p", "")
	r.Add(StatusWarning, "w", "")
	r.EndTest()
	r.AddList("sub")
	r.AddTest("b")
	r.Add(StatusError, "e", "")
	r.EndTest()
	r.AddTest("c")
	r.Add(StatusStop, "s", "")
	r.EndTest()
	r.EndList()
	r.EndList()

	cs := r.CaseStats()
	// case a is WARNING: PASS was overwritten by the later warning
	assert.Equal(t, Stats{Warning: 1, Error: 1}, cs)
	assert.Equal(t, 2, cs.Total())
	assert.True(t, cs.Failed())

	assert.Equal(t, Stats{Pass: 1, Warning: 1, Error: 1}, r.LeafStats())
}

func TestSearchResult(t *testing.T) {
	r := New()
	r.AddList("list")
	r.AddTest("login")
	r.Add(StatusPass, "login", "a step with the same header")
	r.EndTest()
	r.AddTest("logout")
	r.Add(StatusFail, "x", "")
	r.EndTest()

	s, ok := r.SearchResult("logout")
	require.True(t, ok)
	assert.Equal(t, StatusFail, s)

	s, ok = r.SearchResult("login")
	require.True(t, ok)
	assert.Equal(t, StatusPass, s)

	_, ok = r.SearchResult("x")
	assert.False(t, ok, "steps are not searched")
}

func TestEventGroupConcurrentWriters(t *testing.T) {
	r := New()
	r.AddTest("case")
	g := r.AddEventGroup("monitor")
	cursor := r.Current()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				g.Add(StatusPass, "tick", "")
			}
		}()
	}
	for j := 0; j < 25; j++ {
		r.Add(StatusPass, "body", "")
	}
	wg.Wait()

	assert.Same(t, cursor, r.Current())
	assert.Len(t, g.Node().Children, 200)
	assert.Equal(t, Stats{Pass: 225}, r.LeafStats())
}

func TestCaseLoggerReceivesNarration(t *testing.T) {
	var main, perCase bytes.Buffer
	r := New(WithLogger(slog.New(slog.NewTextHandler(&main, nil))))

	r.AddTest("first")
	r.SetCaseLogger(slog.New(slog.NewTextHandler(&perCase, nil)))
	r.Add(StatusPass, "inside case", "details")
	r.SetCaseLogger(nil)
	r.Add(StatusPass, "outside case", "")

	assert.Contains(t, perCase.String(), "inside case")
	assert.Contains(t, perCase.String(), "details")
	assert.NotContains(t, perCase.String(), "outside case")
	assert.Contains(t, main.String(), "outside case")
	assert.Contains(t, main.String(), "[Test Case] first")
}

func TestSnapshotIsIndependent(t *testing.T) {
	r := New()
	r.AddTest("case")
	snap := r.Snapshot()
	r.Add(StatusFail, "later", "")

	require.Len(t, snap.Children, 1)
	assert.Empty(t, snap.Children[0].Children)
	assert.Equal(t, StatusInfo, snap.Children[0].Status)
	assert.Same(t, snap, snap.Children[0].Parent())
}

func TestStatusNames(t *testing.T) {
	for _, s := range []Status{StatusInfo, StatusPass, StatusFail, StatusStop, StatusException, StatusWarning, StatusError} {
		parsed, err := ParseStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	_, err := ParseStatus("meh")
	assert.Error(t, err)
	assert.Equal(t, "STATUS(99)", Status(99).String())
	assert.Equal(t, "TestList", NodeTestList.String())
}
