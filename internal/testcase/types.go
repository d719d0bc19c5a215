package testcase

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"testrig/internal/reporter"
	"testrig/internal/resource"
)

// TestType is a bitmask of test categories. A case runs when its mask and
// the list's run type share at least one bit.
type TestType int

const (
	TypeUnit       TestType = 1
	TypeSanity     TestType = 2
	TypeFeature    TestType = 4
	TypeRegression TestType = 8
	TypeSystem     TestType = 16
	TypeAll        TestType = 255
)

var typeNames = []struct {
	t    TestType
	name string
}{
	{TypeUnit, "unit"},
	{TypeSanity, "sanity"},
	{TypeFeature, "feature"},
	{TypeRegression, "regression"},
	{TypeSystem, "system"},
}

func (t TestType) String() string {
	if t == TypeAll {
		return "all"
	}
	var parts []string
	for _, tn := range typeNames {
		if t&tn.t != 0 {
			parts = append(parts, tn.name)
		}
	}
	if len(parts) == 0 {
		return strconv.Itoa(int(t))
	}
	return strings.Join(parts, "|")
}

// ParseTestType accepts a number or names joined by "|" or ",", for example
// "sanity|regression".
func ParseTestType(s string) (TestType, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return TestType(n), nil
	}
	var t TestType
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "all" {
			t |= TypeAll
			continue
		}
		found := false
		for _, tn := range typeNames {
			if tn.name == part {
				t |= tn.t
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown test type %q", part)
		}
	}
	return t, nil
}

// UnmarshalJSON accepts either a number or a type expression string.
func (t *TestType) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*t = TestType(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("test type must be a number or string: %w", err)
	}
	v, err := ParseTestType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// MarshalJSON writes the mask as a number.
func (t TestType) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(t))
}

// Meta describes a case to the runner. It is supplied when the case is
// registered and never changes afterwards.
type Meta struct {
	Name        string
	Description string
	Priority    int
	Type        TestType
	FeatureName string
	TestcaseID  string

	// PreTests names cases that must have passed earlier in the run.
	PreTests []string

	// SkipIfHighPriorityFailed skips the case when any case with a lower
	// priority number has failed.
	SkipIfHighPriorityFailed bool
}

// Case is a runnable test. CollectResource picks devices from the pool,
// Setup and Test do the work, Cleanup always runs afterwards.
type Case interface {
	CollectResource(pool *resource.Pool) error
	Setup(ctx context.Context) error
	Test(ctx context.Context) error
	Cleanup(ctx context.Context) error
}

// Configurable is implemented by cases that read a settings file. Settings
// returns a pointer to the settings struct, pre-filled with defaults.
type Configurable interface {
	Settings() any
}

// Factory creates a case instance bound to the run's reporter.
type Factory func(rep *reporter.Reporter) Case
