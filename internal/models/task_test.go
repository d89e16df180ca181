package models

import (
	"reflect"
	"testing"
)

func strPtr(s string) *string          { return &s }
func boolPtr(b bool) *bool             { return &b }
func bucketPtr(b Bucket) *Bucket       { return &b }
func priorityPtr(p Priority) *Priority { return &p }

func TestTaskPatch_ApplyMergesOnlySuppliedFields(t *testing.T) {
	base := Task{
		ID:        "t1",
		Title:     "Original",
		ProjectID: "hc-admin",
		Bucket:    BucketToday,
		Priority:  PriorityMedium,
		Notes:     "keep me",
		Tags:      []string{"a"},
	}

	patch := TaskPatch{
		Title:  strPtr("Renamed"),
		Bucket: bucketPtr(BucketSoon),
	}
	got := patch.Apply(base, 1000)

	if got.Title != "Renamed" || got.Bucket != BucketSoon {
		t.Errorf("Patched fields not applied: %+v", got)
	}
	if got.ProjectID != "hc-admin" || got.Priority != PriorityMedium || got.Notes != "keep me" {
		t.Errorf("Omitted fields were clobbered: %+v", got)
	}
	if !reflect.DeepEqual(got.Tags, []string{"a"}) {
		t.Errorf("Tags were clobbered: %v", got.Tags)
	}
}

func TestTaskPatch_StarringIsSticky(t *testing.T) {
	base := Task{ID: "t1", Title: "Starrable", Bucket: BucketToday, Priority: PriorityLow}

	starred := TaskPatch{Starred: boolPtr(true)}.Apply(base, 5000)
	if !starred.Starred {
		t.Error("Star not set")
	}
	if starred.Priority != PriorityHigh {
		t.Errorf("Starring must force priority high, got %s", starred.Priority)
	}
	if starred.SortWeight != 5000 {
		t.Errorf("Starring must stamp sortWeight, got %d", starred.SortWeight)
	}

	unstarred := TaskPatch{Starred: boolPtr(false)}.Apply(starred, 9000)
	if unstarred.Starred {
		t.Error("Star not cleared")
	}
	if unstarred.Priority != PriorityHigh {
		t.Errorf("Unstarring must keep the elevated priority, got %s", unstarred.Priority)
	}
	if unstarred.SortWeight != 5000 {
		t.Errorf("Unstarring must not re-stamp sortWeight, got %d", unstarred.SortWeight)
	}
}

func TestTaskPatch_StarWinsOverExplicitPriority(t *testing.T) {
	base := Task{ID: "t1", Title: "Both", Bucket: BucketToday}

	// A patch carrying both fields still ends up high: the star rule is
	// cross-cutting.
	got := TaskPatch{
		Starred:  boolPtr(true),
		Priority: priorityPtr(PriorityLow),
	}.Apply(base, 1234)

	if got.Priority != PriorityHigh {
		t.Errorf("Star must override the explicit priority, got %s", got.Priority)
	}
}

func TestTaskPatch_EmptyBucketNormalizedToInbox(t *testing.T) {
	got := TaskPatch{}.Apply(Task{ID: "t1", Title: "No bucket"}, 0)
	if got.Bucket != BucketInbox {
		t.Errorf("Expected inbox fallback, got %q", got.Bucket)
	}
}

func TestBucketAndPriorityValidation(t *testing.T) {
	for _, b := range AgendaBuckets {
		if !b.IsValid() {
			t.Errorf("Bucket %q should be valid", b)
		}
	}
	if Bucket("next-month").IsValid() {
		t.Error("Unknown bucket accepted")
	}
	if !PriorityNone.IsValid() {
		t.Error("Empty priority should be valid")
	}
	if Priority("urgent").IsValid() {
		t.Error("Unknown priority accepted")
	}
}
