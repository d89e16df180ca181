package models

// Bucket is the coarse temporal category a task lives in
type Bucket string

const (
	BucketInbox    Bucket = "inbox"
	BucketToday    Bucket = "today"
	BucketTomorrow Bucket = "tomorrow"
	BucketSoon     Bucket = "soon"    // "This Week" in the UI
	BucketSomeday  Bucket = "someday" // "Later" in the UI
)

// BoardBuckets is the fixed column order for the kanban board (inbox is agenda-only)
var BoardBuckets = []Bucket{BucketToday, BucketTomorrow, BucketSoon, BucketSomeday}

// AgendaBuckets is the fixed section order for the agenda view
var AgendaBuckets = []Bucket{BucketInbox, BucketToday, BucketTomorrow, BucketSoon, BucketSomeday}

// IsValid reports whether b is one of the known buckets
func (b Bucket) IsValid() bool {
	switch b {
	case BucketInbox, BucketToday, BucketTomorrow, BucketSoon, BucketSomeday:
		return true
	}
	return false
}

// Priority is an optional task priority. The empty string means "no priority".
type Priority string

const (
	PriorityNone   Priority = ""
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// IsValid reports whether p is a known priority (including "none")
func (p Priority) IsValid() bool {
	switch p {
	case PriorityNone, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Task is a single task document. Tasks live under exactly one owner's
// collection; ID is unique within it and never changes after creation.
type Task struct {
	ID         string   `bson:"id" json:"id" yaml:"id"`
	Title      string   `bson:"title" json:"title" yaml:"title"`
	ProjectID  string   `bson:"projectId" json:"projectId" yaml:"projectId"` // empty = unassigned
	Bucket     Bucket   `bson:"bucket" json:"bucket" yaml:"bucket"`
	Priority   Priority `bson:"priority" json:"priority" yaml:"priority"`
	Notes      string   `bson:"notes" json:"notes" yaml:"notes"`
	Tags       []string `bson:"tags" json:"tags" yaml:"tags"`
	Starred    bool     `bson:"starred" json:"starred" yaml:"starred"`
	SortWeight int64    `bson:"sortWeight" json:"sortWeight" yaml:"sortWeight"` // stamped when starred, keeps the task pinned
	Completed  bool     `bson:"completed" json:"completed" yaml:"completed"`
	DueDate    string   `bson:"dueDate,omitempty" json:"dueDate,omitempty" yaml:"dueDate,omitempty"` // YYYY-MM-DD, optional
	CreatedAt  int64    `bson:"createdAt" json:"createdAt" yaml:"-"`                                 // unix millis
}

// TaskPatch carries the mutable fields of a task update. Pointer fields
// distinguish "not supplied" from zero values so partial updates merge
// over the last-known record instead of clearing it.
type TaskPatch struct {
	Title      *string   `json:"title,omitempty"`
	ProjectID  *string   `json:"projectId,omitempty"`
	Bucket     *Bucket   `json:"bucket,omitempty"`
	Priority   *Priority `json:"priority,omitempty"`
	Notes      *string   `json:"notes,omitempty"`
	Tags       *[]string `json:"tags,omitempty"`
	Starred    *bool     `json:"starred,omitempty"`
	SortWeight *int64    `json:"sortWeight,omitempty"`
	Completed  *bool     `json:"completed,omitempty"`
	DueDate    *string   `json:"dueDate,omitempty"`
}

// Apply merges the patch over a full task record and returns the merged copy.
// Starring is cross-cutting: starred=true always forces priority=high and
// stamps sortWeight so the task stays pinned, while starred=false only clears
// the star; the elevated priority sticks.
func (p TaskPatch) Apply(t Task, nowMillis int64) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.ProjectID != nil {
		t.ProjectID = *p.ProjectID
	}
	if p.Bucket != nil {
		t.Bucket = *p.Bucket
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.Tags != nil {
		t.Tags = *p.Tags
	}
	if p.SortWeight != nil {
		t.SortWeight = *p.SortWeight
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Starred != nil {
		t.Starred = *p.Starred
		if *p.Starred {
			t.Priority = PriorityHigh
			t.SortWeight = nowMillis
		}
	}
	if t.Bucket == "" {
		t.Bucket = BucketInbox
	}
	return t
}
