package views

import (
	"testing"
	"time"

	"taskdeck/internal/config"
	"taskdeck/internal/models"
)

func TestIsVisible(t *testing.T) {
	task := models.Task{ID: "t1", ProjectID: "hc-admin", Priority: models.PriorityHigh, Starred: true}

	tests := []struct {
		name     string
		task     models.Task
		selected string
		filters  Filters
		want     bool
	}{
		{"no filters", task, "", Filters{}, true},
		{"completed never shows", models.Task{ID: "t1", Completed: true}, "", Filters{}, false},
		{"matching project selection", task, "hc-admin", Filters{}, true},
		{"other project selection", task, "friends", Filters{}, false},
		{"starred filter passes starred", task, "", Filters{Starred: true}, true},
		{"starred filter blocks unstarred", models.Task{ID: "t2"}, "", Filters{Starred: true}, false},
		{"priority filter intersects", task, "", Filters{Priorities: []models.Priority{models.PriorityHigh}}, true},
		{"priority filter blocks", task, "", Filters{Priorities: []models.Priority{models.PriorityLow}}, false},
		{
			"all filters stack",
			task,
			"hc-admin",
			Filters{Starred: true, Priorities: []models.Priority{models.PriorityHigh, models.PriorityMedium}},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsVisible(tt.task, tt.selected, tt.filters); got != tt.want {
				t.Errorf("IsVisible = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBoard_GroupsByBucketThenProjectOrder(t *testing.T) {
	projects := []models.Project{
		{ID: "hc-admin", Name: "Humble Admin"},
		{ID: "friends", Name: "Friends"},
	}
	tasks := []models.Task{
		{ID: "t1", Title: "Friends first in input", ProjectID: "friends", Bucket: models.BucketToday},
		{ID: "t2", Title: "Admin second in input", ProjectID: "hc-admin", Bucket: models.BucketToday},
		{ID: "t3", Title: "Someday task", ProjectID: "friends", Bucket: models.BucketSomeday},
		{ID: "t4", Title: "Done", ProjectID: "friends", Bucket: models.BucketToday, Completed: true},
		{ID: "t5", Title: "Inbox task never on board", ProjectID: "friends", Bucket: models.BucketInbox},
		{ID: "t6", Title: "Unknown project lane", ProjectID: "from-dana", Bucket: models.BucketToday},
	}

	columns := Board(tasks, projects, "", Filters{}, time.Now())

	if len(columns) != len(models.BoardBuckets) {
		t.Fatalf("Expected %d columns, got %d", len(models.BoardBuckets), len(columns))
	}
	if columns[0].Bucket != models.BucketToday {
		t.Fatalf("First column should be today, got %s", columns[0].Bucket)
	}

	today := columns[0]
	if today.Count != 3 {
		t.Errorf("Today column count = %d, want 3 (unknown-project tasks count, completed and inbox do not)", today.Count)
	}
	if len(today.Groups) != 2 {
		t.Fatalf("Today column groups = %d, want 2", len(today.Groups))
	}
	// Groups follow the supplied project list order, not input order
	if today.Groups[0].Project.ID != "hc-admin" || today.Groups[1].Project.ID != "friends" {
		t.Errorf("Group order = [%s %s], want [hc-admin friends]",
			today.Groups[0].Project.ID, today.Groups[1].Project.ID)
	}

	// Empty columns still appear, with no groups
	for _, col := range columns {
		if col.Bucket == models.BucketTomorrow && len(col.Groups) != 0 {
			t.Errorf("Tomorrow column should be empty, has %d groups", len(col.Groups))
		}
	}
}

func TestAgenda_SectionsAndOrdering(t *testing.T) {
	ws := config.DefaultWorkspace()
	tasks := []models.Task{
		{ID: "t1", Title: "Friends unstarred", ProjectID: "friends", Bucket: models.BucketToday},
		{ID: "t2", Title: "Admin unstarred", ProjectID: "hc-admin", Bucket: models.BucketToday},
		{ID: "t3", Title: "Friends starred", ProjectID: "friends", Bucket: models.BucketToday, Starred: true},
		{ID: "t4", Title: "Inbox capture", ProjectID: "unassigned", Bucket: models.BucketInbox},
		{ID: "t5", Title: "Done", ProjectID: "friends", Bucket: models.BucketToday, Completed: true},
	}

	sections := Agenda(tasks, "", Filters{}, ws.ProjectRank, time.Now())

	if len(sections) != 2 {
		t.Fatalf("Expected 2 non-empty sections, got %d", len(sections))
	}
	// Inbox leads the agenda
	if sections[0].Bucket != models.BucketInbox {
		t.Errorf("First section = %s, want inbox", sections[0].Bucket)
	}

	today := sections[1]
	if today.Bucket != models.BucketToday {
		t.Fatalf("Second section = %s, want today", today.Bucket)
	}
	if len(today.Tasks) != 3 {
		t.Fatalf("Today section has %d tasks, want 3", len(today.Tasks))
	}
	// Starred first even from a later-ranked project, then canonical rank
	if today.Tasks[0].ID != "t3" {
		t.Errorf("First today task = %s, want the starred t3", today.Tasks[0].ID)
	}
	if today.Tasks[1].ID != "t2" || today.Tasks[2].ID != "t1" {
		t.Errorf("Rank order off: got [%s %s], want [t2 t1]", today.Tasks[1].ID, today.Tasks[2].ID)
	}
}

func TestAgenda_UnrankedProjectsSortLast(t *testing.T) {
	ws := config.DefaultWorkspace()
	tasks := []models.Task{
		{ID: "t1", Title: "Delegate capture", ProjectID: "from-dana", Bucket: models.BucketToday},
		{ID: "t2", Title: "Ranked", ProjectID: "georgetown", Bucket: models.BucketToday},
	}

	sections := Agenda(tasks, "", Filters{}, ws.ProjectRank, time.Now())
	if len(sections) != 1 {
		t.Fatalf("Expected 1 section, got %d", len(sections))
	}
	if sections[0].Tasks[0].ID != "t2" || sections[0].Tasks[1].ID != "t1" {
		t.Errorf("Unranked project should sort last, got [%s %s]",
			sections[0].Tasks[0].ID, sections[0].Tasks[1].ID)
	}
}

func TestBoard_MarksOverdueTasks(t *testing.T) {
	now := time.Date(2026, 3, 15, 9, 0, 0, 0, time.Local)
	projects := []models.Project{{ID: "friends", Name: "Friends"}}
	tasks := []models.Task{
		{ID: "late", ProjectID: "friends", Bucket: models.BucketToday, DueDate: "2026-03-14"},
		{ID: "ontime", ProjectID: "friends", Bucket: models.BucketToday, DueDate: "2026-03-16"},
	}

	columns := Board(tasks, projects, "", Filters{}, now)
	got := map[string]bool{}
	for _, tv := range columns[0].Groups[0].Tasks {
		got[tv.ID] = tv.Overdue
	}
	if !got["late"] {
		t.Error("Task due yesterday should be flagged overdue")
	}
	if got["ontime"] {
		t.Error("Task due tomorrow should not be flagged overdue")
	}
}

func TestAgenda_MarksOverdueTasks(t *testing.T) {
	now := time.Date(2026, 3, 15, 9, 0, 0, 0, time.Local)
	ws := config.DefaultWorkspace()
	tasks := []models.Task{
		{ID: "late", ProjectID: "friends", Bucket: models.BucketToday, DueDate: "2026-03-10"},
	}

	sections := Agenda(tasks, "", Filters{}, ws.ProjectRank, now)
	if len(sections) != 1 || len(sections[0].Tasks) != 1 {
		t.Fatalf("Expected a single section with one task, got %+v", sections)
	}
	if !sections[0].Tasks[0].Overdue {
		t.Error("Task past its due date should carry the overdue flag")
	}
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, time.Local)

	tests := []struct {
		name    string
		dueDate string
		want    bool
	}{
		{"no due date", "", false},
		{"yesterday", "2026-03-14", true},
		{"today is not overdue", "2026-03-15", false},
		{"tomorrow", "2026-03-16", false},
		{"malformed date", "soonish", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := models.Task{DueDate: tt.dueDate}
			if got := IsOverdue(task, now); got != tt.want {
				t.Errorf("IsOverdue(%q) = %v, want %v", tt.dueDate, got, tt.want)
			}
		})
	}
}
