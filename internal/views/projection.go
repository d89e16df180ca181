// Package views derives the board and agenda presentations from raw task and
// project state. Everything here is a pure function over its inputs.
package views

import (
	"sort"
	"time"

	"taskdeck/internal/models"
)

// Filters narrows the visible task set. Zero value = no filtering.
// Filters are client-local and never persisted.
type Filters struct {
	Starred    bool
	Priorities []models.Priority
}

func (f Filters) allowsPriority(p models.Priority) bool {
	if len(f.Priorities) == 0 {
		return true
	}
	for _, fp := range f.Priorities {
		if fp == p {
			return true
		}
	}
	return false
}

// IsVisible is the single visibility predicate shared by both views:
// completed tasks never show, then project selection and filters intersect.
func IsVisible(t models.Task, selectedProjectID string, f Filters) bool {
	if t.Completed {
		return false
	}
	if selectedProjectID != "" && t.ProjectID != selectedProjectID {
		return false
	}
	if f.Starred && !t.Starred {
		return false
	}
	return f.allowsPriority(t.Priority)
}

// Visible filters tasks down to the visible set, preserving input order
func Visible(tasks []models.Task, selectedProjectID string, f Filters) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if IsVisible(t, selectedProjectID, f) {
			out = append(out, t)
		}
	}
	return out
}

// TaskView is a task as rendered in a view, with derived fields attached
type TaskView struct {
	models.Task
	Overdue bool `json:"overdue"`
}

func toView(t models.Task, now time.Time) TaskView {
	return TaskView{Task: t, Overdue: IsOverdue(t, now)}
}

// ProjectGroup is one project's tasks within a board column
type ProjectGroup struct {
	Project models.Project `json:"project"`
	Tasks   []TaskView     `json:"tasks"`
}

// BoardColumn is one bucket column on the kanban board
type BoardColumn struct {
	Bucket models.Bucket  `json:"bucket"`
	Count  int            `json:"count"`
	Groups []ProjectGroup `json:"groups"`
}

// Board projects visible tasks into kanban columns: a fixed bucket order
// (inbox excluded), grouped by project following the supplied project list
// order, insertion order preserved within each group. Tasks whose project is
// not in the list (sentinels, deleted projects) are not shown on the board:
// only known project lanes are rendered. Count still covers every visible
// task in the bucket, rendered or not.
func Board(tasks []models.Task, projects []models.Project, selectedProjectID string, f Filters, now time.Time) []BoardColumn {
	visible := Visible(tasks, selectedProjectID, f)

	columns := make([]BoardColumn, 0, len(models.BoardBuckets))
	for _, bucket := range models.BoardBuckets {
		col := BoardColumn{Bucket: bucket, Groups: []ProjectGroup{}}
		for _, t := range visible {
			if t.Bucket == bucket {
				col.Count++
			}
		}
		for _, proj := range projects {
			var group []TaskView
			for _, t := range visible {
				if t.Bucket == bucket && t.ProjectID == proj.ID {
					group = append(group, toView(t, now))
				}
			}
			if len(group) > 0 {
				col.Groups = append(col.Groups, ProjectGroup{Project: proj, Tasks: group})
			}
		}
		columns = append(columns, col)
	}
	return columns
}

// AgendaSection is one bucket's task list in the agenda view
type AgendaSection struct {
	Bucket models.Bucket `json:"bucket"`
	Tasks  []TaskView    `json:"tasks"`
}

// Agenda projects visible tasks into bucket sections (inbox included) and
// sorts each section starred-first, then by canonical project rank. Unranked
// projects sort after all ranked ones in encounter order. Empty sections are
// omitted.
func Agenda(tasks []models.Task, selectedProjectID string, f Filters, projectRank func(string) int, now time.Time) []AgendaSection {
	visible := Visible(tasks, selectedProjectID, f)

	sections := make([]AgendaSection, 0, len(models.AgendaBuckets))
	for _, bucket := range models.AgendaBuckets {
		var bucketTasks []models.Task
		for _, t := range visible {
			if t.Bucket == bucket {
				bucketTasks = append(bucketTasks, t)
			}
		}
		if len(bucketTasks) == 0 {
			continue
		}
		sort.SliceStable(bucketTasks, func(i, j int) bool {
			if bucketTasks[i].Starred != bucketTasks[j].Starred {
				return bucketTasks[i].Starred
			}
			return projectRank(bucketTasks[i].ProjectID) < projectRank(bucketTasks[j].ProjectID)
		})
		section := AgendaSection{Bucket: bucket, Tasks: make([]TaskView, 0, len(bucketTasks))}
		for _, t := range bucketTasks {
			section.Tasks = append(section.Tasks, toView(t, now))
		}
		sections = append(sections, section)
	}
	return sections
}

// IsOverdue reports whether a task's due date falls before the start of the
// current calendar day, local time. Tasks without a due date are never overdue.
func IsOverdue(t models.Task, now time.Time) bool {
	if t.DueDate == "" {
		return false
	}
	due, err := time.ParseInLocation("2006-01-02", t.DueDate, now.Location())
	if err != nil {
		return false
	}
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return due.Before(startOfToday)
}
