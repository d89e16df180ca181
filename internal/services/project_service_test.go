package services

import (
	"context"
	"testing"
	"time"

	"taskdeck/internal/models"
)

func TestProjectService_AddAndRename(t *testing.T) {
	_, store, sess := ownerSession(t)
	svc := NewProjectService(store, nil)

	project, err := svc.AddProject(context.Background(), sess, "  Side Quest  ")
	if err != nil {
		t.Fatalf("AddProject failed: %v", err)
	}
	if project.Name != "Side Quest" {
		t.Errorf("Name not trimmed: %q", project.Name)
	}
	eventually(t, 2*time.Second, func() bool {
		_, ok := sess.ProjectByID(project.ID)
		return ok
	}, "new project never arrived")

	if err := svc.RenameProject(context.Background(), sess, project.ID, "Main Quest"); err != nil {
		t.Fatalf("RenameProject failed: %v", err)
	}
	eventually(t, 2*time.Second, func() bool {
		got, ok := sess.ProjectByID(project.ID)
		return ok && got.Name == "Main Quest"
	}, "rename never applied")

	if _, err := svc.AddProject(context.Background(), sess, "   "); err != ErrEmptyName {
		t.Errorf("Expected ErrEmptyName, got %v", err)
	}
	if err := svc.RenameProject(context.Background(), sess, "no-such-id", "Whatever"); err != nil {
		t.Errorf("Unknown id rename must be a no-op, got %v", err)
	}
}

func TestProjectService_DeleteCascadesToTasks(t *testing.T) {
	_, store, sess := ownerSession(t)
	projects := NewProjectService(store, nil)
	tasks := NewTaskService(store, nil)

	project, err := projects.AddProject(context.Background(), sess, "Doomed")
	if err != nil {
		t.Fatalf("AddProject failed: %v", err)
	}
	eventually(t, 2*time.Second, func() bool {
		_, ok := sess.ProjectByID(project.ID)
		return ok
	}, "project never arrived")

	inDoomed, err := tasks.AddTask(context.Background(), sess, "Dies with project", project.ID, models.BucketToday)
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	survivor, err := tasks.AddTask(context.Background(), sess, "Survives", "", models.BucketToday)
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	eventually(t, 2*time.Second, func() bool {
		_, a := sess.TaskByID(inDoomed.ID)
		_, b := sess.TaskByID(survivor.ID)
		return a && b
	}, "tasks never arrived")

	sess.SelectProject(project.ID)

	if err := projects.DeleteProject(context.Background(), sess, project.ID); err != nil {
		t.Fatalf("DeleteProject failed: %v", err)
	}

	eventually(t, 2*time.Second, func() bool {
		_, gone := sess.ProjectByID(project.ID)
		_, child := sess.TaskByID(inDoomed.ID)
		return !gone && !child
	}, "cascade delete never applied")

	if _, ok := sess.TaskByID(survivor.ID); !ok {
		t.Error("Cascade delete removed an unrelated task")
	}
	if sess.SelectedProject() != "" {
		t.Errorf("Deleting the selected project must clear the selection, got %q", sess.SelectedProject())
	}
}
