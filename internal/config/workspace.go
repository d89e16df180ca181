package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"taskdeck/internal/models"
)

// Workspace holds the per-deployment task workspace definition: the default
// projects and tasks seeded for a brand-new identity, the canonical project
// display order, and the shorthand alias maps used by chat ingestion.
// It can be overridden with a YAML file (WORKSPACE_FILE); compiled-in
// defaults apply otherwise.
type Workspace struct {
	ProjectOrder []string         `yaml:"projectOrder"`
	SeedProjects []models.Project `yaml:"seedProjects"`
	SeedTasks    []models.Task    `yaml:"seedTasks"`

	// BackfillProjects are canonical projects introduced after launch; they
	// are upserted once into existing workspaces that predate them.
	BackfillProjects []string `yaml:"backfillProjects"`

	ProjectAlias map[string]string `yaml:"projectAliases"` // lowercased alias -> project id
	BucketAlias  map[string]string `yaml:"bucketAliases"`  // lowercased alias -> bucket id
	Delegates    map[string]string `yaml:"delegates"`      // chat sender id -> short delegate name
}

// DefaultWorkspace returns the built-in workspace definition
func DefaultWorkspace() *Workspace {
	return &Workspace{
		ProjectOrder: []string{
			"hc-admin", "hc-content", "hc-revenue", "portfolio",
			"life-admin", "personal-finance", "network", "georgetown", "friends",
		},
		SeedProjects: []models.Project{
			{ID: "hc-admin", Name: "Humble Admin"},
			{ID: "hc-content", Name: "HC Content"},
			{ID: "hc-revenue", Name: "HC Revenue"},
			{ID: "portfolio", Name: "Portfolio"},
			{ID: "life-admin", Name: "Life Admin"},
			{ID: "personal-finance", Name: "Personal Finance"},
			{ID: "network", Name: "Network"},
			{ID: "georgetown", Name: "Georgetown"},
			{ID: "friends", Name: "Friends"},
			{ID: "misc", Name: "Misc"},
		},
		SeedTasks: []models.Task{
			{ID: "t1", Title: "Send HC invoice", ProjectID: "hc-admin", Bucket: models.BucketToday, Priority: models.PriorityHigh},
			{ID: "t2", Title: "Draft newsletter", ProjectID: "hc-content", Bucket: models.BucketToday, Priority: models.PriorityMedium},
			{ID: "t3", Title: "Review revenue dashboard", ProjectID: "hc-revenue", Bucket: models.BucketTomorrow, Priority: models.PriorityHigh},
			{ID: "t4", Title: "Update portfolio case study", ProjectID: "portfolio", Bucket: models.BucketTomorrow, Starred: true},
			{ID: "t5", Title: "Review credit card statement", ProjectID: "personal-finance", Bucket: models.BucketSoon, Priority: models.PriorityMedium},
			{ID: "t6", Title: "Schedule dentist appointment", ProjectID: "life-admin", Bucket: models.BucketSoon},
			{ID: "t7", Title: "Georgetown alumni event", ProjectID: "georgetown", Bucket: models.BucketSomeday, Priority: models.PriorityLow},
			{ID: "t8", Title: "Plan dinner with Sarah", ProjectID: "friends", Bucket: models.BucketSoon},
		},
		BackfillProjects: []string{"network"},
		ProjectAlias: map[string]string{
			"humble admin":     "hc-admin",
			"hc admin":         "hc-admin",
			"hc content":       "hc-content",
			"hc revenue":       "hc-revenue",
			"portfolio":        "portfolio",
			"life admin":       "life-admin",
			"personal finance": "personal-finance",
			"network":          "network",
			"georgetown":       "georgetown",
			"friends":          "friends",
			"misc":             "misc",
		},
		BucketAlias: map[string]string{
			"inbox":     "inbox",
			"today":     "today",
			"tomorrow":  "tomorrow",
			"soon":      "soon",
			"this week": "soon",
			"someday":   "someday",
			"later":     "someday",
		},
		Delegates: map[string]string{},
	}
}

// LoadWorkspace loads a workspace definition from a YAML file, falling back
// to the compiled-in defaults for any section the file leaves empty.
func LoadWorkspace(filePath string) (*Workspace, error) {
	ws := DefaultWorkspace()
	if filePath == "" {
		return ws, nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace file: %w", err)
	}

	var loaded Workspace
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse workspace YAML: %w", err)
	}

	if len(loaded.ProjectOrder) > 0 {
		ws.ProjectOrder = loaded.ProjectOrder
	}
	if len(loaded.SeedProjects) > 0 {
		ws.SeedProjects = loaded.SeedProjects
	}
	if len(loaded.SeedTasks) > 0 {
		ws.SeedTasks = loaded.SeedTasks
	}
	if len(loaded.BackfillProjects) > 0 {
		ws.BackfillProjects = loaded.BackfillProjects
	}
	if len(loaded.ProjectAlias) > 0 {
		ws.ProjectAlias = loaded.ProjectAlias
	}
	if len(loaded.BucketAlias) > 0 {
		ws.BucketAlias = loaded.BucketAlias
	}
	if len(loaded.Delegates) > 0 {
		ws.Delegates = loaded.Delegates
	}

	return ws, nil
}

// ProjectRank returns the canonical display rank of a project id. Projects
// not present in the canonical order sort after all ranked ones, preserving
// store-provided relative order among themselves.
func (w *Workspace) ProjectRank(projectID string) int {
	for i, id := range w.ProjectOrder {
		if id == projectID {
			return i
		}
	}
	return len(w.ProjectOrder)
}
