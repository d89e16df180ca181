package services

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	"taskdeck/internal/config"
	"taskdeck/internal/models"
)

// ErrNoTask is returned when a chat message contains no task title after
// mention and tag stripping.
var ErrNoTask = errors.New("no task found in message")

// mentionPattern matches bot mention tokens like <@U0123ABC>
var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+>`)

// TaskDraft is the structured result of parsing a chat message
type TaskDraft struct {
	Title     string
	ProjectID string
	Bucket    models.Bucket
}

// MessageParser turns free-text chat shorthand into a task draft.
// Grammar: optional leading mention, a title, then any number of trailing
// #tag segments. Each tag is matched case-insensitively against the bucket
// aliases first, then the project aliases; unknown tags are dropped silently
// and the last match of each kind wins.
type MessageParser struct {
	workspace func() *config.Workspace
}

// NewMessageParser creates a parser reading alias maps through the given
// accessor, so workspace hot reloads apply immediately.
func NewMessageParser(workspace func() *config.Workspace) *MessageParser {
	return &MessageParser{workspace: workspace}
}

// Parse extracts a task draft from a raw message. senderIsOwner selects the
// fallback project for untagged messages: the owner's go to "unassigned",
// a delegate's to "from-<delegate>" so shared-inbox sends stay attributable.
func (p *MessageParser) Parse(text, senderID string, senderIsOwner bool) (TaskDraft, error) {
	ws := p.workspace()

	cleaned := strings.TrimSpace(mentionPattern.ReplaceAllString(text, ""))

	draft := TaskDraft{Bucket: models.BucketInbox}

	// Everything from the first '#' on is tag territory; each '#' starts a
	// tag running to the next '#' or end of string.
	title := cleaned
	if idx := strings.Index(cleaned, "#"); idx >= 0 {
		title = cleaned[:idx]
		for _, tag := range strings.Split(cleaned[idx+1:], "#") {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag == "" {
				continue
			}
			if bucket, ok := ws.BucketAlias[tag]; ok {
				draft.Bucket = models.Bucket(bucket)
				continue
			}
			if projectID, ok := ws.ProjectAlias[tag]; ok {
				draft.ProjectID = projectID
				continue
			}
			// Unknown tag: dropped
		}
	}

	draft.Title = strings.TrimSpace(title)
	if draft.Title == "" {
		return TaskDraft{}, ErrNoTask
	}

	if draft.ProjectID == "" {
		if senderIsOwner {
			draft.ProjectID = models.ProjectUnassigned
		} else {
			name := ws.Delegates[senderID]
			if name == "" {
				name = strings.ToLower(senderID)
			}
			draft.ProjectID = models.ProjectDelegatePrefix + name
		}
	}

	return draft, nil
}

// ProjectLabel returns a human-readable alias for a project id, for reply
// confirmations. Projects with several aliases get the alphabetically first
// one so confirmations stay stable. Falls back to the id itself.
func (p *MessageParser) ProjectLabel(projectID string) string {
	var aliases []string
	for alias, id := range p.workspace().ProjectAlias {
		if id == projectID {
			aliases = append(aliases, alias)
		}
	}
	if len(aliases) == 0 {
		return projectID
	}
	sort.Strings(aliases)
	return aliases[0]
}
