// Package copilot turns free-text prompts into task actions.
//
// Classification is a fixed, case-insensitive keyword decision tree; there is no model
// behind it. Categories are checked in order (create, move, show, priority) and the first
// match wins, so "create ... show ..." is a create.
package copilot

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Intent is the action a prompt asks for.
type Intent int

const (
	IntentHelp Intent = iota
	IntentCreateTask
	IntentCreateBug
	IntentCreateFeature
	IntentMoveToDone
	IntentMoveToInProgress
	IntentUpdateStatus
	IntentShowHighPriority
	IntentShowInProgress
	IntentShowCompleted
	IntentShowAll
	IntentSetHighPriority
	IntentSetLowPriority
)

var intentNames = [...]string{
	IntentHelp:             "help",
	IntentCreateTask:       "create-task",
	IntentCreateBug:        "create-bug",
	IntentCreateFeature:    "create-feature",
	IntentMoveToDone:       "move-to-done",
	IntentMoveToInProgress: "move-to-in-progress",
	IntentUpdateStatus:     "update-status",
	IntentShowHighPriority: "show-high-priority",
	IntentShowInProgress:   "show-in-progress",
	IntentShowCompleted:    "show-completed",
	IntentShowAll:          "show-all",
	IntentSetHighPriority:  "set-high-priority",
	IntentSetLowPriority:   "set-low-priority",
}

func (i Intent) String() string {
	if i >= 0 && int(i) < len(intentNames) {
		return intentNames[i]
	}
	return "unknown"
}

// TaskKind is the flavor of a created task.
type TaskKind int

const (
	KindGeneral TaskKind = iota
	KindBug
	KindFeature
)

// Kind returns the task kind a create intent produces.
func (i Intent) Kind() TaskKind {
	switch i {
	case IntentCreateBug:
		return KindBug
	case IntentCreateFeature:
		return KindFeature
	default:
		return KindGeneral
	}
}

// Classify maps a prompt onto an Intent.
func Classify(prompt string) Intent {
	p := strings.ToLower(prompt)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(p, w) {
				return true
			}
		}
		return false
	}

	switch {
	case has("create", "add", "new"):
		switch {
		case has("bug"):
			return IntentCreateBug
		case has("feature"):
			return IntentCreateFeature
		default:
			return IntentCreateTask
		}

	case has("move", "update", "change"):
		switch {
		case has("done", "complete"):
			return IntentMoveToDone
		case has("progress", "working"):
			return IntentMoveToInProgress
		default:
			return IntentUpdateStatus
		}

	case has("show", "find", "list"):
		switch {
		case has("high priority", "urgent"):
			return IntentShowHighPriority
		case has("progress"):
			return IntentShowInProgress
		case has("done", "complete"):
			return IntentShowCompleted
		default:
			return IntentShowAll
		}

	case has("priority"):
		switch {
		case has("high", "urgent"):
			return IntentSetHighPriority
		case has("low"):
			return IntentSetLowPriority
		}
	}

	return IntentHelp
}

// Words stripped from the front of a create prompt.
var commandWords = map[string]bool{
	"create": true, "add": true, "new": true, "make": true,
	"task": true, "bug": true, "feature": true, "issue": true,
	"report": true, "request": true, "ticket": true,
	"a": true, "an": true, "the": true, "please": true,
}

// Priority phrases, removed wherever they occur.
var priorityPhrases = [][]string{
	{"high", "priority"},
	{"low", "priority"},
	{"medium", "priority"},
	{"urgent"},
}

// Connectives dropped once after the command words ("... bug for login").
var leadingConnectives = map[string]bool{
	"for": true, "about": true, "regarding": true, "to": true, "on": true, "called": true, "named": true,
}

// Canned titles for prompts that leave too little after stripping.
var fallbackTitles = map[TaskKind]string{
	KindGeneral: "New task",
	KindBug:     "[BUG] New bug report",
	KindFeature: "[FEATURE] New feature request",
}

// ExtractTitle derives a task title from a create prompt.
// Command words, articles and priority phrases are removed on word boundaries, bugs and
// features get a [BUG]/[FEATURE] prefix unless they already carry one, and a result
// shorter than three characters is replaced by a canned title.
func ExtractTitle(prompt string, kind TaskKind) string {
	words := stripPriority(strings.Fields(prompt))

	i := 0
	for i < len(words) && commandWords[bare(words[i])] {
		i++
	}
	if i > 0 && i < len(words) && leadingConnectives[bare(words[i])] {
		i++
	}
	title := strings.TrimLeft(strings.Join(words[i:], " "), ":-,. ")
	title = strings.TrimSpace(title)

	if utf8.RuneCountInString(title) < 3 {
		return fallbackTitles[kind]
	}

	lower := strings.ToLower(title)
	switch kind {
	case KindBug:
		if !strings.HasPrefix(lower, "[bug]") && !strings.HasPrefix(lower, "bug:") {
			title = "[BUG] " + title
		}
	case KindFeature:
		if !strings.HasPrefix(lower, "[feature]") && !strings.HasPrefix(lower, "feature:") {
			title = "[FEATURE] " + title
		}
	}
	return title
}

// stripPriority removes every priority phrase from words.
func stripPriority(words []string) []string {
	out := make([]string, 0, len(words))
	for i := 0; i < len(words); {
		if n := matchPhrase(words[i:]); n > 0 {
			i += n
			continue
		}
		out = append(out, words[i])
		i++
	}
	return out
}

func matchPhrase(words []string) int {
	for _, phrase := range priorityPhrases {
		if len(words) < len(phrase) {
			continue
		}
		ok := true
		for j, w := range phrase {
			if bare(words[j]) != w {
				ok = false
				break
			}
		}
		if ok {
			return len(phrase)
		}
	}
	return 0
}

// bare lowercases a word and trims surrounding punctuation.
func bare(word string) string {
	return strings.ToLower(strings.TrimFunc(word, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	}))
}
