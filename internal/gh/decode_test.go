package gh

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/h0rv/kanbanbar/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProjects = `{
  "viewer": {
    "projectsV2": {
      "nodes": [
        {
          "id": "P1", "number": 1, "title": "Roadmap", "url": "https://github.com/users/me/projects/1",
          "fields": {"nodes": [
            null,
            {"id": "F_status", "name": "Status", "options": [
              {"id": "O_todo", "name": "Todo", "color": "GRAY"},
              {"id": "O_done", "name": "Done", "color": "GREEN"},
              {"name": "no id"}
            ]},
            {},
            {"id": "F_prio", "name": "Priority"}
          ]},
          "items": {"nodes": [
            {
              "id": "I_issue",
              "fieldValues": {"nodes": [
                {},
                {"name": "Todo", "optionId": "O_todo", "field": {"id": "F_status", "name": "Status"}},
                null
              ]},
              "content": {
                "__typename": "Issue", "id": "ISSUE_1", "title": "Crash on save", "number": 7, "state": "OPEN",
                "url": "https://github.com/o/r/issues/7", "createdAt": "2024-01-01T00:00:00Z", "updatedAt": "2024-01-02T00:00:00Z",
                "assignees": {"nodes": [{"id": "U1", "login": "octocat", "avatarUrl": "https://a"}]},
                "labels": {"nodes": [{"id": "L1", "name": "bug", "color": "d73a4a"}]}
              }
            },
            {
              "id": "I_pr",
              "fieldValues": {"nodes": []},
              "content": {
                "__typename": "PullRequest", "title": "Fix crash", "number": 8, "state": "MERGED",
                "url": "https://github.com/o/r/pull/8", "createdAt": "2024-01-03T00:00:00Z", "updatedAt": "2024-01-03T00:00:00Z",
                "assignees": {"nodes": []}
              }
            },
            {
              "id": "I_draft",
              "fieldValues": {"nodes": [{"name": "Done", "optionId": "O_done", "field": {"id": "F_status", "name": "Status"}}]},
              "content": {"__typename": "DraftIssue", "id": "DI_1", "title": "Write docs", "body": "later", "createdAt": "2024-01-04T00:00:00Z", "updatedAt": "2024-01-05T00:00:00Z"}
            },
            {"id": "I_weird", "fieldValues": {"nodes": []}, "content": {"number": "not a number"}},
            {"id": "I_null", "content": null},
            {"fieldValues": {"nodes": []}},
            42
          ]}
        },
        {"number": 2, "title": "no id"},
        {"id": "P3", "number": 3, "title": "Empty", "url": "u", "fields": {"nodes": []}, "items": {"nodes": []}}
      ]
    }
  }
}`

func decodeSample(t *testing.T) []domain.Project {
	t.Helper()
	projects, err := DecodeProjects(json.RawMessage(sampleProjects))
	require.NoError(t, err)
	return projects
}

// TestDecodeProjects_Degrades verifies that broken units are dropped or patched
// without losing their siblings.
func TestDecodeProjects_Degrades(t *testing.T) {
	projects := decodeSample(t)
	require.Len(t, projects, 2)
	assert.Equal(t, "P1", projects[0].ID)
	assert.Equal(t, "P3", projects[1].ID)

	p := projects[0]

	t.Run("fields", func(t *testing.T) {
		require.Len(t, p.Fields, 3)

		status := p.Field(domain.FieldStatus)
		require.NotNil(t, status)
		require.Len(t, status.Options, 2)
		assert.Equal(t, "Done", status.Options[1].Name)

		unknown := p.Fields[1]
		assert.Equal(t, unknownFieldName, unknown.Name)
		assert.True(t, strings.HasPrefix(unknown.ID, "unknown-"))
		assert.NotNil(t, unknown.Options)

		assert.Empty(t, p.Field(domain.FieldPriority).Options)
	})

	t.Run("items", func(t *testing.T) {
		require.Len(t, p.Items, 5)
		ids := make([]string, 0, len(p.Items))
		for _, it := range p.Items {
			ids = append(ids, it.ID)
		}
		assert.Equal(t, []string{"I_issue", "I_pr", "I_draft", "I_weird", "I_null"}, ids)
	})

	t.Run("field values", func(t *testing.T) {
		issue := p.Item("I_issue")
		require.Len(t, issue.FieldValues, 2)
		assert.Equal(t, "Todo", issue.Status())
		assert.Equal(t, "O_todo", issue.FieldValues[1].OptionID)
	})

	t.Run("unmatched content is nil", func(t *testing.T) {
		assert.Nil(t, p.Item("I_weird").Content)
		assert.Nil(t, p.Item("I_null").Content)
	})
}

func TestDecodeContent(t *testing.T) {
	projects := decodeSample(t)
	p := projects[0]

	t.Run("issue", func(t *testing.T) {
		c := p.Item("I_issue").Content
		require.NotNil(t, c)
		assert.Equal(t, domain.ContentTypeIssue, c.Kind)
		assert.Equal(t, "ISSUE_1", c.ID)
		assert.Equal(t, 7, c.Number)
		require.Len(t, c.Assignees, 1)
		assert.Equal(t, "octocat", c.Assignees[0].Login)
		require.Len(t, c.Labels, 1)
		assert.Equal(t, "bug", c.Labels[0].Name)
	})

	t.Run("pull request is not mistaken for an issue", func(t *testing.T) {
		c := p.Item("I_pr").Content
		require.NotNil(t, c)
		assert.Equal(t, domain.ContentTypePullRequest, c.Kind)
		assert.Equal(t, "MERGED", c.State)
		assert.Empty(t, c.Labels)
	})

	t.Run("draft", func(t *testing.T) {
		c := p.Item("I_draft").Content
		require.NotNil(t, c)
		assert.Equal(t, domain.ContentTypeDraftIssue, c.Kind)
		assert.Equal(t, domain.DraftState, c.State)
		assert.Equal(t, "DI_1", c.ID)
		assert.Equal(t, "later", c.Body)
		assert.Zero(t, c.Number)
		assert.Empty(t, c.URL)
	})

	t.Run("untyped content matches structurally in order", func(t *testing.T) {
		c := DecodeContent(json.RawMessage(`{"title":"t","number":1,"state":"OPEN","url":"u","createdAt":"a","updatedAt":"b"}`))
		require.NotNil(t, c)
		assert.Equal(t, domain.ContentTypeIssue, c.Kind)

		c = DecodeContent(json.RawMessage(`{"title":"only a title"}`))
		require.NotNil(t, c)
		assert.Equal(t, domain.ContentTypeDraftIssue, c.Kind)
		assert.Equal(t, "", c.UpdatedAt)
	})

	t.Run("unknown typename", func(t *testing.T) {
		assert.Nil(t, DecodeContent(json.RawMessage(`{"__typename":"Discussion","title":"t"}`)))
	})
}

func TestDecodeProjects_Envelope(t *testing.T) {
	t.Run("not an object", func(t *testing.T) {
		_, err := DecodeProjects(json.RawMessage(`[]`))
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("null viewer yields no projects", func(t *testing.T) {
		projects, err := DecodeProjects(json.RawMessage(`{"viewer":null}`))
		require.NoError(t, err)
		assert.Empty(t, projects)
	})
}

func TestDecodeProjectSummaries(t *testing.T) {
	projects, err := DecodeProjectSummaries(json.RawMessage(`{"viewer":{"projectsV2":{"nodes":[
		{"id":"P1","number":1,"title":"One","url":"u1"},
		null,
		{"title":"missing id"}
	]}}}`))
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "One", projects[0].Title)
	assert.NotNil(t, projects[0].Items)
	assert.Empty(t, projects[0].Fields)
}
