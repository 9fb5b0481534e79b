package gh

import (
	"context"
	"encoding/json"
	"fmt"
)

const updateItemFieldMutation = `
	mutation($projectId: ID!, $itemId: ID!, $fieldId: ID!, $value: ProjectV2FieldValue!) {
		updateProjectV2ItemFieldValue(
			input: {
				projectId: $projectId
				itemId: $itemId
				fieldId: $fieldId
				value: $value
			}
		) {
			projectV2Item {
				id
			}
		}
	}
`

const addDraftIssueMutation = `
	mutation($input: AddProjectV2DraftIssueInput!) {
		addProjectV2DraftIssue(input: $input) {
			projectItem {
				id
			}
		}
	}
`

const updateDraftIssueMutation = `
	mutation($input: UpdateProjectV2DraftIssueInput!) {
		updateProjectV2DraftIssue(input: $input) {
			draftIssue {
				id
				title
			}
		}
	}
`

// UpdateItemField updates a project item's SINGLE_SELECT field value.
// This is used to move items between columns and to set priority.
func (c *Client) UpdateItemField(ctx context.Context, token, projectID, itemID, fieldID, optionID string) error {
	vars := map[string]interface{}{
		"projectId": projectID,
		"itemId":    itemID,
		"fieldId":   fieldID,
		"value": map[string]interface{}{
			"singleSelectOptionId": optionID,
		},
	}

	if _, err := c.Execute(ctx, updateItemFieldMutation, vars, token); err != nil {
		return fmt.Errorf("failed to update item field: %w", err)
	}
	return nil
}

// AddDraftIssue creates a draft issue in a project and returns the new project item ID.
// An empty body is omitted from the input.
func (c *Client) AddDraftIssue(ctx context.Context, token, projectID, title, body string) (string, error) {
	input := map[string]interface{}{
		"projectId": projectID,
		"title":     title,
	}
	if body != "" {
		input["body"] = body
	}

	data, err := c.Execute(ctx, addDraftIssueMutation, map[string]interface{}{"input": input}, token)
	if err != nil {
		return "", fmt.Errorf("failed to add draft issue: %w", err)
	}

	var resp struct {
		AddProjectV2DraftIssue *struct {
			ProjectItem *struct {
				ID string `json:"id"`
			} `json:"projectItem"`
		} `json:"addProjectV2DraftIssue"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if resp.AddProjectV2DraftIssue == nil || resp.AddProjectV2DraftIssue.ProjectItem == nil ||
		resp.AddProjectV2DraftIssue.ProjectItem.ID == "" {
		return "", fmt.Errorf("%w: no project item in response", ErrInvalidResponse)
	}
	return resp.AddProjectV2DraftIssue.ProjectItem.ID, nil
}

// UpdateDraftIssue edits a draft issue's title and body. An empty body leaves the body unchanged.
// A response without a draftIssue object is treated as a failure.
func (c *Client) UpdateDraftIssue(ctx context.Context, token, draftID, title, body string) error {
	input := map[string]interface{}{
		"draftIssueId": draftID,
		"title":        title,
	}
	if body != "" {
		input["body"] = body
	}

	data, err := c.Execute(ctx, updateDraftIssueMutation, map[string]interface{}{"input": input}, token)
	if err != nil {
		return fmt.Errorf("failed to update draft issue: %w", err)
	}

	var resp struct {
		UpdateProjectV2DraftIssue *struct {
			DraftIssue *struct {
				ID string `json:"id"`
			} `json:"draftIssue"`
		} `json:"updateProjectV2DraftIssue"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if resp.UpdateProjectV2DraftIssue == nil || resp.UpdateProjectV2DraftIssue.DraftIssue == nil {
		return fmt.Errorf("%w: no draft issue in response", ErrInvalidResponse)
	}
	return nil
}
