package gh

import (
	"context"
	"fmt"

	"github.com/h0rv/kanbanbar/internal/domain"
)

// projectsQuery fetches the viewer's projects with their single-select fields and items.
// Content carries __typename so the decoder can tell issues from pull requests.
const projectsQuery = `
	query GetProjects {
		viewer {
			projectsV2(first: 20) {
				nodes {
					id
					number
					title
					url
					fields(first: 20) {
						nodes {
							... on ProjectV2SingleSelectField {
								id
								name
								options {
									id
									name
									color
								}
							}
						}
					}
					items(first: 50) {
						nodes {
							id
							fieldValues(first: 10) {
								nodes {
									... on ProjectV2ItemFieldSingleSelectValue {
										name
										optionId
										field {
											... on ProjectV2SingleSelectField {
												id
												name
											}
										}
									}
								}
							}
							content {
								__typename
								... on Issue {
									id
									title
									number
									state
									url
									createdAt
									updatedAt
									assignees(first: 5) {
										nodes {
											id
											login
											avatarUrl
										}
									}
									labels(first: 5) {
										nodes {
											id
											name
											color
										}
									}
								}
								... on PullRequest {
									id
									title
									number
									state
									url
									createdAt
									updatedAt
									assignees(first: 5) {
										nodes {
											id
											login
											avatarUrl
										}
									}
								}
								... on DraftIssue {
									id
									title
									body
									createdAt
									updatedAt
								}
							}
						}
					}
				}
			}
		}
	}
`

// projectSummariesQuery is the reduced shape used when projectsQuery fails.
const projectSummariesQuery = `
	query GetBasicProjects {
		viewer {
			projectsV2(first: 20) {
				nodes {
					id
					number
					title
					url
				}
			}
		}
	}
`

// FetchProjects returns the viewer's projects with fields and items.
func (c *Client) FetchProjects(ctx context.Context, token string) ([]domain.Project, error) {
	data, err := c.Execute(ctx, projectsQuery, nil, token)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch projects: %w", err)
	}

	projects, err := DecodeProjects(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode projects: %w", err)
	}
	c.log.Debug("fetched projects", "count", len(projects))
	return projects, nil
}

// FetchProjectSummaries returns the viewer's projects without fields or items.
func (c *Client) FetchProjectSummaries(ctx context.Context, token string) ([]domain.Project, error) {
	data, err := c.Execute(ctx, projectSummariesQuery, nil, token)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch project summaries: %w", err)
	}

	projects, err := DecodeProjectSummaries(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode project summaries: %w", err)
	}
	return projects, nil
}
