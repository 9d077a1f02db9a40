package jobserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_apply/internal/engine/jobs"
)

func registerApplicationList(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "application_list",
		Description: "List tracked applications for a user, most recently updated first. Optionally filter by status: saved, applied, interview, offer, rejected.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ApplicationListInput) (*mcp.CallToolResult, *ApplicationListOutput, error) {
		if input.UserID == "" {
			return nil, nil, errors.New("user_id is required")
		}
		if d.Store == nil {
			return nil, nil, errors.New("no application store configured")
		}
		apps, total, err := d.Store.ListApplications(ctx, jobs.ApplicationFilter{
			UserID: input.UserID,
			Status: input.Status,
			Limit:  input.Limit,
		})
		if err != nil {
			return nil, nil, err
		}
		return nil, &ApplicationListOutput{Applications: apps, Total: total}, nil
	})
}

func registerApplicationUpdate(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "application_update",
		Description: "Update status or notes for a tracked application by id. Status options: saved, applied, interview, offer, rejected. Get ids from application_list.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ApplicationUpdateInput) (*mcp.CallToolResult, *ApplicationUpdateOutput, error) {
		if input.UserID == "" || input.ID <= 0 {
			return nil, nil, errors.New("user_id and id are required")
		}
		if d.Store == nil {
			return nil, nil, errors.New("no application store configured")
		}
		err := d.Store.UpdateApplication(ctx, jobs.ApplicationUpdate{
			ID:     input.ID,
			UserID: input.UserID,
			Status: input.Status,
			Notes:  input.Notes,
		})
		if err != nil {
			return nil, nil, err
		}
		return nil, &ApplicationUpdateOutput{ID: input.ID, Message: fmt.Sprintf("Application #%d updated", input.ID)}, nil
	})
}
