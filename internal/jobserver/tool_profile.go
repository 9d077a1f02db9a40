package jobserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_apply/internal/toolutil"
)

func registerProfileSave(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "profile_save",
		Description: "Validate and save the master profile for a user. Required: contact.full_name, contact.email, skills.core (at least one), experience_snippets (at least one, each with role and company). Replaces any previously saved profile.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ProfileSaveInput) (*mcp.CallToolResult, *ProfileOutput, error) {
		if input.UserID == "" {
			return nil, nil, errors.New("user_id is required")
		}
		if d.Store == nil {
			return nil, nil, errors.New("no profile store configured")
		}
		if err := d.Store.SaveProfile(ctx, input.UserID, &input.Profile); err != nil {
			return nil, nil, toolutil.ToolError(err)
		}
		return nil, &ProfileOutput{
			UserID:  input.UserID,
			Profile: &input.Profile,
			Message: fmt.Sprintf("Profile saved with %d experience snippet(s)", len(input.Profile.ExperienceSnippets)),
		}, nil
	})
}

func registerProfileGet(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "profile_get",
		Description: "Read the saved master profile for a user.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ProfileGetInput) (*mcp.CallToolResult, *ProfileOutput, error) {
		p, err := resolveProfile(ctx, d, input.UserID, nil)
		if err != nil {
			return nil, nil, err
		}
		return nil, &ProfileOutput{UserID: input.UserID, Profile: p}, nil
	})
}

