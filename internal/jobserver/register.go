package jobserver

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_apply/internal/engine"
	"github.com/anatolykoptev/go_apply/internal/engine/jobs"
)

// Deps are the collaborators the tools call into.
type Deps struct {
	Pipeline   *jobs.Pipeline
	Capability engine.Capability
	Store      jobs.Store
	Retry      engine.RetryConfig
	ParseOpts  jobs.ParseOptions
}

// RegisterTools registers all application tools on the given MCP server:
// application_tailor, job_spec_parse, job_match_score, profile_save, profile_get,
// application_list, application_update.
func RegisterTools(server *mcp.Server, d Deps) int {
	registerApplicationTailor(server, d)
	registerJobSpecParse(server, d)
	registerJobMatchScore(server, d)
	registerProfileSave(server, d)
	registerProfileGet(server, d)
	registerApplicationList(server, d)
	registerApplicationUpdate(server, d)
	return 7
}
