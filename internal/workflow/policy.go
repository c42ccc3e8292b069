// policy.go implements the access policy: the pure decision function that
// determines whether an actor's intended mutation is applied directly, routed
// through a pending request, or denied. No side effects here: persistence and
// dispatch belong to the orchestrator.
package workflow

import (
	"github.com/shiplog/shiplog-server/internal/auth"
	"github.com/shiplog/shiplog-server/internal/db/models"
)

// PolicyOutcome is the access policy's verdict for one (actor, kind, project)
type PolicyOutcome string

const (
	// OutcomeApplyDirectly bypasses the approval gate: the mutation runs now
	OutcomeApplyDirectly PolicyOutcome = "apply_directly"
	// OutcomeCreateRequest defers the mutation behind a pending request
	OutcomeCreateRequest PolicyOutcome = "create_request"
	// OutcomeDeny rejects the mutation outright
	OutcomeDeny PolicyOutcome = "deny"
)

// EvaluatePolicy decides how a mutation of the given kind by an actor with the
// given role proceeds for the project.
//
//   - Admins bypass the approval gate for every kind.
//   - Staff may never apply destructive kinds directly, regardless of project
//     flags; publish/schedule kinds apply directly only when the project allows
//     auto-publish or does not require approval.
//   - Viewers (and anything unrecognised) are denied all mutations.
func EvaluatePolicy(role auth.Role, kind models.RequestKind, project *models.Project) PolicyOutcome {
	switch role {
	case auth.RoleAdmin:
		return OutcomeApplyDirectly
	case auth.RoleStaff:
		if kind.IsDestructive() {
			return OutcomeCreateRequest
		}
		if project.AllowAutoPublish || !project.RequireApproval {
			return OutcomeApplyDirectly
		}
		return OutcomeCreateRequest
	default:
		return OutcomeDeny
	}
}
