// processor.go declares the Processor interface: the unit of logic that applies
// one kind of approved mutation against domain state. Processors run inside the
// orchestrator's transaction and never touch the request row itself; that is
// the orchestrator's exclusive responsibility.
package workflow

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shiplog/shiplog-server/internal/db/models"
)

// Processor applies the domain mutation for one request kind.
//
// Apply is invoked exactly once per approval, inside the same transaction as
// the status update. Any returned error aborts the whole transaction; a
// processor must never commit, roll back, or partially apply on its own.
type Processor interface {
	// Kind returns the request kind this processor handles
	Kind() models.RequestKind

	// Apply performs the mutation using the supplied open transaction
	Apply(ctx context.Context, tx *sqlx.Tx, req *models.Request) error
}
