// registry.go implements the processor registry: the single extension point
// for adding new request kinds. The map is populated at startup and verified
// against the closed kind set, so a kind without a processor is a boot failure
// rather than a silent runtime gap.
package workflow

import (
	"fmt"

	"github.com/shiplog/shiplog-server/internal/db/models"
)

// Registry maps request kinds to their processors
type Registry struct {
	processors map[models.RequestKind]Processor
}

// NewRegistry builds a registry from the given processors. Registering two
// processors for the same kind is a programming error and panics at startup.
func NewRegistry(processors ...Processor) *Registry {
	r := &Registry{processors: make(map[models.RequestKind]Processor, len(processors))}
	for _, p := range processors {
		if _, dup := r.processors[p.Kind()]; dup {
			panic(fmt.Sprintf("workflow: duplicate processor for kind %q", p.Kind()))
		}
		r.processors[p.Kind()] = p
	}
	return r
}

// DefaultRegistry returns a registry with every built-in processor registered
func DefaultRegistry() *Registry {
	return NewRegistry(
		&DeleteProjectProcessor{},
		&DeleteTagProcessor{},
		&DeleteEntryProcessor{},
		&AllowPublishProcessor{},
		&AllowScheduleProcessor{},
	)
}

// Resolve returns the processor for a kind, or UnknownProcessorError when none
// is registered. Callers must never ignore the error: an approval without its
// mutation is a correctness violation.
func (r *Registry) Resolve(kind models.RequestKind) (Processor, error) {
	p, ok := r.processors[kind]
	if !ok {
		return nil, &UnknownProcessorError{Kind: kind}
	}
	return p, nil
}

// VerifyComplete checks that every kind in kinds has a registered processor.
// Called once at startup so configuration gaps surface before any request can
// be approved.
func (r *Registry) VerifyComplete(kinds []models.RequestKind) error {
	for _, kind := range kinds {
		if _, ok := r.processors[kind]; !ok {
			return &UnknownProcessorError{Kind: kind}
		}
	}
	return nil
}
