package abac

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/netology-group/iam/internal/iamerr"
)

// Evaluator answers authorization queries by expanding each of
// subject/object/action to its transitive closure and checking whether any
// active policy in the given namespaces has its subject/object/action each
// a subset of the corresponding closure. This is the single decision
// procedure behind both the public authorize RPC and the guard (C6) that
// every collection mutation passes through first.
type Evaluator struct {
	Subjects Expander
	Objects  Expander
	Actions  Expander
	Policies PolicyStore
}

// Authorize reports whether subject may perform action on object, searching
// policies across every namespace in namespaceIDs. A namespace's policies
// are consulted using that namespace's own graph: expansions are scoped
// per-namespace so one tenant's edges never leak a grant to another's
// policies.
func (e *Evaluator) Authorize(ctx context.Context, namespaceIDs []uuid.UUID, subject, object, action Composite) (bool, error) {
	allow := false
	for _, ns := range namespaceIDs {
		matched, err := e.authorizeInNamespace(ctx, ns, subject, object, action)
		if err != nil {
			return false, err
		}
		if matched {
			allow = true
			break
		}
	}
	recordDecision(allow)
	return allow, nil
}

func (e *Evaluator) authorizeInNamespace(ctx context.Context, ns uuid.UUID, subject, object, action Composite) (bool, error) {
	subjects, err := e.Subjects.Expand(ctx, RelationSubject, ns, subject)
	if err != nil {
		return false, iamerr.Internal(err, "evaluator: expand subject")
	}
	objects, err := e.Objects.Expand(ctx, RelationObject, ns, object)
	if err != nil {
		return false, iamerr.Internal(err, "evaluator: expand object")
	}
	actions, err := e.Actions.Expand(ctx, RelationAction, ns, action)
	if err != nil {
		return false, iamerr.Internal(err, "evaluator: expand action")
	}

	policies, err := e.Policies.ListPolicies(ctx, ns, 0, 0)
	if err != nil {
		return false, iamerr.Internal(err, "evaluator: list policies")
	}

	now := time.Now()
	subjectSet := unionAttributes(subjects)
	objectSet := unionAttributes(objects)
	actionSet := unionAttributes(actions)

	for _, p := range policies {
		if !p.activeAt(now) {
			continue
		}
		if subjectSet.Contains(p.Subject) && objectSet.Contains(p.Object) && actionSet.Contains(p.Action) {
			return true, nil
		}
	}
	return false, nil
}

// unionAttributes flattens an expanded set of composites into the single
// pool of attributes a policy's subject/object/action is matched against.
// §4.4 step 3 treats policy components as sets to be subset-tested against
// the expansion, not as whole composites to be matched one-for-one.
func unionAttributes(composites []Composite) Composite {
	var out Composite
	for _, c := range composites {
		for _, a := range c {
			out = append(out, a)
		}
	}
	return out
}
