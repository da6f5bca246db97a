package shared

import "github.com/google/uuid"

// CheckWorkflowActor validates an actor taking a role in the MVA approval
// chain: the ID must be set, and must differ from everyone who already acted
// in an earlier role (segregation of duties). Both withdrawal batches and
// tool loans apply the same policy.
func CheckWorkflowActor(actorID uuid.UUID, priorActors ...*uuid.UUID) error {
	if actorID == uuid.Nil {
		return NewDomainError("INVALID_ACTOR", "Actor ID cannot be empty")
	}
	for _, prior := range priorActors {
		if prior != nil && *prior == actorID {
			return ErrSameActor
		}
	}
	return nil
}
