// Package access computes the relationship between an identity and a
// ticket. Evaluation is pure and deterministic: identical inputs always
// yield the same decision, and no store or clock is consulted.
package access

import "github.com/spec-kit/helpdesk/internal/domain"

// Decision is the evaluated relationship and the derived permission.
// CanModify gates reads as well: a principal who cannot modify a ticket
// cannot read it either.
type Decision struct {
	IsOwner    bool
	IsAssignee bool
	IsAdmin    bool
	CanModify  bool
}

// Evaluate derives the decision for an identity against a ticket. A nil
// identity yields the zero decision. The assignee comparison accepts both
// the raw id reference and the resolved form, since tickets arrive in
// either shape depending on how they were loaded.
func Evaluate(identity *domain.User, ticket *domain.Ticket) Decision {
	if identity == nil || ticket == nil {
		return Decision{}
	}

	isOwner := ticket.CreatedByID != "" && ticket.CreatedByID == identity.ID

	isAssignee := false
	if ticket.AssigneeID != nil && *ticket.AssigneeID == identity.ID {
		isAssignee = true
	} else if ticket.Assignee != nil && ticket.Assignee.ID == identity.ID {
		isAssignee = true
	}

	isAdmin := identity.Role == domain.RoleAdmin

	return Decision{
		IsOwner:    isOwner,
		IsAssignee: isAssignee,
		IsAdmin:    isAdmin,
		CanModify:  isOwner || isAssignee || isAdmin,
	}
}
