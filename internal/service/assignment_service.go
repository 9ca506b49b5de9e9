package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// AssignmentService selects an assignee for new tickets: among Agents whose
// departments include the ticket category, the one with the fewest Open
// tickets wins; ties go to the first candidate in enumeration order.
//
// The count queries and the eventual ticket write are not one transaction,
// so concurrent creations in the same category can both pick the momentary
// least-loaded agent. That transient skew is accepted: correctness needs a
// valid (or absent) assignee, not perfect balance.
type AssignmentService struct {
	users   repository.UserRepository
	tickets repository.TicketRepository
	logger  *zap.Logger
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	UserRepo   repository.UserRepository
	TicketRepo repository.TicketRepository
	Logger     *zap.Logger
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		users:   deps.UserRepo,
		tickets: deps.TicketRepo,
		logger:  logger,
	}
}

// PickAssignee returns the least-loaded qualified agent, or nil when no
// agent carries the category's department tag.
func (s *AssignmentService) PickAssignee(ctx context.Context, category domain.TicketCategory) (*domain.User, error) {
	candidates, err := s.users.ListAgentsByDepartment(ctx, string(category))
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	// fan out the load counts, await jointly
	loads := make([]int, len(candidates))
	errs := make([]error, len(candidates))
	var wg sync.WaitGroup
	for i := range candidates {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			loads[i], errs[i] = s.tickets.CountOpenByAssignee(ctx, candidates[i].ID)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	best := 0
	for i := 1; i < len(candidates); i++ {
		if loads[i] < loads[best] {
			best = i
		}
	}

	s.logger.Debug("auto-assignment selected agent",
		zap.String("category", string(category)),
		zap.String("agent_id", candidates[best].ID),
		zap.Int("open_load", loads[best]),
		zap.Int("candidates", len(candidates)))
	return &candidates[best], nil
}
