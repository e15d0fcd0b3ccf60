package service

import (
	"context"

	"go.uber.org/zap"

	"racebet/internal/models"
)

// maxLineDepth bounds the agent subtree walk the same way the rebate
// cascade bounds its ancestor walk.
const maxLineDepth = 32

// resolveTargets selects the wagers the targeted strategies steer around.
// single_member takes the named member's wagers; agent_line takes every
// wager owned by a member anywhere under the named agent.
func (s *DrawService) resolveTargets(ctx context.Context, periodID int64, policy *models.ControlPolicy, wagers []models.Wager) ([]models.Wager, error) {
	if policy.Normal() || policy.Mode == models.ControlModeAutoDetect {
		return nil, nil
	}

	switch policy.Mode {
	case models.ControlModeSingleMember:
		var out []models.Wager
		for _, w := range wagers {
			if w.Owner == policy.TargetUsername {
				out = append(out, w)
			}
		}
		return out, nil

	case models.ControlModeAgentLine:
		owners, err := s.lineMembers(ctx, policy.TargetUsername)
		if err != nil {
			return nil, err
		}
		if len(owners) == 0 {
			if s.Logger != nil {
				s.Logger.Warn("agent line has no members",
					zap.Int64("period", periodID),
					zap.String("agent", policy.TargetUsername))
			}
			return nil, nil
		}
		var out []models.Wager
		for _, w := range wagers {
			if owners[w.Owner] {
				out = append(out, w)
			}
		}
		return out, nil
	}
	return nil, nil
}

// lineMembers walks the agent subtree breadth-first and collects the
// usernames of every member attached to it.
func (s *DrawService) lineMembers(ctx context.Context, agentUsername string) (map[string]bool, error) {
	root, err := s.Repo.GetAgentByUsername(ctx, agentUsername)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, nil
	}

	agentIDs := []uint64{root.ID}
	seen := map[uint64]bool{root.ID: true}
	frontier := []uint64{root.ID}
	for depth := 0; depth < maxLineDepth && len(frontier) > 0; depth++ {
		var next []uint64
		for _, id := range frontier {
			children, err := s.Repo.ListAgentsByParentID(ctx, id)
			if err != nil {
				return nil, err
			}
			for _, c := range children {
				if seen[c.ID] {
					continue
				}
				seen[c.ID] = true
				agentIDs = append(agentIDs, c.ID)
				next = append(next, c.ID)
			}
		}
		frontier = next
	}

	members, err := s.Repo.ListMembersByAgentIDs(ctx, agentIDs)
	if err != nil {
		return nil, err
	}
	owners := make(map[string]bool, len(members))
	for _, m := range members {
		owners[m.Username] = true
	}
	return owners, nil
}
