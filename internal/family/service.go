// Package family computes visibility scopes over the symmetric family
// relation between users. It is read-heavy and retry-free: edges change only
// through the explicit link/unlink administration operations.
package family

import (
	"context"
	"fmt"

	"github.com/Iron-Cow/MonoProject/internal/storage"
)

// batchSize bounds how many ids one neighbor query carries while expanding
// the traversal frontier.
const batchSize = 50

// Service answers family-graph queries.
type Service struct {
	repo storage.FamilyRepository
}

// NewService builds a Service over the edge repository.
func NewService(repo storage.FamilyRepository) *Service {
	return &Service{repo: repo}
}

// Link records the symmetric family relation between two users. Both ids must
// be non-empty and distinct; re-linking an existing pair is a no-op.
func (s *Service) Link(ctx context.Context, userA, userB string) error {
	if userA == "" || userB == "" {
		return fmt.Errorf("link: both user ids are required")
	}
	if userA == userB {
		return fmt.Errorf("link %s: cannot link a user to themselves", userA)
	}
	if err := s.repo.AddEdge(ctx, userA, userB); err != nil {
		return fmt.Errorf("link %s-%s: %w", userA, userB, err)
	}
	return nil
}

// Unlink removes the relation between two users in both directions.
func (s *Service) Unlink(ctx context.Context, userA, userB string) error {
	if userA == "" || userB == "" {
		return fmt.Errorf("unlink: both user ids are required")
	}
	if err := s.repo.RemoveEdge(ctx, userA, userB); err != nil {
		return fmt.Errorf("unlink %s-%s: %w", userA, userB, err)
	}
	return nil
}

// DirectMembers returns the immediate family neighbors of one user.
func (s *Service) DirectMembers(ctx context.Context, userID string) ([]string, error) {
	members, err := s.repo.DirectMembers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("direct members of %s: %w", userID, err)
	}
	return members, nil
}

// Expand widens a set of user ids with their family members. With
// recursive=false the result is the input plus direct neighbors; with
// recursive=true it is the full connected component reachable from the input,
// found by breadth-first traversal with the frontier processed in fixed-size
// chunks. The result is a set: no id appears twice, order is unspecified, and
// ids unknown to the graph are preserved as themselves.
func (s *Service) Expand(ctx context.Context, userIDs []string, recursive bool) ([]string, error) {
	seed := make([]string, 0, len(userIDs))
	seen := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		seed = append(seed, id)
	}
	if len(seed) == 0 {
		return []string{}, nil
	}

	if !recursive {
		return s.expandDirect(ctx, seed, seen)
	}
	return s.expandComponent(ctx, seed)
}

func (s *Service) expandDirect(ctx context.Context, seed []string, collected map[string]struct{}) ([]string, error) {
	for start := 0; start < len(seed); start += batchSize {
		end := min(start+batchSize, len(seed))
		neighbors, err := s.repo.DirectMembersBatch(ctx, seed[start:end])
		if err != nil {
			return nil, fmt.Errorf("expand: %w", err)
		}
		for _, members := range neighbors {
			for _, member := range members {
				collected[member] = struct{}{}
			}
		}
	}
	return setToSlice(collected), nil
}

// expandComponent walks the undirected graph from the seed set. Termination
// is guaranteed because the visited set only grows and the graph is finite.
func (s *Service) expandComponent(ctx context.Context, seed []string) ([]string, error) {
	visited := make(map[string]struct{}, len(seed))
	frontier := append([]string(nil), seed...)
	for _, id := range seed {
		visited[id] = struct{}{}
	}

	for len(frontier) > 0 {
		end := min(batchSize, len(frontier))
		batch := frontier[:end]
		frontier = frontier[end:]

		neighbors, err := s.repo.DirectMembersBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("expand: %w", err)
		}
		for _, members := range neighbors {
			for _, member := range members {
				if _, ok := visited[member]; ok {
					continue
				}
				visited[member] = struct{}{}
				frontier = append(frontier, member)
			}
		}
	}
	return setToSlice(visited), nil
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
