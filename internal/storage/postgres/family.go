package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Iron-Cow/MonoProject/internal/storage"
)

// FamilyRepository is the PostgreSQL implementation of
// storage.FamilyRepository. Symmetry is an explicit bidirectional-write rule:
// AddEdge stores both directions in one transaction, so reads only ever need
// one column.
type FamilyRepository struct {
	pool *pgxpool.Pool
}

// NewFamilyRepository creates a repository over the shared pool.
func NewFamilyRepository(pool *pgxpool.Pool) *FamilyRepository {
	return &FamilyRepository{pool: pool}
}

// DirectMembers returns the immediate neighbors of one user.
func (r *FamilyRepository) DirectMembers(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_b FROM family_edges WHERE user_a = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("direct members of %s: %w", userID, err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var member string
		if err := rows.Scan(&member); err != nil {
			return nil, fmt.Errorf("scan family edge: %w", err)
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

// DirectMembersBatch returns the immediate neighbors for each given user in
// one query.
func (r *FamilyRepository) DirectMembersBatch(ctx context.Context, userIDs []string) (map[string][]string, error) {
	result := make(map[string][]string, len(userIDs))
	for _, id := range userIDs {
		result[id] = nil
	}
	if len(userIDs) == 0 {
		return result, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT user_a, user_b FROM family_edges WHERE user_a = ANY($1)`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("direct members batch: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a, b string
		if err := rows.Scan(&a, &b); err != nil {
			return nil, fmt.Errorf("scan family edge: %w", err)
		}
		result[a] = append(result[a], b)
	}
	return result, rows.Err()
}

// AddEdge links two users symmetrically in one transaction. Re-adding an
// existing edge is a no-op.
func (r *FamilyRepository) AddEdge(ctx context.Context, userA, userB string) error {
	if userA == userB {
		return fmt.Errorf("self edge %s: not allowed", userA)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("add family edge: %w", err)
	}
	defer tx.Rollback(ctx)

	const insert = `
		INSERT INTO family_edges (user_a, user_b)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`
	if _, err := tx.Exec(ctx, insert, userA, userB); err != nil {
		return fmt.Errorf("add family edge %s-%s: %w", userA, userB, err)
	}
	if _, err := tx.Exec(ctx, insert, userB, userA); err != nil {
		return fmt.Errorf("add family edge %s-%s: %w", userB, userA, err)
	}

	return tx.Commit(ctx)
}

// RemoveEdge removes the link in both directions.
func (r *FamilyRepository) RemoveEdge(ctx context.Context, userA, userB string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM family_edges
		WHERE (user_a = $1 AND user_b = $2) OR (user_a = $2 AND user_b = $1)`,
		userA, userB)
	if err != nil {
		return fmt.Errorf("remove family edge %s-%s: %w", userA, userB, err)
	}
	return nil
}

var _ storage.FamilyRepository = (*FamilyRepository)(nil)
