package store

import (
	"context"
	"database/sql"
	"fmt"
)

const relationshipColumns = "id, from_type, from_id, to_type, to_id, relationship_type, strength"

// AddRelationship inserts a directed edge and returns its id.
func (s *SQLiteStore) AddRelationship(ctx context.Context, r *Relationship) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO relationships (from_type, from_id, to_type, to_id, relationship_type, strength)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(r.FromType), r.FromID, string(r.ToType), r.ToID, r.Type, r.Strength,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting relationship: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading relationship id: %w", err)
	}
	r.ID = id
	return id, nil
}

// RelationshipsFrom returns all edges originating at (t, id), ordered by id
// so repeated traversals see the same order.
func (s *SQLiteStore) RelationshipsFrom(ctx context.Context, t EntityType, id int64) ([]*Relationship, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+relationshipColumns+" FROM relationships WHERE from_type = ? AND from_id = ? ORDER BY id",
		string(t), id)
	if err != nil {
		return nil, fmt.Errorf("querying outgoing relationships: %w", err)
	}
	defer rows.Close()
	return collectRelationships(rows)
}

// RelationshipsTo returns all edges pointing at (t, id), ordered by id.
func (s *SQLiteStore) RelationshipsTo(ctx context.Context, t EntityType, id int64) ([]*Relationship, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+relationshipColumns+" FROM relationships WHERE to_type = ? AND to_id = ? ORDER BY id",
		string(t), id)
	if err != nil {
		return nil, fmt.Errorf("querying incoming relationships: %w", err)
	}
	defer rows.Close()
	return collectRelationships(rows)
}

func collectRelationships(rows *sql.Rows) ([]*Relationship, error) {
	var out []*Relationship
	for rows.Next() {
		var r Relationship
		var fromType, toType, relType sql.NullString
		var strength sql.NullFloat64
		if err := rows.Scan(&r.ID, &fromType, &r.FromID, &toType, &r.ToID, &relType, &strength); err != nil {
			return nil, fmt.Errorf("scanning relationship: %w", err)
		}
		r.FromType = EntityType(fromType.String)
		r.ToType = EntityType(toType.String)
		r.Type = relType.String
		r.Strength = strength.Float64
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating relationships: %w", err)
	}
	return out, nil
}
