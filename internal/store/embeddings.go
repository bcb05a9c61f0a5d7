package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
)

// PutEmbedding stores or replaces the vector for one entity.
func (s *SQLiteStore) PutEmbedding(ctx context.Context, e *Embedding) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning embedding write: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"DELETE FROM embeddings WHERE entity_type = ? AND entity_id = ?",
		string(e.EntityType), e.EntityID,
	); err != nil {
		return fmt.Errorf("replacing embedding: %w", err)
	}

	if _, err := tx.Exec(
		"INSERT INTO embeddings (entity_type, entity_id, embedding, text) VALUES (?, ?, ?, ?)",
		string(e.EntityType), e.EntityID, float32ToBytes(e.Vector), e.Text,
	); err != nil {
		return fmt.Errorf("inserting embedding: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing embedding write: %w", err)
	}
	return nil
}

// ListEmbeddings returns all stored vectors ordered by id.
func (s *SQLiteStore) ListEmbeddings(ctx context.Context) ([]*Embedding, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT entity_type, entity_id, embedding, text FROM embeddings ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing embeddings: %w", err)
	}
	defer rows.Close()

	var out []*Embedding
	for rows.Next() {
		var e Embedding
		var entityType string
		var blob []byte
		var text sql.NullString
		if err := rows.Scan(&entityType, &e.EntityID, &blob, &text); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		e.EntityType = EntityType(entityType)
		e.Vector = bytesToFloat32(blob)
		e.Text = text.String
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddings: %w", err)
	}
	return out, nil
}

// ClearEmbeddings drops all stored vectors (used before a full reindex).
func (s *SQLiteStore) ClearEmbeddings(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM embeddings"); err != nil {
		return fmt.Errorf("clearing embeddings: %w", err)
	}
	return nil
}

// float32ToBytes serializes a vector as little-endian float32s.
func float32ToBytes(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// bytesToFloat32 deserializes a little-endian float32 vector.
func bytesToFloat32(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
