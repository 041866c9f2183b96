package store

import (
	"context"

	"github.com/google/uuid"

	"hairdash/internal/models"
)

const instructionColumns = `instruction_id::text, title, content, category, priority, is_active, created_at, updated_at`

// ListInstructions orders by priority so the chatbot can read them top-down.
func (s *Store) ListInstructions(ctx context.Context, active *bool) ([]models.BotInstruction, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+instructionColumns+` FROM bot_instructions
		WHERE ($1::boolean IS NULL OR is_active=$1) ORDER BY priority DESC, created_at`, active)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []models.BotInstruction{}
	for rows.Next() {
		b, err := scanInstruction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

func (s *Store) CreateInstruction(ctx context.Context, b models.BotInstruction) (models.BotInstruction, error) {
	b.InstructionID = uuid.NewString()
	row := s.DB.QueryRow(ctx, `
		INSERT INTO bot_instructions (instruction_id, title, content, category, priority, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+instructionColumns,
		b.InstructionID, b.Title, b.Content, b.Category, b.Priority, b.IsActive)
	out, err := scanInstruction(row)
	return out, mapErr(err)
}

func (s *Store) UpdateInstruction(ctx context.Context, b models.BotInstruction) (models.BotInstruction, error) {
	if _, err := uuid.Parse(b.InstructionID); err != nil {
		return models.BotInstruction{}, ErrNotFound
	}
	row := s.DB.QueryRow(ctx, `
		UPDATE bot_instructions SET title=$2, content=$3, category=$4, priority=$5, is_active=$6, updated_at=now()
		WHERE instruction_id=$1
		RETURNING `+instructionColumns,
		b.InstructionID, b.Title, b.Content, b.Category, b.Priority, b.IsActive)
	out, err := scanInstruction(row)
	return out, mapErr(err)
}

func (s *Store) DeleteInstruction(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	return affected(s.DB.Exec(ctx, `DELETE FROM bot_instructions WHERE instruction_id=$1`, id))
}

func scanInstruction(row scannable) (models.BotInstruction, error) {
	var b models.BotInstruction
	err := row.Scan(&b.InstructionID, &b.Title, &b.Content, &b.Category, &b.Priority, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}
