package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/onnwee/wa-bridge/group"
	"github.com/onnwee/wa-bridge/whatsapp"
)

// PostgresSessionStore persists the session record in the sessions table.
// It is a drop-in replacement for MemorySessionStore behind the same contract.
type PostgresSessionStore struct {
	db *sql.DB
}

// NewPostgresSessionStore wraps an open database handle. The schema is
// expected to exist (db.Migrate).
func NewPostgresSessionStore(db *sql.DB) *PostgresSessionStore {
	return &PostgresSessionStore{db: db}
}

func (p *PostgresSessionStore) Put(ctx context.Context, s *whatsapp.Session) error {
	var name, number sql.NullString
	if s.Info != nil {
		name = sql.NullString{String: s.Info.Name, Valid: true}
		number = sql.NullString{String: s.Info.Number, Valid: true}
	}
	var connectedAt sql.NullTime
	if s.ConnectedAt != nil {
		connectedAt = sql.NullTime{Time: *s.ConnectedAt, Valid: true}
	}
	_, err := p.db.ExecContext(ctx, `
        INSERT INTO sessions (id, state, qr_code, client_name, client_number, connected_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())
        ON CONFLICT (id) DO UPDATE SET
            state = EXCLUDED.state,
            qr_code = EXCLUDED.qr_code,
            client_name = EXCLUDED.client_name,
            client_number = EXCLUDED.client_number,
            connected_at = EXCLUDED.connected_at,
            updated_at = NOW()
    `, s.ID, string(s.State), s.QRCode, name, number, connectedAt)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (p *PostgresSessionStore) Get(ctx context.Context, id string) (*whatsapp.Session, error) {
	row := p.db.QueryRowContext(ctx, `
        SELECT state, COALESCE(qr_code, ''), client_name, client_number, connected_at
        FROM sessions WHERE id = $1
    `, id)
	var (
		state        string
		qrCode       string
		name, number sql.NullString
		connectedAt  sql.NullTime
	)
	if err := row.Scan(&state, &qrCode, &name, &number, &connectedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select session: %w", err)
	}
	s := &whatsapp.Session{ID: id, State: whatsapp.State(state), QRCode: qrCode}
	if name.Valid {
		s.Info = &whatsapp.ClientInfo{Name: name.String, Number: number.String}
	}
	if connectedAt.Valid {
		at := connectedAt.Time
		s.ConnectedAt = &at
	}
	return s, nil
}

func (p *PostgresSessionStore) Delete(ctx context.Context, id string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PostgresGroupStore persists the group cache in the groups table; the
// position column preserves insertion order for stable listings.
type PostgresGroupStore struct {
	db *sql.DB
}

// NewPostgresGroupStore wraps an open database handle.
func NewPostgresGroupStore(db *sql.DB) *PostgresGroupStore {
	return &PostgresGroupStore{db: db}
}

func (p *PostgresGroupStore) ReplaceAll(ctx context.Context, groups []group.Group) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Warn("rollback failed", slog.Any("err", err))
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM groups`); err != nil {
		return fmt.Errorf("clear groups: %w", err)
	}
	for i, g := range groups {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO groups (id, name, description, participant_count, is_admin, created_at, position)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
        `, g.ID, g.Name, g.Description, g.ParticipantCount, g.IsAdmin, g.CreatedAt, i); err != nil {
			return fmt.Errorf("insert group %q: %w", g.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

func (p *PostgresGroupStore) All(ctx context.Context) ([]group.Group, error) {
	rows, err := p.db.QueryContext(ctx, `
        SELECT id, name, COALESCE(description, ''), participant_count, is_admin, created_at
        FROM groups ORDER BY position
    `)
	if err != nil {
		return nil, fmt.Errorf("select groups: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", slog.Any("err", err))
		}
	}()

	groups := make([]group.Group, 0)
	for rows.Next() {
		var g group.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.ParticipantCount, &g.IsAdmin, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}
	return groups, nil
}

func (p *PostgresGroupStore) ByID(ctx context.Context, id string) (*group.Group, error) {
	row := p.db.QueryRowContext(ctx, `
        SELECT id, name, COALESCE(description, ''), participant_count, is_admin, created_at
        FROM groups WHERE id = $1
    `, id)
	var g group.Group
	if err := row.Scan(&g.ID, &g.Name, &g.Description, &g.ParticipantCount, &g.IsAdmin, &g.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select group: %w", err)
	}
	return &g, nil
}

func (p *PostgresGroupStore) Clear(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM groups`); err != nil {
		return fmt.Errorf("clear groups: %w", err)
	}
	return nil
}
