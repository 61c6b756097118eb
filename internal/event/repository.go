package event

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/eventflow/internal/apperr"
	"github.com/redmonkez12/eventflow/internal/database"
)

var ErrNotFound = apperr.New(apperr.ErrNotFound, "event not found")

// Repository handles event persistence
type Repository struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, ownerID uuid.UUID, in Input) (*Event, error) {
	dbEvent := &database.Event{
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		StartsAt:    in.StartsAt.UTC(),
		CreatedBy:   ownerID,
	}

	_, err := r.db.NewInsert().
		Model(dbEvent).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, apperr.Transient("failed to create event", err)
	}

	return mapDBEventToModel(dbEvent), nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	dbEvent := new(database.Event)
	err := r.db.NewSelect().
		Model(dbEvent).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, apperr.Transient("failed to get event", err)
	}

	return mapDBEventToModel(dbEvent), nil
}

// List returns events ordered by start time.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]*Event, error) {
	var rows []database.Event
	q := r.db.NewSelect().
		Model(&rows).
		OrderExpr("starts_at ASC, id ASC").
		Limit(f.limit()).
		Offset(f.Offset)
	if f.CreatedBy != uuid.Nil {
		q = q.Where("created_by = ?", f.CreatedBy)
	}
	if f.UpcomingOnly {
		q = q.Where("starts_at >= ?", time.Now().UTC())
	}

	if err := q.Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Transient("failed to list events", err)
	}

	events := make([]*Event, 0, len(rows))
	for i := range rows {
		events = append(events, mapDBEventToModel(&rows[i]))
	}
	return events, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, in Input) (*Event, error) {
	dbEvent := &database.Event{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		StartsAt:    in.StartsAt.UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	result, err := r.db.NewUpdate().
		Model(dbEvent).
		Column("title", "description", "location", "starts_at", "updated_at").
		WherePK().
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, apperr.Transient("failed to update event", err)
	}
	if err := requireRow(result); err != nil {
		return nil, err
	}

	return mapDBEventToModel(dbEvent), nil
}

// Delete removes the event. Registrations and the stored score go with it
// through ON DELETE CASCADE.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.Event)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return apperr.Transient("failed to delete event", err)
	}

	return requireRow(result)
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperr.Transient("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func mapDBEventToModel(e *database.Event) *Event {
	return &Event{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		StartsAt:    e.StartsAt,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}
