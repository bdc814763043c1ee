// Package incident owns the incident record lifecycle: creation from a
// finished dialog draft, status transitions, and bulk export.
package incident

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Subham15-Dutta/roadresq/internal/db"
	"github.com/Subham15-Dutta/roadresq/internal/geo"
)

var (
	// ErrNotFound is returned when an incident id is unknown.
	ErrNotFound = errors.New("incident not found")
	// ErrBadStatus is returned for status values outside the lifecycle.
	ErrBadStatus = errors.New("unknown target status")
	// ErrIncomplete is returned when a draft is promoted before its
	// required slots are filled.
	ErrIncomplete = errors.New("draft missing type or people count")
)

// Store manages persistence of incidents. Ids are monotonic for the lifetime
// of the database and never reused; insertion order is creation order.
type Store struct {
	db *db.DB

	mu      sync.Mutex
	nextSeq int64
}

// NewStore creates an incident store, seeding the id sequence from the
// highest id already present.
func NewStore(database *db.DB) (*Store, error) {
	var maxSeq sql.NullInt64
	err := database.QueryRow(`SELECT MAX(seq) FROM incidents`).Scan(&maxSeq)
	if err != nil {
		return nil, fmt.Errorf("seeding incident sequence: %w", err)
	}
	return &Store{db: database, nextSeq: maxSeq.Int64 + 1}, nil
}

// Create promotes a draft to an incident: assigns a fresh id, stamps status
// New and the creation time, and appends it to the record sequence.
func (s *Store) Create(ctx context.Context, d Draft) (*Incident, error) {
	if d.Type == "" || d.PeopleCount < 1 {
		return nil, ErrIncomplete
	}
	location := d.Location
	if location == "" {
		location = "Unknown"
	}

	s.mu.Lock()
	seq := s.nextSeq
	s.nextSeq++
	s.mu.Unlock()

	inc := &Incident{
		ID:          fmt.Sprintf("INC-%04d", seq),
		Type:        d.Type,
		SubService:  d.SubService,
		Location:    location,
		Coordinates: d.Coordinates,
		PeopleCount: d.PeopleCount,
		CallerID:    d.CallerID,
		Status:      StatusNew,
		CreatedAt:   time.Now().UTC(),
	}

	var lat, lng sql.NullFloat64
	if inc.Coordinates != nil {
		lat = sql.NullFloat64{Float64: inc.Coordinates.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: inc.Coordinates.Lng, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO incidents (id, seq, type, sub_service, location, lat, lng, people_count, caller_id, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inc.ID, seq, inc.Type, inc.SubService, inc.Location, lat, lng,
		inc.PeopleCount, inc.CallerID, inc.Status, inc.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting incident: %w", err)
	}
	return inc, nil
}

const incidentColumns = `id, type, sub_service, location, lat, lng, people_count, caller_id, status, created_at`

func scanIncident(scan func(dest ...any) error) (*Incident, error) {
	var inc Incident
	var lat, lng sql.NullFloat64
	if err := scan(&inc.ID, &inc.Type, &inc.SubService, &inc.Location, &lat, &lng,
		&inc.PeopleCount, &inc.CallerID, &inc.Status, &inc.CreatedAt); err != nil {
		return nil, err
	}
	if lat.Valid && lng.Valid {
		inc.Coordinates = &geo.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
	}
	return &inc, nil
}

// GetByID retrieves an incident by id.
func (s *Store) GetByID(ctx context.Context, id string) (*Incident, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+incidentColumns+` FROM incidents WHERE id = ?`, id)
	inc, err := scanIncident(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting incident: %w", err)
	}
	return inc, nil
}

// List returns incidents matching the filter, oldest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE 1=1`
	args := []interface{}{}

	if filter.Type != "" {
		query += " AND type = ?"
		args = append(args, filter.Type)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Query != "" {
		query += ` AND LOWER(id || ' ' || location || ' ' || type || ' ' || sub_service || ' ' || caller_id || ' ' || status) LIKE ?`
		args = append(args, "%"+strings.ToLower(filter.Query)+"%")
	}

	query += " ORDER BY seq ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing incidents: %w", err)
	}
	defer rows.Close()

	var incidents []Incident
	for rows.Next() {
		inc, err := scanIncident(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning incident: %w", err)
		}
		incidents = append(incidents, *inc)
	}
	return incidents, rows.Err()
}

// UpdateStatus overwrites the status of the incident with the given id.
// Unknown ids and unknown target statuses are reported, non-fatal errors.
func (s *Store) UpdateStatus(ctx context.Context, id string, status Status) error {
	if !ValidStatus(status) {
		return fmt.Errorf("%w: %q", ErrBadStatus, status)
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE incidents SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ExportAll returns a snapshot of every incident in creation order. Pure
// read, no mutation.
func (s *Store) ExportAll(ctx context.Context) ([]Incident, error) {
	return s.List(ctx, ListFilter{})
}

// GetStats returns dashboard statistics.
func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM incidents`).Scan(&st.Total); err != nil {
		return st, fmt.Errorf("counting incidents: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM incidents WHERE status != ?`, StatusResolved).Scan(&st.Active); err != nil {
		return st, fmt.Errorf("counting active incidents: %w", err)
	}
	return st, nil
}
