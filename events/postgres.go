package events

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	"github.com/gobusker/gobusker-map/geo"
	"github.com/gobusker/gobusker-map/logging"
	"github.com/gobusker/gobusker-map/telemetry"
)

// listEventsSQL reads events with their organizer and accepted request count.
// $2..$5 bound the box and are all NULL when no bounds are given.
const listEventsSQL = `
	SELECT e.id::text, e.title, e.latitude, e.longitude, e.start_time,
	       COALESCE(e.location_name, ''), e.event_type, e.max_performers,
	       e.accepting_requests,
	       p.id::text, COALESCE(p.display_name, ''), COALESCE(p.avatar_url, ''),
	       (SELECT count(*) FROM event_requests r
	         WHERE r.event_id = e.id AND r.status = 'accepted') AS accepted_count
	FROM events e
	LEFT JOIN profiles p ON p.id = e.organizer_id
	WHERE ($1::timestamptz IS NULL OR e.start_time >= $1)
	  AND ($2::float8 IS NULL OR e.latitude BETWEEN $2 AND $3)
	  AND ($4::float8 IS NULL OR e.longitude BETWEEN $4 AND $5)
	ORDER BY e.start_time
	LIMIT $6
`

// PostgresSource reads markers from the events database. It never writes.
type PostgresSource struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *logging.Logger
}

// NewPostgresSource creates a source over pool. tracer may be nil.
func NewPostgresSource(pool *pgxpool.Pool, tracer trace.Tracer, logger *logging.Logger) *PostgresSource {
	return &PostgresSource{
		pool:   pool,
		tracer: tracer,
		logger: logging.OrNop(logger).WithComponent("events.postgres"),
	}
}

// List implements Source.
func (s *PostgresSource) List(ctx context.Context, opts ListOptions) ([]Marker, error) {
	var from *time.Time
	if !opts.From.IsZero() {
		from = &opts.From
	}
	var minLat, maxLat, minLng, maxLng *float64
	if b := opts.Bounds; b != nil {
		minLat, maxLat, minLng, maxLng = &b.MinLat, &b.MaxLat, &b.MinLng, &b.MaxLng
	}

	var markers []Marker
	err := telemetry.TraceQuery(ctx, s.tracer, "events", func(ctx context.Context) (int, error) {
		rows, err := s.pool.Query(ctx, listEventsSQL, from, minLat, maxLat, minLng, maxLng, opts.limit())
		if err != nil {
			return 0, err
		}
		markers, err = pgx.CollectRows(rows, scanMarker)
		return len(markers), err
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	s.logger.Debug("listed events", "count", len(markers))
	return markers, nil
}

func scanMarker(row pgx.CollectableRow) (Marker, error) {
	var (
		m             Marker
		lat, lng      float64
		start         time.Time
		eventType     string
		maxPerformers *int32
		organizerID   *string
		organizerName string
		avatarURL     string
		accepted      int64
	)
	err := row.Scan(
		&m.ID, &m.Title, &lat, &lng, &start,
		&m.LocationName, &eventType, &maxPerformers,
		&m.AcceptingRequests,
		&organizerID, &organizerName, &avatarURL,
		&accepted,
	)
	if err != nil {
		return Marker{}, err
	}

	m.Coordinate = geo.NewCoordinate(lat, lng)
	m.StartTime = start.Format(time.RFC3339)
	m.EventType = EventType(eventType)
	if maxPerformers != nil {
		n := int(*maxPerformers)
		m.MaxPerformers = &n
	}
	count := int(accepted)
	m.AcceptedCount = &count
	if organizerID != nil {
		m.Organizer = &ProfileRef{ID: *organizerID, DisplayName: organizerName, AvatarURL: avatarURL}
	}
	return m, nil
}
