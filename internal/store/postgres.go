package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"channelhub/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

// Migrate applies the embedded schema files in name order. Every file is idempotent.
func (p *Postgres) Migrate(ctx context.Context) error {
	names, err := migrationNames(migrationsFS)
	if err != nil {
		return err
	}
	for _, name := range names {
		b, err := migrationsFS.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := p.db.ExecContext(ctx, string(b)); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
	}
	return nil
}

func migrationNames(fsys fs.FS) ([]string, error) {
	names, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (p *Postgres) GetLocalInventory(ctx context.Context, propertyID string) ([]model.InventoryItem, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT room_type_id, rate_plan_id, to_char(date,'YYYY-MM-DD'), availability, rate::float8, currency
        FROM inventory WHERE property_id=$1 ORDER BY room_type_id, rate_plan_id, date`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.InventoryItem{}
	for rows.Next() {
		var it model.InventoryItem
		if err := rows.Scan(&it.RoomTypeID, &it.RatePlanID, &it.Date, &it.Availability, &it.Rate, &it.Currency); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// GetLocalRates reads the rates table and falls back to the inventory grid's prices when it is empty.
func (p *Postgres) GetLocalRates(ctx context.Context, propertyID string) ([]model.RateItem, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT room_type_id, rate_plan_id, to_char(date,'YYYY-MM-DD'), rate::float8, currency
        FROM rates WHERE property_id=$1 ORDER BY room_type_id, rate_plan_id, date`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.RateItem{}
	for rows.Next() {
		var r model.RateItem
		if err := rows.Scan(&r.RoomTypeID, &r.RatePlanID, &r.Date, &r.Rate, &r.Currency); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) > 0 {
		return out, nil
	}
	inv, err := p.GetLocalInventory(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	for _, it := range inv {
		out = append(out, model.RateItem{RoomTypeID: it.RoomTypeID, RatePlanID: it.RatePlanID, Date: it.Date, Rate: it.Rate, Currency: it.Currency})
	}
	return out, nil
}

func (p *Postgres) GetLocalRestrictions(ctx context.Context, propertyID string) ([]model.RestrictionItem, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT room_type_id, rate_plan_id, to_char(date,'YYYY-MM-DD'), min_stay, max_stay, closed_to_arrival, closed_to_departure, stop_sell
        FROM restrictions WHERE property_id=$1 ORDER BY room_type_id, rate_plan_id, date`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.RestrictionItem{}
	for rows.Next() {
		var r model.RestrictionItem
		if err := rows.Scan(&r.RoomTypeID, &r.RatePlanID, &r.Date, &r.MinStay, &r.MaxStay, &r.ClosedToArrival, &r.ClosedToDeparture, &r.StopSell); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const configColumns = `property_id, channel, enabled, channel_property_id, base_url, credentials, room_mappings, rate_plan_mappings, sync, updated_at`

func scanConfig(row interface{ Scan(dest ...any) error }) (model.PropertyChannelConfig, error) {
	var c model.PropertyChannelConfig
	var creds, rooms, plans, syncSettings []byte
	if err := row.Scan(&c.PropertyID, &c.Channel, &c.Enabled, &c.ChannelPropertyID, &c.BaseURL, &creds, &rooms, &plans, &syncSettings, &c.UpdatedAt); err != nil {
		return c, err
	}
	for _, f := range []struct {
		raw []byte
		dst any
	}{{creds, &c.Credentials}, {rooms, &c.RoomMappings}, {plans, &c.RatePlanMappings}, {syncSettings, &c.Sync}} {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return c, fmt.Errorf("decode channel config %s/%s: %w", c.PropertyID, c.Channel, err)
		}
	}
	return c, nil
}

func (p *Postgres) GetPropertyChannelConfig(ctx context.Context, propertyID, channel string) (*model.PropertyChannelConfig, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+configColumns+` FROM channel_configs WHERE property_id=$1 AND channel=$2`, propertyID, strings.ToLower(channel))
	c, err := scanConfig(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (p *Postgres) SavePropertyChannelConfig(ctx context.Context, c model.PropertyChannelConfig) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO channel_configs (`+configColumns+`)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now())
        ON CONFLICT (property_id, channel) DO UPDATE SET enabled=EXCLUDED.enabled, channel_property_id=EXCLUDED.channel_property_id,
            base_url=EXCLUDED.base_url, credentials=EXCLUDED.credentials, room_mappings=EXCLUDED.room_mappings,
            rate_plan_mappings=EXCLUDED.rate_plan_mappings, sync=EXCLUDED.sync, updated_at=now()`,
		c.PropertyID, strings.ToLower(c.Channel), c.Enabled, c.ChannelPropertyID, c.BaseURL,
		toJSON(c.Credentials), toJSON(c.RoomMappings), toJSON(c.RatePlanMappings), toJSON(c.Sync))
	return err
}

func (p *Postgres) listConfigs(ctx context.Context, where string, args ...any) ([]model.PropertyChannelConfig, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+configColumns+` FROM channel_configs WHERE `+where+` ORDER BY property_id, channel`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.PropertyChannelConfig{}
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) ListPropertyChannelConfigs(ctx context.Context, propertyID string) ([]model.PropertyChannelConfig, error) {
	return p.listConfigs(ctx, `property_id=$1`, propertyID)
}

func (p *Postgres) ListEnabledChannelConfigs(ctx context.Context) ([]model.PropertyChannelConfig, error) {
	return p.listConfigs(ctx, `enabled`)
}

func (p *Postgres) RecordSyncOutcome(ctx context.Context, o model.SyncOutcome) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.RecordedAt.IsZero() {
		o.RecordedAt = time.Now().UTC()
	}
	var details any
	if len(o.Details) > 0 {
		details = toJSON(o.Details)
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO sync_log (id, property_id, channel, operation, status, synced, failed, details, recorded_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		o.ID, o.PropertyID, o.Channel, string(o.Operation), o.Status, o.Synced, o.Failed, details, o.RecordedAt)
	return err
}

func (p *Postgres) LastSync(ctx context.Context, propertyID, channel string) (*time.Time, error) {
	var t sql.NullTime
	err := p.db.QueryRowContext(ctx, `SELECT max(recorded_at) FROM sync_log WHERE property_id=$1 AND channel=$2 AND status <> $3`,
		propertyID, channel, model.OutcomeFailed).Scan(&t)
	if err != nil {
		return nil, err
	}
	if !t.Valid {
		return nil, nil
	}
	v := t.Time.UTC()
	return &v, nil
}

func (p *Postgres) ListSyncOutcomes(ctx context.Context, propertyID, channel string, limit int) ([]model.SyncOutcome, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, property_id, channel, operation, status, synced, failed, details, recorded_at
        FROM sync_log WHERE property_id=$1 AND ($2 = '' OR channel=$2) ORDER BY recorded_at DESC LIMIT $3`, propertyID, channel, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.SyncOutcome{}
	for rows.Next() {
		var o model.SyncOutcome
		var op string
		var details []byte
		if err := rows.Scan(&o.ID, &o.PropertyID, &o.Channel, &op, &o.Status, &o.Synced, &o.Failed, &details, &o.RecordedAt); err != nil {
			return nil, err
		}
		o.Operation = model.SyncKind(op)
		if len(details) > 0 {
			_ = json.Unmarshal(details, &o.Details)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpsertBookings writes every booking in one transaction. xmax = 0 distinguishes inserts from updates.
func (p *Postgres) UpsertBookings(ctx context.Context, bookings []model.Booking) (int, int, error) {
	if len(bookings) == 0 {
		return 0, 0, nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback() }()
	created, updated := 0, 0
	for _, b := range bookings {
		payload, err := json.Marshal(b)
		if err != nil {
			return 0, 0, err
		}
		var inserted bool
		err = tx.QueryRowContext(ctx, `INSERT INTO bookings (channel, external_id, property_id, status, check_in, check_out, payload, updated_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7,now())
            ON CONFLICT (channel, external_id) DO UPDATE SET property_id=EXCLUDED.property_id, status=EXCLUDED.status,
                check_in=EXCLUDED.check_in, check_out=EXCLUDED.check_out, payload=EXCLUDED.payload, updated_at=now()
            RETURNING (xmax = 0)`,
			b.Channel, b.ExternalID, b.PropertyID, string(b.Status), b.CheckIn, b.CheckOut, payload).Scan(&inserted)
		if err != nil {
			return 0, 0, err
		}
		if inserted {
			created++
		} else {
			updated++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return created, updated, nil
}

func (p *Postgres) ListBookings(ctx context.Context, propertyID, channel string) ([]model.Booking, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT payload FROM bookings WHERE property_id=$1 AND ($2 = '' OR channel=$2) ORDER BY channel, external_id`, propertyID, channel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var b model.Booking
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// toJSON encodes v for a jsonb column; nil maps become '{}'.
func toJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return []byte("{}")
	}
	return b
}
