package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the subset of pgx that queries run against, satisfied by both
// *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries bundles all SQL access. One instance is shared across
// services.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type SketchRole string

const (
	SketchRoleOwner  SketchRole = "owner"
	SketchRoleEditor SketchRole = "editor"
)

type User struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
	CreatedAt   pgtype.Timestamptz
}

type Sketch struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

type SketchMember struct {
	SketchID string
	UserID   string
	Role     SketchRole
}

// MemberWithUser joins membership with the user's profile fields.
type MemberWithUser struct {
	UserID      string
	Role        SketchRole
	DisplayName string
	Email       string
}

// Snapshot is one persisted board state. Records holds the JSON record
// set produced by the board's serializer.
type Snapshot struct {
	ID        string
	SketchID  string
	Version   int32
	Records   []byte
	CreatedAt pgtype.Timestamptz
}

// --- Users ---

type CreateUserParams struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO users (id, email, password, display_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, password, display_name, created_at`,
		arg.ID, arg.Email, arg.Password, arg.DisplayName)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, err
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, email, password, display_name, created_at
		FROM users WHERE email = $1`, email)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, err
}

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, email, password, display_name, created_at
		FROM users WHERE id = $1`, id)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, err
}

// --- Sketches ---

type CreateSketchParams struct {
	ID      string
	Name    string
	OwnerID string
}

func (q *Queries) CreateSketch(ctx context.Context, arg CreateSketchParams) (Sketch, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO sketches (id, name, owner_id)
		VALUES ($1, $2, $3)
		RETURNING id, name, owner_id, created_at, updated_at`,
		arg.ID, arg.Name, arg.OwnerID)
	var s Sketch
	err := row.Scan(&s.ID, &s.Name, &s.OwnerID, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (q *Queries) GetSketch(ctx context.Context, id string) (Sketch, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, name, owner_id, created_at, updated_at
		FROM sketches WHERE id = $1`, id)
	var s Sketch
	err := row.Scan(&s.ID, &s.Name, &s.OwnerID, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (q *Queries) ListSketchesForUser(ctx context.Context, userID string) ([]Sketch, error) {
	rows, err := q.db.Query(ctx, `
		SELECT s.id, s.name, s.owner_id, s.created_at, s.updated_at
		FROM sketches s
		JOIN sketch_members m ON m.sketch_id = s.id
		WHERE m.user_id = $1
		ORDER BY s.updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sketches []Sketch
	for rows.Next() {
		var s Sketch
		if err := rows.Scan(&s.ID, &s.Name, &s.OwnerID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		sketches = append(sketches, s)
	}
	return sketches, rows.Err()
}

func (q *Queries) DeleteSketch(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx, `DELETE FROM sketches WHERE id = $1`, id)
	return err
}

// --- Members ---

type AddSketchMemberParams struct {
	SketchID string
	UserID   string
	Role     SketchRole
}

func (q *Queries) AddSketchMember(ctx context.Context, arg AddSketchMemberParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO sketch_members (sketch_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (sketch_id, user_id) DO NOTHING`,
		arg.SketchID, arg.UserID, arg.Role)
	return err
}

type GetSketchMemberParams struct {
	SketchID string
	UserID   string
}

func (q *Queries) GetSketchMember(ctx context.Context, arg GetSketchMemberParams) (SketchMember, error) {
	row := q.db.QueryRow(ctx, `
		SELECT sketch_id, user_id, role
		FROM sketch_members WHERE sketch_id = $1 AND user_id = $2`,
		arg.SketchID, arg.UserID)
	var m SketchMember
	err := row.Scan(&m.SketchID, &m.UserID, &m.Role)
	return m, err
}

func (q *Queries) ListSketchMembers(ctx context.Context, sketchID string) ([]MemberWithUser, error) {
	rows, err := q.db.Query(ctx, `
		SELECT m.user_id, m.role, u.display_name, u.email
		FROM sketch_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.sketch_id = $1
		ORDER BY u.display_name`, sketchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []MemberWithUser
	for rows.Next() {
		var m MemberWithUser
		if err := rows.Scan(&m.UserID, &m.Role, &m.DisplayName, &m.Email); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

type RemoveSketchMemberParams struct {
	SketchID string
	UserID   string
}

func (q *Queries) RemoveSketchMember(ctx context.Context, arg RemoveSketchMemberParams) error {
	_, err := q.db.Exec(ctx, `
		DELETE FROM sketch_members WHERE sketch_id = $1 AND user_id = $2`,
		arg.SketchID, arg.UserID)
	return err
}

// --- Snapshots ---

type CreateSnapshotParams struct {
	ID       string
	SketchID string
	Version  int32
	Records  []byte
}

func (q *Queries) CreateSnapshot(ctx context.Context, arg CreateSnapshotParams) (Snapshot, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO snapshots (id, sketch_id, version, records)
		VALUES ($1, $2, $3, $4)
		RETURNING id, sketch_id, version, records, created_at`,
		arg.ID, arg.SketchID, arg.Version, arg.Records)
	var s Snapshot
	err := row.Scan(&s.ID, &s.SketchID, &s.Version, &s.Records, &s.CreatedAt)
	return s, err
}

func (q *Queries) GetLatestSnapshot(ctx context.Context, sketchID string) (Snapshot, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, sketch_id, version, records, created_at
		FROM snapshots WHERE sketch_id = $1
		ORDER BY version DESC LIMIT 1`, sketchID)
	var s Snapshot
	err := row.Scan(&s.ID, &s.SketchID, &s.Version, &s.Records, &s.CreatedAt)
	return s, err
}
