package sketch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/geometer/geometer/backend-go/internal/db"
	"github.com/geometer/geometer/backend-go/internal/typeid"
)

var (
	ErrNotFound  = errors.New("sketch not found")
	ErrForbidden = errors.New("forbidden")
	ErrNotMember = errors.New("not a sketch member")
)

type Service struct {
	queries *db.Queries
}

func NewService(queries *db.Queries) *Service {
	return &Service{queries: queries}
}

type Sketch struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"ownerId"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type Member struct {
	UserID      string `json:"userId"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

func (s *Service) Create(ctx context.Context, name, ownerID string) (*Sketch, error) {
	sketchID := typeid.NewSketchID()

	dbSketch, err := s.queries.CreateSketch(ctx, db.CreateSketchParams{
		ID:      sketchID,
		Name:    name,
		OwnerID: ownerID,
	})
	if err != nil {
		return nil, fmt.Errorf("create sketch: %w", err)
	}

	// Add owner as member
	err = s.queries.AddSketchMember(ctx, db.AddSketchMemberParams{
		SketchID: sketchID,
		UserID:   ownerID,
		Role:     db.SketchRoleOwner,
	})
	if err != nil {
		return nil, fmt.Errorf("add owner as member: %w", err)
	}

	// Seed an empty board snapshot so the collab hub always has a state
	// to load.
	_, err = s.queries.CreateSnapshot(ctx, db.CreateSnapshotParams{
		ID:       typeid.NewSnapshotID(),
		SketchID: sketchID,
		Version:  1,
		Records:  []byte("[]"),
	})
	if err != nil {
		return nil, fmt.Errorf("create initial snapshot: %w", err)
	}

	return dbSketchToSketch(dbSketch), nil
}

func (s *Service) Get(ctx context.Context, sketchID, userID string) (*Sketch, error) {
	if err := s.checkMembership(ctx, sketchID, userID); err != nil {
		return nil, err
	}

	dbSketch, err := s.queries.GetSketch(ctx, sketchID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get sketch: %w", err)
	}

	return dbSketchToSketch(dbSketch), nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Sketch, error) {
	dbSketches, err := s.queries.ListSketchesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sketches: %w", err)
	}

	sketches := make([]Sketch, len(dbSketches))
	for i, sk := range dbSketches {
		sketches[i] = *dbSketchToSketch(sk)
	}

	return sketches, nil
}

func (s *Service) Delete(ctx context.Context, sketchID, userID string) error {
	dbSketch, err := s.queries.GetSketch(ctx, sketchID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("get sketch: %w", err)
	}

	if dbSketch.OwnerID != userID {
		return ErrForbidden
	}

	return s.queries.DeleteSketch(ctx, sketchID)
}

func (s *Service) InviteByEmail(ctx context.Context, sketchID, ownerID, inviteeEmail string) error {
	// Verify the requester is the owner
	dbSketch, err := s.queries.GetSketch(ctx, sketchID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("get sketch: %w", err)
	}

	if dbSketch.OwnerID != ownerID {
		return ErrForbidden
	}

	invitee, err := s.queries.GetUserByEmail(ctx, inviteeEmail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errors.New("user not found")
		}
		return fmt.Errorf("find user: %w", err)
	}

	return s.queries.AddSketchMember(ctx, db.AddSketchMemberParams{
		SketchID: sketchID,
		UserID:   invitee.ID,
		Role:     db.SketchRoleEditor,
	})
}

func (s *Service) ListMembers(ctx context.Context, sketchID, userID string) ([]Member, error) {
	if err := s.checkMembership(ctx, sketchID, userID); err != nil {
		return nil, err
	}

	dbMembers, err := s.queries.ListSketchMembers(ctx, sketchID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	members := make([]Member, len(dbMembers))
	for i, m := range dbMembers {
		members[i] = Member{
			UserID:      m.UserID,
			Role:        string(m.Role),
			DisplayName: m.DisplayName,
			Email:       m.Email,
		}
	}

	return members, nil
}

func (s *Service) RemoveMember(ctx context.Context, sketchID, ownerID, targetUserID string) error {
	dbSketch, err := s.queries.GetSketch(ctx, sketchID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("get sketch: %w", err)
	}

	if dbSketch.OwnerID != ownerID {
		return ErrForbidden
	}

	if targetUserID == ownerID {
		return errors.New("cannot remove sketch owner")
	}

	return s.queries.RemoveSketchMember(ctx, db.RemoveSketchMemberParams{
		SketchID: sketchID,
		UserID:   targetUserID,
	})
}

func (s *Service) GetLatestSnapshot(ctx context.Context, sketchID, userID string) (json.RawMessage, error) {
	if err := s.checkMembership(ctx, sketchID, userID); err != nil {
		return nil, err
	}

	snap, err := s.queries.GetLatestSnapshot(ctx, sketchID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	return snap.Records, nil
}

func (s *Service) checkMembership(ctx context.Context, sketchID, userID string) error {
	_, err := s.queries.GetSketchMember(ctx, db.GetSketchMemberParams{
		SketchID: sketchID,
		UserID:   userID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotMember
		}
		return fmt.Errorf("check membership: %w", err)
	}
	return nil
}

func dbSketchToSketch(s db.Sketch) *Sketch {
	return &Sketch{
		ID:        s.ID,
		Name:      s.Name,
		OwnerID:   s.OwnerID,
		CreatedAt: s.CreatedAt.Time.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: s.UpdatedAt.Time.Format("2006-01-02T15:04:05Z"),
	}
}
