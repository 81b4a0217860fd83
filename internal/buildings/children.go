package buildings

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vbonduro/propdesk/internal/domain"
	"github.com/vbonduro/propdesk/internal/store"
	"github.com/vbonduro/propdesk/internal/validate"
)

func (s *Service) child(kind domain.Kind) (store.Generic, error) {
	g, ok := s.children.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return g, nil
}

// ListRecords returns the building's records of one supporting kind.
func (s *Service) ListRecords(ctx context.Context, buildingID string, kind domain.Kind) (any, error) {
	g, err := s.child(kind)
	if err != nil {
		return nil, err
	}
	if _, err := s.buildings.Get(ctx, buildingID); err != nil {
		return nil, err
	}
	return g.FilterRecords(ctx, store.Query{Where: map[string]any{"building_id": buildingID}})
}

// CreateRecord stores a supporting record under buildingID. A building_id in
// data is overwritten.
func (s *Service) CreateRecord(ctx context.Context, buildingID string, kind domain.Kind, data []byte, createdBy string) (any, error) {
	g, err := s.child(kind)
	if err != nil {
		return nil, err
	}
	if _, err := s.buildings.Get(ctx, buildingID); err != nil {
		return nil, err
	}

	fields := make(map[string]any)
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidPatch, err)
	}
	fields["building_id"] = buildingID
	scoped, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return g.CreateRecord(ctx, scoped, createdBy)
}

// UpdateRecord patches a supporting record. The record must belong to
// buildingID and cannot be moved to another building.
func (s *Service) UpdateRecord(ctx context.Context, buildingID string, kind domain.Kind, id string, patch map[string]any) (any, error) {
	g, err := s.owned(ctx, buildingID, kind, id)
	if err != nil {
		return nil, err
	}
	if moved, ok := patch["building_id"]; ok && moved != buildingID {
		return nil, validate.Field("building_id", "building_id cannot be changed")
	}
	return g.UpdateRecord(ctx, id, patch)
}

func (s *Service) DeleteRecord(ctx context.Context, buildingID string, kind domain.Kind, id string) error {
	g, err := s.owned(ctx, buildingID, kind, id)
	if err != nil {
		return err
	}
	return g.Delete(ctx, id)
}

// owned reports ErrNotFound for records that exist under another building.
func (s *Service) owned(ctx context.Context, buildingID string, kind domain.Kind, id string) (store.Generic, error) {
	g, err := s.child(kind)
	if err != nil {
		return nil, err
	}
	rec, err := g.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	child, ok := rec.(domain.BuildingChild)
	if !ok || child.ParentID() != buildingID {
		return nil, fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
	}
	return g, nil
}
