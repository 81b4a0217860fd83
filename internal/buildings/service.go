// Package buildings manages buildings, their editable sections, and the
// supporting records (taxes, suppliers, meters, ...) that belong to them.
package buildings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/vbonduro/propdesk/internal/analytics"
	"github.com/vbonduro/propdesk/internal/domain"
	"github.com/vbonduro/propdesk/internal/store"
	"github.com/vbonduro/propdesk/internal/validate"
)

var (
	ErrUnknownSection = errors.New("unknown building section")
	ErrUnknownKind    = errors.New("not a building record kind")
)

// Sections that PatchSection can replace.
const (
	SectionAddress      = "address"
	SectionBuildingData = "gebaeude_data"
	SectionEnergy       = "energy"
	SectionUnits        = "flaechen_einheiten"
	SectionOwnerShares  = "owner_shares"
)

// shareTolerance is how far owner shares may drift from 100 percent.
const shareTolerance = 0.01

type txRunner interface {
	InTx(ctx context.Context, lockIDs []string, fn func(tx *store.Tx) error) error
}

// buildingRepository is the subset of store.Collection[domain.Building] that Service requires.
type buildingRepository interface {
	Filter(ctx context.Context, q store.Query) ([]*domain.Building, error)
	Get(ctx context.Context, id string) (*domain.Building, error)
	Create(ctx context.Context, b *domain.Building) (*domain.Building, error)
	Update(ctx context.Context, id string, patch map[string]any) (*domain.Building, error)
	Mutate(ctx context.Context, id string, fn func(*domain.Building) error) (*domain.Building, error)
	DeleteIn(ctx context.Context, tx *store.Tx, id string) error
}

type Service struct {
	tx        txRunner
	buildings buildingRepository
	children  store.Registry
	validator *validate.Validator
	logger    *slog.Logger
}

func NewService(tx txRunner, buildings buildingRepository, children store.Registry, validator *validate.Validator, logger *slog.Logger) *Service {
	return &Service{tx: tx, buildings: buildings, children: children, validator: validator, logger: logger}
}

type BuildingInput struct {
	Name    string         `json:"name" validate:"notblank,max=200"`
	Address domain.Address `json:"address"`
}

func (s *Service) CreateBuilding(ctx context.Context, createdBy string, in BuildingInput) (*domain.Building, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	b := &domain.Building{Name: strings.TrimSpace(in.Name), Address: in.Address}
	b.CreatedBy = createdBy
	created, err := s.buildings.Create(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to create building: %w", err)
	}
	return created, nil
}

func (s *Service) GetBuilding(ctx context.Context, id string) (*domain.Building, error) {
	return s.buildings.Get(ctx, id)
}

func (s *Service) ListBuildings(ctx context.Context) ([]*domain.Building, error) {
	return s.buildings.Filter(ctx, store.Query{Sort: "name"})
}

func (s *Service) UpdateBuilding(ctx context.Context, id string, patch map[string]any) (*domain.Building, error) {
	if name, ok := patch["name"]; ok {
		if err := s.validator.Var("name", name, "notblank"); err != nil {
			return nil, err
		}
	}
	return s.buildings.Update(ctx, id, patch)
}

// DeleteBuilding removes the building together with every record that
// belongs to it.
func (s *Service) DeleteBuilding(ctx context.Context, id string) error {
	return s.tx.InTx(ctx, []string{id}, func(tx *store.Tx) error {
		for kind, g := range s.children {
			n, err := g.DeleteWhereIn(ctx, tx, map[string]any{"building_id": id})
			if err != nil {
				return fmt.Errorf("failed to delete %s records: %w", kind, err)
			}
			if n > 0 {
				s.logger.Debug("deleted building records", "building_id", id, "kind", kind, "count", n)
			}
		}
		return s.buildings.DeleteIn(ctx, tx, id)
	})
}

// PatchSection replaces one section of a building with data.
func (s *Service) PatchSection(ctx context.Context, id, section string, data json.RawMessage) (*domain.Building, error) {
	apply, err := s.decodeSection(section, data)
	if err != nil {
		return nil, err
	}
	return s.buildings.Mutate(ctx, id, func(b *domain.Building) error {
		apply(b)
		return nil
	})
}

func (s *Service) decodeSection(section string, data json.RawMessage) (func(*domain.Building), error) {
	switch section {
	case SectionAddress:
		var v domain.Address
		if err := s.decode(section, data, &v); err != nil {
			return nil, err
		}
		return func(b *domain.Building) { b.Address = v }, nil
	case SectionBuildingData:
		var v domain.BuildingData
		if err := s.decode(section, data, &v); err != nil {
			return nil, err
		}
		return func(b *domain.Building) { b.GebaeudeData = &v }, nil
	case SectionEnergy:
		var v domain.EnergyCertificate
		if err := s.decode(section, data, &v); err != nil {
			return nil, err
		}
		return func(b *domain.Building) { b.Energy = &v }, nil
	case SectionUnits:
		var v []domain.Unit
		if err := s.decodeList(section, data, &v, func(i int) any { return v[i] }, func() int { return len(v) }); err != nil {
			return nil, err
		}
		return func(b *domain.Building) { b.FlaechenEinheiten = v }, nil
	case SectionOwnerShares:
		var v []domain.OwnerShare
		if err := s.decodeList(section, data, &v, func(i int) any { return v[i] }, func() int { return len(v) }); err != nil {
			return nil, err
		}
		return func(b *domain.Building) { b.OwnerShares = v }, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
}

func (s *Service) decode(section string, data json.RawMessage, v any) error {
	if err := decodeStrict(data, v); err != nil {
		return validate.Field(section, err.Error())
	}
	return s.validator.Struct(v)
}

// decodeList validates each element and reports failures as section[i].field.
func (s *Service) decodeList(section string, data json.RawMessage, v any, at func(int) any, n func() int) error {
	if err := decodeStrict(data, v); err != nil {
		return validate.Field(section, err.Error())
	}
	out := &validate.ValidationError{}
	for i := 0; i < n(); i++ {
		err := s.validator.Struct(at(i))
		var verr *validate.ValidationError
		if errors.As(err, &verr) {
			for _, fe := range verr.Fields {
				out.Fields = append(out.Fields, validate.FieldError{
					Field: fmt.Sprintf("%s[%d].%s", section, i, fe.Field),
					Error: fe.Error,
				})
			}
		} else if err != nil {
			return err
		}
	}
	if len(out.Fields) > 0 {
		return out
	}
	return nil
}

func decodeStrict(data json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid section data: %w", err)
	}
	return nil
}

type Summary struct {
	BuildingID    string              `json:"building_id"`
	Name          string              `json:"name"`
	Units         int                 `json:"units"`
	TotalArea     float64             `json:"total_area"`
	AvgUnitArea   float64             `json:"avg_unit_area"`
	OwnerShareSum float64             `json:"owner_share_sum"`
	SharesValid   bool                `json:"shares_valid"`
	Records       map[domain.Kind]int `json:"records"`
}

// Summary reports unit and ownership totals and how many supporting
// records of each kind the building has.
func (s *Service) Summary(ctx context.Context, id string) (*Summary, error) {
	b, err := s.buildings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sum := &Summary{
		BuildingID: b.ID,
		Name:       b.Name,
		Units:      len(b.FlaechenEinheiten),
		Records:    make(map[domain.Kind]int, len(s.children)),
	}
	for _, u := range b.FlaechenEinheiten {
		sum.TotalArea += u.Area
	}
	sum.TotalArea = math.Round(sum.TotalArea*100) / 100
	sum.AvgUnitArea = averageUnitArea(b)

	var shares float64
	for _, o := range b.OwnerShares {
		shares += o.Percent
	}
	sum.OwnerShareSum = math.Round(shares*100) / 100
	sum.SharesValid = len(b.OwnerShares) > 0 && math.Abs(shares-100) <= shareTolerance

	for kind, g := range s.children {
		n, err := g.Count(ctx, map[string]any{"building_id": id})
		if err != nil {
			return nil, err
		}
		sum.Records[kind] = n
	}
	return sum, nil
}

// averageUnitArea is the mean size of units with a known area.
func averageUnitArea(b *domain.Building) float64 {
	return analytics.Round1(analytics.AverageOf(b.FlaechenEinheiten, func(u domain.Unit) (float64, bool) {
		return u.Area, u.Area > 0
	}))
}
