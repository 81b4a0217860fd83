package store

import "github.com/vbonduro/propdesk/internal/domain"

// Collections bundles one typed collection per kind.
type Collections struct {
	Buildings         *Collection[domain.Building, *domain.Building]
	Problems          *Collection[domain.UserProblem, *domain.UserProblem]
	Solutions         *Collection[domain.ProblemSolution, *domain.ProblemSolution]
	Features          *Collection[domain.ProjectFeature, *domain.ProjectFeature]
	PropertyTaxes     *Collection[domain.PropertyTax, *domain.PropertyTax]
	Suppliers         *Collection[domain.Supplier, *domain.Supplier]
	Meters            *Collection[domain.Meter, *domain.Meter]
	Financings        *Collection[domain.Financing, *domain.Financing]
	Insurances        *Collection[domain.Insurance, *domain.Insurance]
	PurchaseContracts *Collection[domain.PurchaseContract, *domain.PurchaseContract]
	Owners            *Collection[domain.Owner, *domain.Owner]
}

func NewCollections(s *Store) *Collections {
	return &Collections{
		Buildings:         NewCollection[domain.Building](s),
		Problems:          NewCollection[domain.UserProblem](s).Manage("linked_feature_ids"),
		Solutions:         NewCollection[domain.ProblemSolution](s).Manage("published"),
		Features:          NewCollection[domain.ProjectFeature](s).Manage("verknuepfte_bugs"),
		PropertyTaxes:     NewCollection[domain.PropertyTax](s),
		Suppliers:         NewCollection[domain.Supplier](s),
		Meters:            NewCollection[domain.Meter](s),
		Financings:        NewCollection[domain.Financing](s),
		Insurances:        NewCollection[domain.Insurance](s),
		PurchaseContracts: NewCollection[domain.PurchaseContract](s),
		Owners:            NewCollection[domain.Owner](s),
	}
}

// Registry returns every collection keyed by kind.
func (c *Collections) Registry() Registry {
	r := make(Registry)
	for _, g := range []Generic{
		c.Buildings, c.Problems, c.Solutions, c.Features,
		c.PropertyTaxes, c.Suppliers, c.Meters, c.Financings,
		c.Insurances, c.PurchaseContracts, c.Owners,
	} {
		r.Register(g)
	}
	return r
}

// Children returns the building-scoped collections keyed by kind.
func (c *Collections) Children() Registry {
	r := make(Registry)
	for _, g := range []Generic{
		c.PropertyTaxes, c.Suppliers, c.Meters, c.Financings,
		c.Insurances, c.PurchaseContracts, c.Owners,
	} {
		r.Register(g)
	}
	return r
}
