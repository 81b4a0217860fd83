package domain

import "time"

// Record carries the fields every stored entity shares. The store assigns all
// of them; clients may not set them directly.
type Record struct {
	ID          string    `json:"id"`
	CreatedDate time.Time `json:"created_date"`
	UpdatedDate time.Time `json:"updated_date"`
	CreatedBy   string    `json:"created_by,omitempty"`
}

func (r *Record) Base() *Record { return r }

// Entity is implemented by pointers to every stored type.
type Entity interface {
	Base() *Record
	Kind() Kind
}

type Kind string

const (
	KindBuilding         Kind = "Building"
	KindUserProblem      Kind = "UserProblem"
	KindProblemSolution  Kind = "ProblemSolution"
	KindProjectFeature   Kind = "ProjectFeature"
	KindPropertyTax      Kind = "PropertyTax"
	KindSupplier         Kind = "Supplier"
	KindMeter            Kind = "Meter"
	KindFinancing        Kind = "Financing"
	KindInsurance        Kind = "Insurance"
	KindPurchaseContract Kind = "PurchaseContract"
	KindOwner            Kind = "Owner"
)

// BuildingChildKinds are the kinds scoped to a building through building_id.
var BuildingChildKinds = []Kind{
	KindPropertyTax,
	KindSupplier,
	KindMeter,
	KindFinancing,
	KindInsurance,
	KindPurchaseContract,
	KindOwner,
}

// ParseKind accepts a kind name as used in URLs.
func ParseKind(s string) (Kind, bool) {
	for _, k := range AllKinds() {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

func AllKinds() []Kind {
	return append([]Kind{KindBuilding, KindUserProblem, KindProblemSolution, KindProjectFeature}, BuildingChildKinds...)
}
