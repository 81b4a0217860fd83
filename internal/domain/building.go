package domain

import "time"

type Address struct {
	Street     string `json:"street,omitempty"`
	HouseNo    string `json:"house_number,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	City       string `json:"city,omitempty"`
	Country    string `json:"country,omitempty"`
}

// BuildingData is the construction section of a building.
type BuildingData struct {
	ConstructionYear int     `json:"baujahr,omitempty" validate:"omitempty,gte=1000,lte=2200"`
	Floors           int     `json:"geschosse,omitempty" validate:"gte=0"`
	PlotArea         float64 `json:"grundstuecksflaeche,omitempty" validate:"gte=0"`
	BuildingType     string  `json:"gebaeudeart,omitempty"`
	Heating          string  `json:"heizungsart,omitempty"`
}

type EnergyCertificate struct {
	Type        string     `json:"type,omitempty"`
	Class       string     `json:"class,omitempty"`
	Consumption float64    `json:"consumption_kwh,omitempty" validate:"gte=0"`
	ValidUntil  *time.Time `json:"valid_until,omitempty"`
}

// Unit is one rentable area (flat, shop, parking space) in a building.
type Unit struct {
	Name  string  `json:"name" validate:"notblank"`
	Type  string  `json:"type,omitempty"`
	Area  float64 `json:"flaeche" validate:"gte=0"`
	Rooms float64 `json:"zimmer,omitempty" validate:"gte=0"`
	Floor string  `json:"etage,omitempty"`
}

type OwnerShare struct {
	OwnerID string  `json:"owner_id,omitempty"`
	Name    string  `json:"name" validate:"notblank"`
	Percent float64 `json:"anteil_prozent" validate:"gte=0,lte=100"`
}

type Building struct {
	Record
	Name              string             `json:"name"`
	Address           Address            `json:"address"`
	GebaeudeData      *BuildingData      `json:"gebaeude_data,omitempty"`
	Energy            *EnergyCertificate `json:"energieausweis,omitempty"`
	FlaechenEinheiten []Unit             `json:"flaechen_einheiten,omitempty"`
	OwnerShares       []OwnerShare       `json:"owner_shares,omitempty"`
}

func (*Building) Kind() Kind { return KindBuilding }

// BuildingChild is implemented by the supporting kinds owned by a building.
type BuildingChild interface {
	Entity
	ParentID() string
}

type PropertyTax struct {
	Record
	BuildingID  string  `json:"building_id"`
	Year        int     `json:"year"`
	Amount      float64 `json:"amount"`
	DueDate     string  `json:"due_date,omitempty"`
	ReferenceNo string  `json:"reference_no,omitempty"`
}

func (*PropertyTax) Kind() Kind         { return KindPropertyTax }
func (p *PropertyTax) ParentID() string { return p.BuildingID }

type Supplier struct {
	Record
	BuildingID string `json:"building_id"`
	Name       string `json:"name"`
	Service    string `json:"service,omitempty"`
	Contact    string `json:"contact,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

func (*Supplier) Kind() Kind         { return KindSupplier }
func (s *Supplier) ParentID() string { return s.BuildingID }

type Meter struct {
	Record
	BuildingID  string  `json:"building_id"`
	Number      string  `json:"number"`
	Type        string  `json:"type"`
	Unit        string  `json:"unit,omitempty"`
	LastReading float64 `json:"last_reading,omitempty"`
	ReadingDate string  `json:"reading_date,omitempty"`
}

func (*Meter) Kind() Kind         { return KindMeter }
func (m *Meter) ParentID() string { return m.BuildingID }

type Financing struct {
	Record
	BuildingID   string  `json:"building_id"`
	Lender       string  `json:"lender"`
	Principal    float64 `json:"principal"`
	InterestRate float64 `json:"interest_rate,omitempty"`
	StartDate    string  `json:"start_date,omitempty"`
	EndDate      string  `json:"end_date,omitempty"`
}

func (*Financing) Kind() Kind         { return KindFinancing }
func (f *Financing) ParentID() string { return f.BuildingID }

type Insurance struct {
	Record
	BuildingID string  `json:"building_id"`
	Insurer    string  `json:"insurer"`
	Type       string  `json:"type,omitempty"`
	PolicyNo   string  `json:"policy_no,omitempty"`
	Premium    float64 `json:"premium,omitempty"`
	RenewsOn   string  `json:"renews_on,omitempty"`
}

func (*Insurance) Kind() Kind         { return KindInsurance }
func (i *Insurance) ParentID() string { return i.BuildingID }

type PurchaseContract struct {
	Record
	BuildingID   string  `json:"building_id"`
	Seller       string  `json:"seller,omitempty"`
	Price        float64 `json:"price"`
	SignedOn     string  `json:"signed_on,omitempty"`
	Notary       string  `json:"notary,omitempty"`
	TransferDate string  `json:"transfer_date,omitempty"`
}

func (*PurchaseContract) Kind() Kind         { return KindPurchaseContract }
func (p *PurchaseContract) ParentID() string { return p.BuildingID }

type Owner struct {
	Record
	BuildingID string `json:"building_id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`
}

func (*Owner) Kind() Kind         { return KindOwner }
func (o *Owner) ParentID() string { return o.BuildingID }
