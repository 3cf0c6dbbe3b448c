package sync

import (
	"math/big"
	"regexp"
	"strings"

	"demantive/internal/common/models"
	"demantive/internal/connectors"
	"demantive/internal/features/record"
)

const (
	defaultCompanyName = "Unknown Company"
	defaultDealName    = "Unnamed Deal"
)

// sourceProperties are tried in order when picking an opportunity source.
var sourceProperties = []string{"hs_campaign", "dealtype", "source", "hs_analytics_source"}

var hundred = big.NewRat(100, 1)

// plainDecimal rejects base prefixes, underscores, fractions and absurd exponents
// that big.Rat would otherwise accept.
var plainDecimal = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d{1,3})?$`)

// ParseAmountCents converts a decimal amount to minor units, rounding half away from zero.
// Empty or unparseable input yields nil.
func ParseAmountCents(amount string) *int64 {
	amount = strings.TrimSpace(amount)
	if !plainDecimal.MatchString(amount) {
		return nil
	}
	r, ok := new(big.Rat).SetString(amount)
	if !ok {
		return nil
	}
	r.Mul(r, hundred)

	num, den := r.Num(), r.Denom()
	quo, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	if rem.Sign() != 0 {
		twice := new(big.Int).Abs(rem)
		twice.Lsh(twice, 1)
		if twice.Cmp(den) >= 0 {
			if num.Sign() < 0 {
				quo.Sub(quo, big.NewInt(1))
			} else {
				quo.Add(quo, big.NewInt(1))
			}
		}
	}
	if !quo.IsInt64() {
		return nil
	}
	cents := quo.Int64()
	return &cents
}

// DeriveStatus maps a free-text stage to open, won or lost.
func DeriveStatus(stage string) record.OpportunityStatus {
	s := strings.ToLower(stage)
	switch {
	case strings.Contains(s, "closed won"), strings.Contains(s, "closedwon"):
		return record.StatusWon
	case strings.Contains(s, "closed lost"), strings.Contains(s, "closedlost"):
		return record.StatusLost
	default:
		return record.StatusOpen
	}
}

func PickSource(obj *connectors.Object) string {
	for _, name := range sourceProperties {
		if v := obj.Prop(name); v != "" {
			return v
		}
	}
	return ""
}

func companyFromObject(tenantID string, provider models.Provider, obj *connectors.Object) *record.Company {
	name := obj.Prop("name")
	if name == "" {
		name = defaultCompanyName
	}
	return &record.Company{
		TenantID:   tenantID,
		Provider:   provider,
		ExternalID: obj.ID,
		Name:       name,
		Domain:     record.StringPtr(obj.Prop("domain")),
		Industry:   record.StringPtr(obj.Prop("industry")),
	}
}

func personFromObject(tenantID string, provider models.Provider, obj *connectors.Object, companyID *string) *record.Person {
	return &record.Person{
		TenantID:   tenantID,
		Provider:   provider,
		ExternalID: obj.ID,
		Email:      record.StringPtr(obj.Prop("email")),
		FirstName:  record.StringPtr(obj.Prop("firstname")),
		LastName:   record.StringPtr(obj.Prop("lastname")),
		CompanyID:  companyID,
	}
}

func opportunityFromObject(tenantID string, provider models.Provider, obj *connectors.Object, companyID *string) *record.Opportunity {
	name := obj.Prop("dealname")
	if name == "" {
		name = defaultDealName
	}
	stage := obj.Prop("dealstage")
	return &record.Opportunity{
		TenantID:   tenantID,
		Provider:   provider,
		ExternalID: obj.ID,
		Name:       name,
		CompanyID:  companyID,
		Amount:     ParseAmountCents(obj.Prop("amount")),
		Stage:      record.StringPtr(stage),
		Status:     DeriveStatus(stage),
		CloseDate:  connectors.ParseTime(obj.Prop("closedate")),
		Source:     record.StringPtr(PickSource(obj)),
	}
}
