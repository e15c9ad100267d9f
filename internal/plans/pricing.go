package plans

// BillingInterval is the subscription billing period.
type BillingInterval string

const (
	IntervalMonth BillingInterval = "month"
	IntervalYear  BillingInterval = "year"
)

// Pricing is the list price of a tier in whole dollars.
type Pricing struct {
	MonthlyPrice  int `json:"monthlyPrice"`
	AnnualMonthly int `json:"annualMonthlyPrice"`
	AnnualTotal   int `json:"annualTotalPrice"`
	AnnualSavings int `json:"annualSavings"`
}

var pricingTable = map[Tier]Pricing{
	TierFree:       {},
	TierPro:        {MonthlyPrice: 49, AnnualMonthly: 29, AnnualTotal: 348, AnnualSavings: 240},
	TierEnterprise: {MonthlyPrice: 149, AnnualMonthly: 89, AnnualTotal: 1068, AnnualSavings: 720},
}

// PricingFor returns list pricing for a tier.
func PricingFor(t Tier) Pricing {
	return pricingTable[ParseTier(string(t))]
}
