package models

// ServiceCode identifies one of the fixed promotion service tiers
type ServiceCode string

const (
	ServiceSinglePost ServiceCode = "S1"
	ServiceSeries     ServiceCode = "S2"
	ServiceCampaign   ServiceCode = "S3"
)

// Service describes a purchasable promotion service
type Service struct {
	Code        ServiceCode `json:"code"`
	Type        string      `json:"type"`
	Price       float64     `json:"price"`
	Description string      `json:"description"`
	Posts       int         `json:"posts"`
}

// ServiceCatalog maps each service code to its fixed price and content shape
var ServiceCatalog = map[ServiceCode]Service{
	ServiceSinglePost: {
		Code:        ServiceSinglePost,
		Type:        "Single Post",
		Price:       0.1,
		Description: "Single promotional tweet",
		Posts:       1,
	},
	ServiceSeries: {
		Code:        ServiceSeries,
		Type:        "Series",
		Price:       0.25,
		Description: "Three related promotional tweets",
		Posts:       3,
	},
	ServiceCampaign: {
		Code:        ServiceCampaign,
		Type:        "Campaign",
		Price:       0.5,
		Description: "Full promotional campaign",
		Posts:       5,
	},
}

// ValidServiceCode reports whether code names a catalog entry.
func ValidServiceCode(code ServiceCode) bool {
	_, ok := ServiceCatalog[code]
	return ok
}

// ServicePrice returns the fixed price for a service code, 0 if unknown.
func ServicePrice(code ServiceCode) float64 {
	return ServiceCatalog[code].Price
}
