package ml

const (
	FeatureAge                 = "age"
	FeatureEducation           = "education"
	FeatureMaritalStatus       = "marital_status"
	FeatureOccupation          = "occupation"
	FeatureSex                 = "sex"
	FeatureHoursPerWeek        = "hours_per_week"
	FeatureCapitalGain         = "capital_gain"
	FeatureCapitalLoss         = "capital_loss"
	FeatureMaritalStatusBinary = "marital_status_binary"

	// IncomeField names the encoder that decodes class indexes to labels.
	IncomeField = "income"
	// HighIncomeLabel is the income class shown as the favourable outcome.
	HighIncomeLabel = ">50K"
)

// DefaultFeatureOrder is the order fields are assembled in. It is used only
// when the model does not declare its own column order.
var DefaultFeatureOrder = []string{
	FeatureAge,
	FeatureEducation,
	FeatureMaritalStatus,
	FeatureOccupation,
	FeatureSex,
	FeatureHoursPerWeek,
	FeatureCapitalGain,
	FeatureCapitalLoss,
	FeatureMaritalStatusBinary,
}

// CategoricalFeatures lists the fields that go through an encoder.
var CategoricalFeatures = []string{
	FeatureSex,
	FeatureEducation,
	FeatureMaritalStatus,
	FeatureOccupation,
}

type Profile struct {
	Age           int    `json:"age"`
	Sex           string `json:"sex"`
	Education     string `json:"education"`
	MaritalStatus string `json:"marital_status"`
	Occupation    string `json:"occupation"`
	HoursPerWeek  int    `json:"hours_per_week"`
	CapitalGain   int    `json:"capital_gain"`
	CapitalLoss   int    `json:"capital_loss"`
}

// Range is the accepted interval of a numeric form field and its initial value.
type Range struct {
	Min     int `json:"min"`
	Max     int `json:"max"`
	Default int `json:"default"`
}

var (
	AgeRange          = Range{Min: 18, Max: 90, Default: 30}
	HoursPerWeekRange = Range{Min: 1, Max: 100, Default: 40}
	CapitalRange      = Range{Min: 0, Max: 99999, Default: 0}
)

func (r Range) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

func (r Range) Clamp(v int) int {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

var marriedStatuses = map[string]struct{}{
	"Married-civ-spouse": {},
	"Married-AF-spouse":  {},
}

func MaritalStatusBinary(status string) int {
	if _, ok := marriedStatuses[status]; ok {
		return 1
	}
	return 0
}
