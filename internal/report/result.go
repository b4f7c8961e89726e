package report

// Kind discriminates the shape of a Result.
type Kind string

const (
	KindSingle  Kind = "single"
	KindGrouped Kind = "grouped"
	KindTime    Kind = "time"
	KindError   Kind = "error"
)

// GroupValue is one group of a single-valued result.
type GroupValue struct {
	Group string  `json:"group"`
	Value float64 `json:"value"`
}

// GroupedValue is one row of a grouped result.
type GroupedValue struct {
	Group1 string  `json:"group1"`
	Group2 string  `json:"group2"`
	Group3 string  `json:"group3"`
	Group4 string  `json:"group4"`
	Value  float64 `json:"value"`
}

func (g GroupedValue) tuple() [4]string {
	return [4]string{g.Group1, g.Group2, g.Group3, g.Group4}
}

// TimeValue is one bucket of one group of a time series.
type TimeValue struct {
	Group string  `json:"group"`
	Time  string  `json:"time"`
	Value float64 `json:"value"`
}

// Result is the outcome of resolving one key. Exactly one of the data
// fields is meaningful for each Kind.
type Result struct {
	Kind           Kind           `json:"kind"`
	SingleValue    []GroupValue   `json:"singleValue,omitempty"`
	GroupedData    []GroupedValue `json:"groupedData,omitempty"`
	TimeSeriesData []TimeValue    `json:"timeSeriesData,omitempty"`
	Error          bool           `json:"error,omitempty"`
	ErrorMessage   string         `json:"errorMessage,omitempty"`
}

func errorResult(msg string) Result {
	return Result{Kind: KindError, Error: true, ErrorMessage: msg}
}

// Total sums a single-valued result across its groups.
func (r Result) Total() float64 {
	var total float64
	for _, v := range r.SingleValue {
		total += v.Value
	}
	return total
}

// NoDataMessage is the error message of a grouped key matching nothing.
const NoDataMessage = "No data found"

// DatabaseErrorMessage replaces storage failures in results.
const DatabaseErrorMessage = "Database Error"
