package observability

import (
	"sync"
	"sync/atomic"
)

type StatsSnapshot struct {
	APICalls          uint64            `json:"api_calls"`
	VacanciesFetched  uint64            `json:"vacancies_fetched"`
	VacanciesDropped  uint64            `json:"vacancies_dropped"`
	EmployersFetched  uint64            `json:"employers_fetched"`
	RowsSaved         uint64            `json:"rows_saved"`
	ErrorsTotal       uint64            `json:"errors_total"`
	FetchSecondsAvg   float64           `json:"fetch_seconds_avg"`
	CallsByEndpoint   map[string]uint64 `json:"calls_by_endpoint,omitempty"`
	ErrorsByType      map[string]uint64 `json:"errors_by_type,omitempty"`
	ErrorsByComponent map[string]uint64 `json:"errors_by_component,omitempty"`
}

var (
	apiCalls         uint64
	vacanciesFetched uint64
	vacanciesDropped uint64
	employersFetched uint64
	rowsSaved        uint64
	errorsTotal      uint64

	fetchCount uint64
	fetchNanos uint64

	statsMu           sync.Mutex
	callsByEndpoint   = map[string]uint64{}
	errorsByType      = map[string]uint64{}
	errorsByComponent = map[string]uint64{}
)

func IncAPICall(endpoint string) {
	if endpoint == "" {
		endpoint = "unknown"
	}
	atomic.AddUint64(&apiCalls, 1)
	statsMu.Lock()
	callsByEndpoint[endpoint]++
	statsMu.Unlock()
}

func AddVacanciesFetched(n int) {
	if n > 0 {
		atomic.AddUint64(&vacanciesFetched, uint64(n))
	}
}

func AddVacanciesDropped(n int) {
	if n > 0 {
		atomic.AddUint64(&vacanciesDropped, uint64(n))
	}
}

func IncEmployersFetched() {
	atomic.AddUint64(&employersFetched, 1)
}

func AddRowsSaved(n int) {
	if n > 0 {
		atomic.AddUint64(&rowsSaved, uint64(n))
	}
}

func ObserveFetchDuration(seconds float64) {
	if seconds <= 0 {
		return
	}
	atomic.AddUint64(&fetchCount, 1)
	atomic.AddUint64(&fetchNanos, uint64(seconds*1e9))
}

func IncError(errType, component string) {
	if errType == "" {
		errType = "unknown"
	}
	if component == "" {
		component = "unknown"
	}
	atomic.AddUint64(&errorsTotal, 1)
	statsMu.Lock()
	errorsByType[errType]++
	errorsByComponent[component]++
	statsMu.Unlock()
}

func Snapshot() StatsSnapshot {
	statsMu.Lock()
	callsCopy := copyMap(callsByEndpoint)
	errorsTypeCopy := copyMap(errorsByType)
	errorsComponentCopy := copyMap(errorsByComponent)
	statsMu.Unlock()

	count := atomic.LoadUint64(&fetchCount)
	avg := 0.0
	if count > 0 {
		avg = float64(atomic.LoadUint64(&fetchNanos)) / float64(count) / 1e9
	}

	return StatsSnapshot{
		APICalls:          atomic.LoadUint64(&apiCalls),
		VacanciesFetched:  atomic.LoadUint64(&vacanciesFetched),
		VacanciesDropped:  atomic.LoadUint64(&vacanciesDropped),
		EmployersFetched:  atomic.LoadUint64(&employersFetched),
		RowsSaved:         atomic.LoadUint64(&rowsSaved),
		ErrorsTotal:       atomic.LoadUint64(&errorsTotal),
		FetchSecondsAvg:   avg,
		CallsByEndpoint:   callsCopy,
		ErrorsByType:      errorsTypeCopy,
		ErrorsByComponent: errorsComponentCopy,
	}
}

// Reset zeroes every counter.
func Reset() {
	for _, p := range []*uint64{&apiCalls, &vacanciesFetched, &vacanciesDropped, &employersFetched, &rowsSaved, &errorsTotal, &fetchCount, &fetchNanos} {
		atomic.StoreUint64(p, 0)
	}
	statsMu.Lock()
	callsByEndpoint = map[string]uint64{}
	errorsByType = map[string]uint64{}
	errorsByComponent = map[string]uint64{}
	statsMu.Unlock()
}

func copyMap(src map[string]uint64) map[string]uint64 {
	if len(src) == 0 {
		return map[string]uint64{}
	}
	out := make(map[string]uint64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
