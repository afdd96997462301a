package metrics

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, path, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// EntriesTotal counts entry mutations by operation (added, deleted, imported).
	EntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "icarus_entries_total",
			Help: "Total number of entries added, deleted or imported",
		},
		[]string{"op"},
	)

	// ProteinGramsTotal sums the protein of every stored entry.
	ProteinGramsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "icarus_protein_grams_total",
			Help: "Protein grams logged across all users",
		},
	)
)

var (
	idPathSegment = regexp.MustCompile(`/([0-9]+|[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})(/|$)`)
	initOnce      sync.Once
)

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestDuration, RequestTotal, EntriesTotal, ProteinGramsTotal)
	})
}

// NormalizePath reduces cardinality by replacing numeric and UUID path segments with {id}.
// E.g. /user/deleteEntry/0b6f...c1 -> /user/deleteEntry/{id}.
func NormalizePath(path string) string {
	return idPathSegment.ReplaceAllString(path, "/{id}$2")
}

// RecordRequest records duration and count for an HTTP request.
func RecordRequest(method, path string, statusCode int, durationSeconds float64) {
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, path, status).Inc()
}

func EntriesAdded(n int, grams float64) {
	EntriesTotal.WithLabelValues("added").Add(float64(n))
	ProteinGramsTotal.Add(grams)
}

func EntriesImported(n int, grams float64) {
	EntriesTotal.WithLabelValues("imported").Add(float64(n))
	ProteinGramsTotal.Add(grams)
}

func EntryDeleted() {
	EntriesTotal.WithLabelValues("deleted").Inc()
}
