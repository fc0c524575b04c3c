package server

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "dropzone_http_requests_total",
	Help: "HTTP requests handled, by status class.",
}, []string{"class"})

func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}
