package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"

	"github.com/bft-labs/orderly/internal/metrics"
	"github.com/bft-labs/orderly/pkg/log"
)

// instrument records access logs and request metrics.
func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)

		route := "NotFound"
		if cur := mux.CurrentRoute(r); cur != nil && cur.GetName() != "" {
			route = cur.GetName()
		}

		metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(m.Code)).Inc()
		metrics.RequestDuration.WithLabelValues(route).Observe(m.Duration.Seconds())

		h.logger.Debug("handled",
			log.String("method", r.Method),
			log.String("url", r.URL.String()),
			log.String("route", route),
			log.Int("status", m.Code),
			log.Duration("duration", m.Duration),
		)
	})
}

// recoveryLogger adapts log.Logger to handlers.RecoveryHandlerLogger.
type recoveryLogger struct {
	logger log.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error("handler panic", log.String("panic", fmt.Sprint(v...)))
}
