/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircd

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metricsRegistry is a private registry rather than prometheus's global
// DefaultRegisterer, so a process that links this package twice in tests
// never panics on duplicate registration.
var metricsRegistry = prometheus.NewRegistry()

var (
	commandsTotal = promauto.With(metricsRegistry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "ircd_commands_total",
			Help: "IRC commands dispatched, by command name.",
		},
		[]string{"command"},
	)

	connectionsAcceptedTotal = promauto.With(metricsRegistry).NewCounter(
		prometheus.CounterOpts{
			Name: "ircd_connections_accepted_total",
			Help: "Connections accepted across all listeners (plaintext, TLS, websocket).",
		},
	)
)

// registerGauges wires GaugeFuncs directly against GlobalState so they
// always reflect the live registry with no separate bookkeeping to drift
// out of sync (§5 Concurrency & Resource Model).
func (server *Server) registerGauges() {
	promauto.With(metricsRegistry).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ircd_users_online",
		Help: "Currently connected and registered users.",
	}, func() float64 { return float64(server.State.UserCount()) })

	promauto.With(metricsRegistry).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ircd_channels_total",
		Help: "Currently existing channels.",
	}, func() float64 { return float64(server.State.ChannelCount()) })

	promauto.With(metricsRegistry).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ircd_operators_online",
		Help: "Currently connected IRC operators.",
	}, func() float64 { return float64(server.State.OperatorCount()) })

	promauto.With(metricsRegistry).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ircd_invisible_users",
		Help: "Currently connected users with user mode +i set.",
	}, func() float64 { return float64(server.State.InvisibleCount()) })

	promauto.With(metricsRegistry).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ircd_peak_users",
		Help: "Highest concurrent user count since server start.",
	}, func() float64 { return float64(server.State.PeakUsers()) })
}

// ServeMetrics starts the Prometheus/echo admin surface at addr, grounded
// directly on presbrey/pkg/echoprom's registry-plus-echo-handler shape
// (DOMAIN STACK: prometheus/client_golang, labstack/echo/v4).
func (server *Server) ServeMetrics(addr string) error {
	server.registerGauges()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{})))
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	log.Infof("ircd: starting metrics listener at local address [%s]", addr)
	return e.Start(addr)
}
