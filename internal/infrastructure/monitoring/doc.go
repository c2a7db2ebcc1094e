/*
Package monitoring provides Prometheus metrics for the provisioning service.

# Overview

Collectors cover HTTP traffic, provisioning attempts and their latency,
virtual environment detection by lookup step, live terminals, and WebSocket
streams.

# Usage

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)
	router.Use(monitoring.Middleware(metrics))

	timer := monitoring.NewTimer(metrics, "task", "local")
	// ... resolve the plan ...
	timer.Stop("success")

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
