// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package utilmetric

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/rpc/v2"
	metric "github.com/luxfi/metric"
)

const methodLabel = "method"

// APIInterceptor records per-method request counts, latency and errors of a
// gorilla JSON-RPC server.
type APIInterceptor interface {
	InterceptRequest(i *rpc.RequestInfo) *http.Request
	AfterRequest(i *rpc.RequestInfo)
}

type contextKey int

const requestStartKey contextKey = iota

type apiInterceptor struct {
	requests        metric.CounterVec
	requestDuration metric.GaugeVec
	requestErrors   metric.CounterVec
}

func NewAPIInterceptor(namespace string, registry metric.Registry) APIInterceptor {
	m := metric.NewWithRegistry(namespace, registry)
	labels := []string{methodLabel}
	return &apiInterceptor{
		requests: m.NewCounterVec(
			"api_requests",
			"Number of API requests, by method",
			labels,
		),
		requestDuration: m.NewGaugeVec(
			"api_request_duration_sum",
			"Nanoseconds spent handling API requests, by method",
			labels,
		),
		requestErrors: m.NewCounterVec(
			"api_request_errors",
			"Number of API requests that returned an error, by method",
			labels,
		),
	}
}

// Intercept installs [interceptor] on [server].
func Intercept(server *rpc.Server, interceptor APIInterceptor) {
	server.RegisterInterceptFunc(interceptor.InterceptRequest)
	server.RegisterAfterFunc(interceptor.AfterRequest)
}

func (*apiInterceptor) InterceptRequest(i *rpc.RequestInfo) *http.Request {
	ctx := context.WithValue(i.Request.Context(), requestStartKey, time.Now())
	return i.Request.WithContext(ctx)
}

func (a *apiInterceptor) AfterRequest(i *rpc.RequestInfo) {
	start, ok := i.Request.Context().Value(requestStartKey).(time.Time)
	if !ok {
		return
	}
	labels := metric.Labels{methodLabel: i.Method}

	a.requests.With(labels).Inc()
	a.requestDuration.With(labels).Add(float64(time.Since(start)))
	if i.Error != nil {
		a.requestErrors.With(labels).Inc()
	}
}
