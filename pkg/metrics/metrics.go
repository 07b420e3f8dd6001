/*
 * Package metrics Prometheus 指标
 * 功能：授权码签发、令牌兑换、重放、Bearer 校验与 HTTP 请求计数
 *       使用独立 Registry，测试之间互不干扰；所有方法对 nil 接收者安全
 */
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "maxidp"

/* 兑换与校验结果标签 */
const (
	ResultSuccess       = "success"
	ResultInvalidGrant  = "invalid_grant"
	ResultInvalidClient = "invalid_client"
	ResultInvalidToken  = "invalid_token"
	ResultMalformed     = "malformed"
	ResultError         = "error"
)

/* Metrics 指标集合 */
type Metrics struct {
	registry          *prometheus.Registry
	codesIssued       prometheus.Counter
	exchanges         *prometheus.CounterVec
	replays           prometheus.Counter
	bearerValidations *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

/*
 * New 创建并注册全部指标
 * @param withRuntime - 是否附带 Go 运行时与进程指标
 */
func New(withRuntime bool) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		codesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authorization_codes_issued_total",
			Help:      "Authorization codes issued.",
		}),
		exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_exchanges_total",
			Help:      "Authorization code exchanges by result.",
		}, []string{"result"}),
		replays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "code_replays_total",
			Help:      "Exchange attempts with an already used authorization code.",
		}),
		bearerValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bearer_validations_total",
			Help:      "Bearer token validations by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.registry.MustRegister(m.codesIssued, m.exchanges, m.replays, m.bearerValidations, m.httpRequests, m.httpDuration)
	if withRuntime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

/* Registry 底层 Registry */
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

/* Handler /metrics 处理器 */
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) CodeIssued() {
	if m != nil {
		m.codesIssued.Inc()
	}
}

func (m *Metrics) Exchange(result string) {
	if m != nil {
		m.exchanges.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) CodeReplay() {
	if m != nil {
		m.replays.Inc()
	}
}

func (m *Metrics) BearerValidation(result string) {
	if m != nil {
		m.bearerValidations.WithLabelValues(result).Inc()
	}
}

/*
 * ObserveHTTP 记录一次请求
 * @param route   - 路由模板（gin FullPath），未匹配时为空
 * @param seconds - 耗时
 */
func (m *Metrics) ObserveHTTP(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(seconds)
}
