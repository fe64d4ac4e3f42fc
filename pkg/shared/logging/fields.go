// Package logging provides a small structured-field builder on top of
// logrus.Fields, so every component logs the same vocabulary (component,
// operation, resource, duration) instead of ad hoc key names.
package logging

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Fields is a chainable builder around logrus.Fields.
type Fields map[string]interface{}

// NewFields starts an empty field set.
func NewFields() Fields {
	return Fields{}
}

// Component names the package/subsystem emitting the log line.
func (f Fields) Component(name string) Fields {
	f["component"] = name
	return f
}

// Operation names the action being performed.
func (f Fields) Operation(op string) Fields {
	f["operation"] = op
	return f
}

// Resource records the kind and, if non-empty, the identity of the thing
// being acted on (an edge id, a shelter id, a report id).
func (f Fields) Resource(kind, name string) Fields {
	f["resource_type"] = kind
	if name != "" {
		f["resource_name"] = name
	}
	return f
}

// Duration records an elapsed time in whole milliseconds.
func (f Fields) Duration(d time.Duration) Fields {
	f["duration_ms"] = d.Milliseconds()
	return f
}

// Error records err's message, or does nothing if err is nil.
func (f Fields) Error(err error) Fields {
	if err != nil {
		f["error"] = err.Error()
	}
	return f
}

// UserID records a caller identity, or does nothing if empty.
func (f Fields) UserID(id string) Fields {
	if id != "" {
		f["user_id"] = id
	}
	return f
}

// RequestID records a per-query correlation id.
func (f Fields) RequestID(id string) Fields {
	f["request_id"] = id
	return f
}

// TraceID records a distributed-tracing id.
func (f Fields) TraceID(id string) Fields {
	f["trace_id"] = id
	return f
}

// StatusCode records an HTTP status code.
func (f Fields) StatusCode(code int) Fields {
	f["status_code"] = code
	return f
}

// Method records an HTTP method.
func (f Fields) Method(method string) Fields {
	f["method"] = method
	return f
}

// URL records a request URL.
func (f Fields) URL(url string) Fields {
	f["url"] = url
	return f
}

// Count records a generic item count.
func (f Fields) Count(n int) Fields {
	f["count"] = n
	return f
}

// Size records a byte size.
func (f Fields) Size(bytes int64) Fields {
	f["size_bytes"] = bytes
	return f
}

// Version records a component/build version.
func (f Fields) Version(v string) Fields {
	f["version"] = v
	return f
}

// Custom sets an arbitrary key, for fields none of the helpers above cover.
func (f Fields) Custom(key string, value interface{}) Fields {
	f[key] = value
	return f
}

// ToLogrus converts Fields to logrus.Fields for use with logrus.WithFields.
func (f Fields) ToLogrus() logrus.Fields {
	return logrus.Fields(f)
}

// AdapterFields is the standard field set for a source-adapter gather call.
func AdapterFields(operation, source string) Fields {
	return NewFields().Component("adapter").Operation(operation).Custom("source", source)
}

// HTTPFields is the standard field set for an outbound collaborator call.
func HTTPFields(method, url string, statusCode int) Fields {
	return NewFields().Component("http").Method(method).URL(url).StatusCode(statusCode)
}

// RoutingFields is the standard field set for a router decision.
func RoutingFields(operation, routeID string) Fields {
	return NewFields().Component("routing").Operation(operation).Resource("route", routeID)
}

// ExtractorFields is the standard field set for a parse_query/reconcile_conflict call.
func ExtractorFields(operation, resolverTag string) Fields {
	return NewFields().Component("extractor").Operation(operation).Custom("resolver_tag", resolverTag)
}

// CacheFields is the standard field set for a tick-cache operation.
func CacheFields(operation, key string) Fields {
	return NewFields().Component("cache").Operation(operation).Resource("key", key)
}

// AIFields is the standard field set for an LLM inference call.
func AIFields(operation, model string) Fields {
	return NewFields().Component("ai").Operation(operation).Custom("model", model)
}

// MetricsFields is the standard field set for a metrics-recording event.
func MetricsFields(operation, metricName string, value float64) Fields {
	return NewFields().Component("metrics").Operation(operation).Custom("metric_name", metricName).Custom("value", value)
}

// SecurityFields is the standard field set for an auth/authz decision.
func SecurityFields(operation, subject string) Fields {
	return NewFields().Component("security").Operation(operation).Custom("subject", subject)
}

// PerformanceFields is the standard field set for a timed operation outcome.
func PerformanceFields(operation string, duration time.Duration, success bool) Fields {
	return NewFields().Component("performance").Operation(operation).Duration(duration).Custom("success", success)
}
