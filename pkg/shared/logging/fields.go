// Package logging provides a small builder for structured log fields
// shared across the memory engine's components, convertible to logrus.Fields.
package logging

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Fields is a chainable builder of structured logging key/value pairs.
type Fields map[string]interface{}

// NewFields returns an empty Fields builder.
func NewFields() Fields {
	return Fields{}
}

// Component sets the component field.
func (f Fields) Component(name string) Fields {
	f["component"] = name
	return f
}

// Operation sets the operation field.
func (f Fields) Operation(op string) Fields {
	f["operation"] = op
	return f
}

// Resource sets resource_type, and resource_name when non-empty.
func (f Fields) Resource(resourceType, resourceName string) Fields {
	f["resource_type"] = resourceType
	if resourceName != "" {
		f["resource_name"] = resourceName
	}
	return f
}

// Duration sets duration_ms from d.
func (f Fields) Duration(d time.Duration) Fields {
	f["duration_ms"] = d.Milliseconds()
	return f
}

// Error sets the error field from err.Error(), a no-op when err is nil.
func (f Fields) Error(err error) Fields {
	if err == nil {
		return f
	}
	f["error"] = err.Error()
	return f
}

// UserID sets user_id when non-empty.
func (f Fields) UserID(id string) Fields {
	if id == "" {
		return f
	}
	f["user_id"] = id
	return f
}

// RequestID sets request_id.
func (f Fields) RequestID(id string) Fields {
	f["request_id"] = id
	return f
}

// TraceID sets trace_id.
func (f Fields) TraceID(id string) Fields {
	f["trace_id"] = id
	return f
}

// StatusCode sets status_code.
func (f Fields) StatusCode(code int) Fields {
	f["status_code"] = code
	return f
}

// Method sets the HTTP/RPC method field.
func (f Fields) Method(method string) Fields {
	f["method"] = method
	return f
}

// URL sets the url field.
func (f Fields) URL(url string) Fields {
	f["url"] = url
	return f
}

// Count sets the count field.
func (f Fields) Count(n int) Fields {
	f["count"] = n
	return f
}

// Size sets size_bytes.
func (f Fields) Size(bytes int64) Fields {
	f["size_bytes"] = bytes
	return f
}

// Version sets the version field.
func (f Fields) Version(v string) Fields {
	f["version"] = v
	return f
}

// Custom sets an arbitrary key/value pair.
func (f Fields) Custom(key string, value interface{}) Fields {
	f[key] = value
	return f
}

// ToLogrus converts Fields to logrus.Fields for use with WithFields.
func (f Fields) ToLogrus() logrus.Fields {
	lf := make(logrus.Fields, len(f))
	for k, v := range f {
		lf[k] = v
	}
	return lf
}

// DatabaseFields builds a standard field set for a database operation.
func DatabaseFields(operation, table string) Fields {
	return NewFields().
		Component("database").
		Operation(operation).
		Resource("table", table)
}

// HTTPFields builds a standard field set for an HTTP call.
func HTTPFields(method, url string, statusCode int) Fields {
	return NewFields().
		Component("http").
		Method(method).
		URL(url).
		StatusCode(statusCode)
}

// WorkflowFields builds a standard field set for a workflow operation.
func WorkflowFields(operation, workflowID string) Fields {
	return NewFields().
		Component("workflow").
		Operation(operation).
		Resource("workflow", workflowID)
}

// KubernetesFields builds a standard field set for a Kubernetes operation,
// retained for compatibility with components that still report against
// cluster resources (e.g. the optional remediation-platform adapters).
func KubernetesFields(operation, resourceType, resourceName, namespace string) Fields {
	f := NewFields().
		Component("kubernetes").
		Operation(operation).
		Resource(resourceType, resourceName)
	if namespace != "" {
		f["namespace"] = namespace
	}
	return f
}

// AIFields builds a standard field set for an embedding/inference call.
func AIFields(operation, model string) Fields {
	return NewFields().
		Component("ai").
		Operation(operation).
		Custom("model", model)
}

// MetricsFields builds a standard field set for a metrics recording event.
func MetricsFields(operation, metricName string, value interface{}) Fields {
	return NewFields().
		Component("metrics").
		Operation(operation).
		Custom("metric_name", metricName).
		Custom("value", value)
}

// SecurityFields builds a standard field set for an authn/authz event.
func SecurityFields(operation, subject string) Fields {
	return NewFields().
		Component("security").
		Operation(operation).
		Custom("subject", subject)
}

// PerformanceFields builds a standard field set for a timed operation outcome.
func PerformanceFields(operation string, duration time.Duration, success bool) Fields {
	return NewFields().
		Component("performance").
		Operation(operation).
		Duration(duration).
		Custom("success", success)
}
