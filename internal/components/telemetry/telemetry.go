package telemetry

// API is where components report what happened to them instead of logging
// directly, so tests can assert on reports.
//
// Report ids name the component that broke, not the line: a failed replay
// request inside the screener engine is `replay.request`. Ids are
// lowercase, underscores join words of a component, a dot separates the
// component from its method. Packages declare them as `report_...`
// constants and scope them with NewScopedAPI.
//
// note: fault injection point
type API interface {
	// ReportBroken is for failures someone should look at.
	ReportBroken(id string, params ...any)
	// ReportWarning is for degraded but expected situations, a page whose
	// scan clause never fired or a screener that failed inside a batch.
	ReportWarning(id string, params ...any)
	// ReportDebug is dropped in production.
	ReportDebug(msg string, params ...any)
	// ReportCount records a point-in-time count, counts are never summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace.
type ScopedAPI struct {
	prefix string
	inner  API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	// nested scopes read outer.inner.id
	if scoped, ok := inner.(ScopedAPI); ok {
		return ScopedAPI{prefix: scoped.prefix + namespace + ".", inner: scoped.inner}
	}
	return ScopedAPI{prefix: namespace + ".", inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.prefix+id, params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.prefix+id, params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.prefix+msg, params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.prefix+id, count)
}
