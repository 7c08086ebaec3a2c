package session

import "errors"

// ErrCatalogUnavailable is set when the metric catalog could not be fetched.
var ErrCatalogUnavailable = errors.New("metric catalog unavailable")

// CatalogStatus is the fetch state of the metric catalog.
type CatalogStatus string

const (
	CatalogPending CatalogStatus = "pending"
	CatalogLoading CatalogStatus = "loading"
	CatalogReady   CatalogStatus = "ready"
	CatalogFailed  CatalogStatus = "failed"
)

// Catalog holds the metric names in service order. It is resolved once and
// immutable afterwards.
type Catalog struct {
	status  CatalogStatus
	metrics []string
	err     error
}

func (c *Catalog) begin() bool {
	if c.status != "" && c.status != CatalogPending {
		return false
	}
	c.status = CatalogLoading
	return true
}

func (c *Catalog) resolve(metrics []string, err error) bool {
	if c.status == CatalogReady || c.status == CatalogFailed {
		return false
	}
	if err != nil {
		c.status = CatalogFailed
		c.err = err
		return true
	}
	c.status = CatalogReady
	c.metrics = append([]string(nil), metrics...)
	return true
}

// Status returns the fetch state.
func (c *Catalog) Status() CatalogStatus {
	if c.status == "" {
		return CatalogPending
	}
	return c.status
}

// Err returns the fetch error, if the fetch failed.
func (c *Catalog) Err() error {
	return c.err
}

// Metrics returns a copy of the metric names.
func (c *Catalog) Metrics() []string {
	return append([]string(nil), c.metrics...)
}

// Len returns the number of metrics; zero until the fetch succeeds.
func (c *Catalog) Len() int {
	return len(c.metrics)
}
