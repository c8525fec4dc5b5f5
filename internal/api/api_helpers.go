package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/Resinat/Portwatch/internal/fabric"
	"github.com/Resinat/Portwatch/internal/telemetry"
)

// --- Pagination ---

const (
	defaultPageLimit = 50
	maxPageLimit     = 100000
)

// Pagination holds parsed limit/offset values.
type Pagination struct {
	Limit  int
	Offset int
}

// ParsePagination reads limit and offset from query parameters.
func ParsePagination(r *http.Request) (Pagination, error) {
	p := Pagination{Limit: defaultPageLimit, Offset: 0}

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, fmt.Errorf("limit: must be a non-negative integer")
		}
		if n > maxPageLimit {
			return p, fmt.Errorf("limit: must be <= %d", maxPageLimit)
		}
		if n > 0 {
			p.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, fmt.Errorf("offset: must be a non-negative integer")
		}
		p.Offset = n
	}
	return p, nil
}

// PaginateSlice applies limit/offset to a slice and returns the page.
func PaginateSlice[T any](items []T, p Pagination) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	end := p.Offset + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[p.Offset:end]
}

func parsePaginationOrWriteInvalid(w http.ResponseWriter, r *http.Request) (Pagination, bool) {
	pg, err := ParsePagination(r)
	if err != nil {
		writeInvalidArgument(w, err.Error())
		return Pagination{}, false
	}
	return pg, true
}

// --- Path Parameters ---

// PathParam extracts a named path parameter from the request URL.
// Works with Go 1.22+ ServeMux pattern matching (e.g. /series/{dpid}).
func PathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

func requireDPIDPathParam(w http.ResponseWriter, r *http.Request) (fabric.DPID, bool) {
	dpid, err := fabric.ParseDPID(PathParam(r, "dpid"))
	if err != nil {
		writeInvalidArgument(w, "dpid: must be a decimal datapath id")
		return 0, false
	}
	return dpid, true
}

func requirePortPathParam(w http.ResponseWriter, r *http.Request) (telemetry.PortID, bool) {
	n, err := strconv.ParseUint(PathParam(r, "port"), 10, 32)
	if err != nil {
		writeInvalidArgument(w, "port: must be a decimal port number")
		return 0, false
	}
	return telemetry.PortID(n), true
}
