package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"
)

const checkTimeout = 5 * time.Second

// Checker reports whether one dependency of the service is usable.
type Checker interface {
	Check(ctx context.Context) error
}

// DBChecker pings the analysis index database.
type DBChecker struct {
	DB *sql.DB
}

func (d *DBChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return d.DB.PingContext(ctx)
}

// DirChecker verifies a data directory exists and accepts new files.
type DirChecker struct {
	Dir string
}

func (d *DirChecker) Check(ctx context.Context) error {
	info, err := os.Stat(d.Dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", d.Dir)
	}
	f, err := os.CreateTemp(d.Dir, ".health-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// CheckStatus is the outcome of one named check.
type CheckStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Report aggregates all checks for /health.
type Report struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckStatus `json:"checks"`
}

// Healthy reports whether every check passed.
func (r Report) Healthy() bool { return r.Status == "healthy" }

// failing returns the names of failed checks, sorted.
func (r Report) failing() []string {
	var names []string
	for name, c := range r.Checks {
		if c.Status != "healthy" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// RunChecks runs every checker concurrently under one deadline.
func RunChecks(ctx context.Context, checkers map[string]Checker) Report {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	report := Report{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]CheckStatus, len(checkers)),
	}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, c := range checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st := CheckStatus{Status: "healthy"}
			if err := c.Check(ctx); err != nil {
				st = CheckStatus{Status: "unhealthy", Message: err.Error()}
			}
			mu.Lock()
			defer mu.Unlock()
			report.Checks[name] = st
			if st.Status != "healthy" {
				report.Status = "unhealthy"
			}
		}()
	}
	wg.Wait()
	return report
}

// HealthHandler serves the full report, 503 when any check fails.
func HealthHandler(checkers map[string]Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := RunChecks(r.Context(), checkers)
		code := http.StatusOK
		if !report.Healthy() {
			code = http.StatusServiceUnavailable
		}
		writeStatus(w, code, report)
	}
}

// ReadinessHandler answers whether the service can take analysis requests.
// Failing check names are listed without their error text.
func ReadinessHandler(checkers map[string]Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := RunChecks(r.Context(), checkers)
		if report.Healthy() {
			writeStatus(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		writeStatus(w, http.StatusServiceUnavailable, map[string]any{
			"status":  "not_ready",
			"failing": report.failing(),
		})
	}
}

// LivenessHandler reports the process is serving and for how long.
func LivenessHandler(started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]any{
			"status":         "alive",
			"uptime_seconds": int64(time.Since(started).Seconds()),
		})
	}
}

func writeStatus(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
