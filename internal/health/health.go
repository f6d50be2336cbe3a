package health

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Status представляет статус компонента.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// Check результат одной проверки.
type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Response агрегированный ответ health endpoint.
type Response struct {
	Status        Status  `json:"status"`
	Timestamp     string  `json:"timestamp"`
	Checks        []Check `json:"checks,omitempty"`
	Version       string  `json:"version,omitempty"`
	UptimeSeconds int64   `json:"uptime_seconds"`
}

// Checker проверяет здоровье одного компонента.
type Checker interface {
	Check() Check
}

// CheckerFunc адаптер функции проверки вида name + error.
type CheckerFunc struct {
	name     string
	critical bool
	fn       func() error
}

// NewChecker создаёт критичную проверку: ошибка означает unhealthy.
func NewChecker(name string, fn func() error) *CheckerFunc {
	return &CheckerFunc{name: name, critical: true, fn: fn}
}

// NewOptionalChecker создаёт некритичную проверку: ошибка означает degraded.
// Используется для зависимостей, без которых сервис ограниченно работоспособен.
func NewOptionalChecker(name string, fn func() error) *CheckerFunc {
	return &CheckerFunc{name: name, critical: false, fn: fn}
}

// Check выполняет проверку и замеряет её длительность.
func (c *CheckerFunc) Check() Check {
	start := time.Now()
	err := c.fn()
	elapsed := time.Since(start)

	check := Check{
		Name:       c.name,
		Status:     StatusHealthy,
		DurationMs: elapsed.Milliseconds(),
	}
	if err != nil {
		check.Message = err.Error()
		if c.critical {
			check.Status = StatusUnhealthy
		} else {
			check.Status = StatusDegraded
		}
	}
	return check
}

// Handler обслуживает health/liveness/readiness endpoints.
type Handler struct {
	mu        sync.RWMutex
	checkers  []Checker
	version   string
	startTime time.Time
}

// NewHandler создаёт health handler с версией сервиса.
func NewHandler(version string) *Handler {
	return &Handler{
		version:   version,
		startTime: time.Now(),
	}
}

// Register добавляет проверку компонента.
func (h *Handler) Register(checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers = append(h.checkers, checker)
}

func (h *Handler) snapshot() []Checker {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Checker, len(h.checkers))
	copy(out, h.checkers)
	return out
}

func (h *Handler) runChecks() ([]Check, Status) {
	checkers := h.snapshot()
	checks := make([]Check, 0, len(checkers))
	overall := StatusHealthy

	for _, checker := range checkers {
		check := checker.Check()
		checks = append(checks, check)

		switch check.Status {
		case StatusUnhealthy:
			overall = StatusUnhealthy
		case StatusDegraded:
			if overall == StatusHealthy {
				overall = StatusDegraded
			}
		}
	}

	sort.Slice(checks, func(i, j int) bool { return checks[i].Name < checks[j].Name })
	return checks, overall
}

// ServeHTTP отдаёт полный отчёт по всем проверкам.
func (h *Handler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	checks, overall := h.runChecks()

	response := Response{
		Status:        overall,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Checks:        checks,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}

	statusCode := http.StatusOK
	if overall == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// LivenessHandler простой liveness probe, всегда 200.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ReadinessHandler возвращает 503, если хотя бы одна критичная проверка упала.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, _ *http.Request) {
	_, overall := h.runChecks()
	if overall == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
