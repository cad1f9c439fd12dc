package models

// DashboardTotals counts active catalogue entities.
type DashboardTotals struct {
	Teachers int `db:"teachers" json:"teachers"`
	Subjects int `db:"subjects" json:"subjects"`
	Rooms    int `db:"rooms" json:"rooms"`
	Groups   int `db:"groups" json:"groups"`
}

// DashboardSummary is the landing page payload for administrators.
type DashboardSummary struct {
	Totals        DashboardTotals       `json:"totals"`
	CurrentTerm   *AcademicTerm         `json:"current_term,omitempty"`
	Attendance    AttendanceStats       `json:"attendance_last_30_days"`
	UpcomingToday []ScheduleEntryDetail `json:"upcoming_today"`
}

// SystemMetrics is a point-in-time view of process instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64 `json:"cache_hit_ratio"`
	CacheHits                uint64  `json:"cache_hits"`
	CacheMisses              uint64  `json:"cache_misses"`
	RequestsTotal            uint64  `json:"requests_total"`
	AverageRequestDurationMs float64 `json:"average_request_duration_ms"`
	ValidationsTotal         uint64  `json:"validations_total"`
	ValidationsRejected      uint64  `json:"validations_rejected"`
	CheckInsTotal            uint64  `json:"check_ins_total"`
	Goroutines               int     `json:"goroutines"`
}
