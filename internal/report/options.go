package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/highbeam/pulseboard/internal/domain"
	"github.com/highbeam/pulseboard/internal/filter"
	"github.com/highbeam/pulseboard/internal/normalize"
	"github.com/highbeam/pulseboard/internal/timeseries"
)

// Defaults used when an Options field is zero.
const (
	DefaultTopN           = 5
	DefaultAtRiskCap      = 3
	DefaultMinSample      = 1
	DefaultSeriesDays     = 7
	DefaultRecentActivity = 10
)

// Options selects what a report covers.
type Options struct {
	// Now is the reference time for windows and overdue checks. Zero means
	// the current time.
	Now time.Time

	Window filter.Window
	// Range is required for WindowCustom and ignored otherwise.
	Range     *filter.DateRange
	DateField filter.DateField

	TeamID     string
	ProjectID  string
	AssigneeID string
	Priority   domain.Priority
	Statuses   []string

	TopN           int
	AtRiskCap      int
	MinSample      int
	SeriesDays     int
	SeriesInterval *timeseries.Interval
	RecentActivity int
}

func (o Options) withDefaults() Options {
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	if o.Window == "" {
		o.Window = filter.WindowAll
	}
	if o.TopN <= 0 {
		o.TopN = DefaultTopN
	}
	if o.AtRiskCap <= 0 {
		o.AtRiskCap = DefaultAtRiskCap
	}
	if o.MinSample <= 0 {
		o.MinSample = DefaultMinSample
	}
	if o.SeriesDays <= 0 {
		o.SeriesDays = DefaultSeriesDays
	}
	if o.RecentActivity <= 0 {
		o.RecentActivity = DefaultRecentActivity
	}
	return o
}

// Spec resolves the window and converts the options into a filter spec
// for tasks. Statuses are canonicalised the same way records are.
func (o Options) Spec() (filter.Spec, error) {
	spec := filter.Spec{
		DateField:  o.DateField,
		TeamID:     o.TeamID,
		ProjectID:  o.ProjectID,
		AssigneeID: o.AssigneeID,
		Priority:   o.Priority,
	}
	for _, s := range o.Statuses {
		if c := normalize.Canonical(s); c != "" && c != filter.All {
			spec.Statuses = append(spec.Statuses, c)
		}
	}

	switch o.Window {
	case filter.WindowCustom:
		if o.Range == nil {
			return filter.Spec{}, fmt.Errorf("custom window needs a start and end date")
		}
		rng := *o.Range
		spec.DateRange = &rng
	case "", filter.WindowAll:
	default:
		spec.DateRange = filter.RangeFor(o.Window, o.Now)
		if spec.DateRange == nil {
			return filter.Spec{}, fmt.Errorf("unknown window %q", o.Window)
		}
	}
	return spec, nil
}

// Argument keys understood by ParseOptions. The CLI flags and the daemon's
// report command share them.
const (
	ArgWindow    = "window"
	ArgStart     = "start"
	ArgEnd       = "end"
	ArgDateField = "date_field"
	ArgTeam      = "team"
	ArgProject   = "project"
	ArgAssignee  = "assignee"
	ArgPriority  = "priority"
	ArgStatus    = "status"
	ArgTop       = "top"
	ArgAtRiskCap = "at_risk_cap"
	ArgMinSample = "min_sample"
	ArgDays      = "days"
	ArgNow       = "now"
)

// ParseOptions builds Options from string arguments. Missing keys take
// base's values. now is used unless the "now" argument (RFC 3339) is set.
func ParseOptions(args map[string]string, base Options, now time.Time) (Options, error) {
	o := base
	o.Now = now

	if v := args[ArgNow]; v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return Options{}, fmt.Errorf("parse now: %w", err)
		}
		o.Now = t
	}

	if v, ok := args[ArgWindow]; ok {
		w, err := filter.ParseWindow(v)
		if err != nil {
			return Options{}, err
		}
		o.Window = w
	}

	start, end := args[ArgStart], args[ArgEnd]
	if start != "" || end != "" {
		if start == "" || end == "" {
			return Options{}, fmt.Errorf("both start and end are required for a custom range")
		}
		rng, err := filter.CustomRange(start, end, o.Now.Location())
		if err != nil {
			return Options{}, err
		}
		o.Window = filter.WindowCustom
		o.Range = rng
	}

	switch strings.ToLower(args[ArgDateField]) {
	case "":
	case "created", "created_at":
		o.DateField = filter.CreatedAt
	case "due", "due_date":
		o.DateField = filter.DueDate
	default:
		return Options{}, fmt.Errorf("unknown date field %q (want created_at or due_date)", args[ArgDateField])
	}

	if v, ok := args[ArgTeam]; ok {
		o.TeamID = v
	}
	if v, ok := args[ArgProject]; ok {
		o.ProjectID = v
	}
	if v, ok := args[ArgAssignee]; ok {
		o.AssigneeID = v
	}

	if v := args[ArgPriority]; v != "" && v != filter.All {
		n, err := strconv.Atoi(v)
		if err != nil || !domain.Priority(n).IsValid() {
			return Options{}, fmt.Errorf("priority must be 1-4, got %q", v)
		}
		o.Priority = domain.Priority(n)
	}

	if v := args[ArgStatus]; v != "" {
		o.Statuses = nil
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				o.Statuses = append(o.Statuses, s)
			}
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{ArgTop, &o.TopN},
		{ArgAtRiskCap, &o.AtRiskCap},
		{ArgMinSample, &o.MinSample},
		{ArgDays, &o.SeriesDays},
	}
	for _, i := range ints {
		v := args[i.key]
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Options{}, fmt.Errorf("%s must be a non-negative integer, got %q", i.key, v)
		}
		*i.dst = n
	}

	return o, nil
}
