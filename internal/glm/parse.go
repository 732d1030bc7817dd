package glm

import (
	"math"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/compresr/glm-usage-monitor/internal/usage"
)

// codeNoPackage is returned when the account has no active coding package.
const codeNoPackage = 1113

// parseQuota turns a quota response body into a snapshot.
//
// Envelope: {"code":200,"msg":"...","success":true,"data":{"limits":[...],"level":"pro"}}
func parseQuota(body []byte, region string, fetchedAt time.Time) (*usage.Snapshot, error) {
	if !gjson.ValidBytes(body) {
		return nil, &usage.FetchError{Kind: usage.KindMalformed, Message: "response is not valid JSON"}
	}
	root := gjson.ParseBytes(body)

	if err := envelopeError(root); err != nil {
		return nil, err
	}

	rows := root.Get("data.limits")
	if !rows.IsArray() {
		return nil, &usage.FetchError{Kind: usage.KindMalformed, Message: "response has no data.limits"}
	}

	snap := &usage.Snapshot{
		Plan:      strings.TrimSpace(root.Get("data.level").String()),
		Region:    region,
		FetchedAt: fetchedAt,
	}
	for _, row := range rows.Array() {
		if l, ok := parseLimit(row); ok {
			snap.Limits = append(snap.Limits, l)
		}
	}
	return snap, nil
}

// envelopeError reports an API-level rejection carried in a 200 response.
func envelopeError(root gjson.Result) error {
	success := root.Get("success")
	code := root.Get("code")
	rejected := (success.Exists() && !success.Bool()) || (code.Exists() && code.Int() != 200)
	if !rejected {
		return nil
	}

	msg := strings.TrimSpace(root.Get("msg").String())
	if code.Int() == codeNoPackage {
		if msg == "" {
			msg = "no active coding package"
		} else {
			msg = "no active coding package: " + msg
		}
	}
	if msg == "" {
		msg = "request rejected by API"
	}
	return &usage.FetchError{Kind: usage.KindStatus, StatusCode: int(code.Int()), Message: msg}
}

func parseLimit(row gjson.Result) (usage.Limit, bool) {
	kind := strings.ToUpper(strings.TrimSpace(row.Get("type").String()))
	if kind == "" {
		return usage.Limit{}, false
	}

	l := usage.Limit{
		Kind:   usage.LimitKind(kind),
		Unit:   int(row.Get("unit").Int()),
		Number: int(row.Get("number").Int()),
	}

	total, current := row.Get("usage"), row.Get("currentValue")
	if total.Exists() && current.Exists() {
		l.HasCounts = true
		l.Total = total.Float()
		l.Used = current.Float()
		if rem := row.Get("remaining"); rem.Exists() {
			l.Remaining = rem.Float()
		} else {
			l.Remaining = math.Max(l.Total-l.Used, 0)
		}
	}

	l.Percentage = clamp(percentage(row.Get("percentage"), l), 0, 100)

	l.ResetsAt = parseResetTime(row.Get("nextResetTime"))

	for _, d := range row.Get("usageDetails").Array() {
		model := strings.TrimSpace(d.Get("modelCode").String())
		if model == "" {
			continue
		}
		l.Details = append(l.Details, usage.ModelUsage{Model: model, Usage: d.Get("usage").Float()})
	}

	return l.WithPeriod(), true
}

// percentage prefers the row's counts over the reported value. Without counts,
// a value strictly between 0 and 1 is a fraction; 1 means 1%.
func percentage(pct gjson.Result, l usage.Limit) float64 {
	if l.HasCounts && l.Total > 0 {
		return l.Used / l.Total * 100
	}
	if !pct.Exists() {
		return 0
	}
	v := pct.Float()
	if v > 0 && v < 1 {
		return v * 100
	}
	return v
}

// parseResetTime accepts epoch milliseconds or an RFC 3339 string.
func parseResetTime(v gjson.Result) time.Time {
	switch v.Type {
	case gjson.Number:
		if ms := v.Int(); ms > 0 {
			return time.UnixMilli(ms).UTC()
		}
	case gjson.String:
		if t, err := time.Parse(time.RFC3339, v.String()); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
