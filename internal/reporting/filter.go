package reporting

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Visibility selects records by cancellation state. The zero value excludes
// cancelled records, which is what every monetary aggregate needs.
type Visibility int

// Visibility modes.
const (
	ActiveOnly Visibility = iota
	AllRecords
	CancelledOnly
)

// String returns the query-string form of the visibility.
func (v Visibility) String() string {
	switch v {
	case AllRecords:
		return "all"
	case CancelledOnly:
		return "cancelled"
	default:
		return "active"
	}
}

// ParseVisibility reads the query-string form. ok is false for unknown values.
func ParseVisibility(s string) (Visibility, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "active":
		return ActiveOnly, true
	case "all":
		return AllRecords, true
	case "cancelled", "canceled":
		return CancelledOnly, true
	}
	return ActiveOnly, false
}

func (v Visibility) admits(cancelled bool) bool {
	switch v {
	case AllRecords:
		return true
	case CancelledOnly:
		return cancelled
	default:
		return !cancelled
	}
}

// Field names a searchable record attribute.
type Field int

// Searchable fields. Records that lack a field never match on it.
const (
	FieldClient Field = iota + 1
	FieldService
	FieldSeller
	FieldProduct
	FieldPayment
	FieldNotes
)

// DefaultSearchFields matches the sales page search box: client or service.
var DefaultSearchFields = []Field{FieldClient, FieldService}

// Filterable is implemented by the record types of this package.
type Filterable interface {
	branch() string
	dateKey() string
	cancelled() bool
	field(Field) string
}

// Criteria are AND-combined record predicates. Every zero field is a no-op
// except Visibility, whose zero value is ActiveOnly.
type Criteria struct {
	BranchID   string
	From       string
	To         string
	Visibility Visibility
	Search     string
	Fields     []Field
}

// Filter returns the records that satisfy c, in input order, in a new slice.
// The input is never modified.
func Filter[T Filterable](records []T, c Criteria) []T {
	branch := strings.TrimSpace(c.BranchID)
	if strings.EqualFold(branch, AllBranches) {
		branch = ""
	}
	ranged := c.From != "" || c.To != ""
	needle := foldText(strings.TrimSpace(c.Search))
	fields := c.Fields
	if len(fields) == 0 {
		fields = DefaultSearchFields
	}

	out := make([]T, 0, len(records))
	for _, rec := range records {
		if branch != "" && rec.branch() != branch {
			continue
		}
		if !c.Visibility.admits(rec.cancelled()) {
			continue
		}
		if ranged {
			key := rec.dateKey()
			if key == "" {
				continue
			}
			if c.From != "" && key < c.From {
				continue
			}
			if c.To != "" && key > c.To {
				continue
			}
		}
		if needle != "" && !matchesAny(rec, fields, needle) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// IsCancelled reports the derived cancellation state of any record.
func IsCancelled[T Filterable](rec T) bool {
	return rec.cancelled()
}

func matchesAny[T Filterable](rec T, fields []Field, needle string) bool {
	for _, f := range fields {
		if strings.Contains(foldText(rec.field(f)), needle) {
			return true
		}
	}
	return false
}

// foldText lowers case and strips combining marks so "José" matches "jose".
func foldText(s string) string {
	if s == "" {
		return ""
	}
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}
