package ledger

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"nexuscalc/internal/core/money"
	perr "nexuscalc/internal/platform/errors"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// DefaultMaxRejectRate aborts a batch when more than 5% of rows are rejected
const DefaultMaxRejectRate = 0.05

// Raw is a transaction row as handed over by an ingestion collaborator
type Raw struct {
	ID           string  `json:"id,omitempty" yaml:"id"`
	Date         string  `json:"date" yaml:"date" validate:"required,datetime=2006-01-02"`
	Jurisdiction string  `json:"jurisdiction" yaml:"jurisdiction" validate:"required,min=2,max=16"`
	Gross        string  `json:"gross_amount" yaml:"gross_amount" validate:"required,number_like"`
	Channel      string  `json:"channel,omitempty" yaml:"channel" validate:"omitempty,oneof=direct marketplace"`
	IsTaxable    *bool   `json:"is_taxable,omitempty" yaml:"is_taxable"`
	ExemptAmount *string `json:"exempt_amount,omitempty" yaml:"exempt_amount" validate:"omitempty,number_like"`
}

// RowError is a ValidationError for one rejected row
type RowError struct {
	Row    int    `json:"row"`
	ID     string `json:"id,omitempty"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Error implements error
func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s %s", e.Row, e.Field, e.Reason)
}

// Err returns the row error as a coded validation error
func (e RowError) Err() error {
	return perr.WithField(perr.Validationf("%s", e.Error()), e.Field)
}

// IngestOptions tunes batch acceptance
type IngestOptions struct {
	MaxRejectRate float64
}

// Batch is the outcome of ingesting a set of rows
type Batch struct {
	Accepted []Transaction `json:"-"`
	Rejected []RowError    `json:"rejected"`
	Total    int           `json:"total"`
}

// RejectRate is rejected rows over total rows, 0 for an empty batch
func (b Batch) RejectRate() float64 {
	if b.Total == 0 {
		return 0
	}
	return float64(len(b.Rejected)) / float64(b.Total)
}

var (
	vOnce sync.Once
	vld   *validator.Validate
)

func rowValidator() *validator.Validate {
	vOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("number_like", func(fl validator.FieldLevel) bool {
			_, err := money.Parse(fl.Field().String())
			return err == nil
		})
		vld = v
	})
	return vld
}

// Parse validates and resolves a single row
// the row index is only used for error reporting
func Parse(row int, r Raw) (Transaction, []RowError) {
	r.Jurisdiction = strings.TrimSpace(r.Jurisdiction)
	r.Channel = strings.ToLower(strings.TrimSpace(r.Channel))
	if err := rowValidator().Struct(r); err != nil {
		var out []RowError
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				out = append(out, RowError{Row: row, ID: r.ID, Field: fe.Field(), Reason: reason(fe)})
			}
			return Transaction{}, out
		}
		return Transaction{}, []RowError{{Row: row, ID: r.ID, Field: "row", Reason: err.Error()}}
	}

	date, _ := time.Parse(DateLayout, r.Date)
	gross, _ := money.Parse(r.Gross)
	ch, _ := ParseChannel(r.Channel)

	var exempt *decimal.Decimal
	if r.ExemptAmount != nil {
		d, _ := money.Parse(*r.ExemptAmount)
		exempt = &d
	}
	return New(r.ID, date, r.Jurisdiction, gross, ch, r.IsTaxable, exempt), nil
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "datetime":
		return "must be a date formatted YYYY-MM-DD"
	case "number_like":
		return "must be a decimal amount"
	case "oneof":
		return "must be one of direct, marketplace"
	default:
		return "failed " + fe.Tag()
	}
}

// Ingest parses every row, collecting rejections instead of dropping them
// it fails when the rejection rate exceeds opts.MaxRejectRate; the batch is still returned for reporting
func Ingest(rows []Raw, opts IngestOptions) (Batch, error) {
	b := Batch{Total: len(rows), Accepted: make([]Transaction, 0, len(rows))}
	for i, r := range rows {
		tx, errs := Parse(i, r)
		if len(errs) > 0 {
			b.Rejected = append(b.Rejected, errs[0])
			continue
		}
		b.Accepted = append(b.Accepted, tx)
	}
	if rate := b.RejectRate(); rate > opts.MaxRejectRate {
		return b, perr.Validationf("rejected %d of %d rows (%.1f%%), above the %.1f%% limit",
			len(b.Rejected), b.Total, rate*100, opts.MaxRejectRate*100)
	}
	return b, nil
}
