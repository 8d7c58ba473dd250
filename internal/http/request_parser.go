// This file implements parsing and validation of the transaction form and
// filter parameters.

package http

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"budget/internal/core"
	"budget/internal/ui"
)

// Form and query field names shared with the templates.
const (
	fieldType        = "type"
	fieldAmount      = "amount"
	fieldCategory    = "category"
	fieldDate        = "date"
	fieldNote        = "note"
	fieldFilterMonth = "filter-month"
	fieldFilterYear  = "filter-year"

	// ConfirmedHeader marks a delete the user already confirmed in the
	// browser.
	ConfirmedHeader = "X-Budget-Confirmed"
)

// transactionForm mirrors the constraints of the HTML entry form.
type transactionForm struct {
	Type     string `validate:"required,oneof=income expense"`
	Amount   string `validate:"required,amount"`
	Category string `validate:"required,min=1,max=50"`
	Date     string `validate:"omitempty,datetime=2006-01-02"`
	Note     string `validate:"max=255"`
}

var fieldMessages = map[string]string{
	"Type":     "Ungültiger Typ",
	"Amount":   "Ungültiger Betrag",
	"Category": "Kategorie ist erforderlich (max. 50 Zeichen)",
	"Date":     "Ungültiges Datum",
	"Note":     "Notiz ist zu lang (max. 255 Zeichen)",
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		f, err := core.ParseAmount(fl.Field().String())
		return err == nil && f > 0
	})
	return v
}

// parseTransactionForm reads and sanitizes the entry form fields.
func parseTransactionForm(form url.Values) transactionForm {
	return transactionForm{
		Type:     sanitizeInput(form.Get(fieldType)),
		Amount:   sanitizeInput(form.Get(fieldAmount)),
		Category: sanitizeInput(form.Get(fieldCategory)),
		Date:     sanitizeInput(form.Get(fieldDate)),
		Note:     sanitizeInput(form.Get(fieldNote)),
	}
}

func (f transactionForm) values() ui.FormValues {
	return ui.FormValues{
		Type:     f.Type,
		Amount:   f.Amount,
		Category: f.Category,
		Date:     f.Date,
		Note:     f.Note,
	}
}

// validateForm returns the user-facing message of the first violated
// constraint, or "" when the form is valid.
func validateForm(v *validator.Validate, f transactionForm) string {
	err := v.Struct(f)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if msg, ok := fieldMessages[verrs[0].Field()]; ok {
			return msg
		}
	}
	return "Ungültige Eingabe"
}

// filterValues returns the raw filter widget values of r.
func filterValues(r *http.Request) (month, year string) {
	return sanitizeInput(r.FormValue(fieldFilterMonth)), sanitizeInput(r.FormValue(fieldFilterYear))
}

// parseTransactionID reads the {id} path segment.
func parseTransactionID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid transaction id")
	}
	return id, nil
}

// isConfirmed reports whether the browser confirmed a destructive request.
func isConfirmed(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get(ConfirmedHeader), "true")
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
