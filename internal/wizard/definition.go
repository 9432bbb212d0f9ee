package wizard

import (
	"reflect"
	"strings"
	"time"

	"github.com/Priya8975/event-console/internal/domain"
)

// Check is a cross-field rule run after the struct tags of a step pass.
type Check func(form any, v *domain.ValidationError)

// Step is one screen of a wizard. Fields are the Go field names of the form
// struct validated when leaving the step. A step with Full set validates the
// whole form.
type Step struct {
	ID     string
	Title  string
	Fields []string
	Checks []Check
	Full   bool
}

// Definition describes a wizard: its ordered steps, the form it fills and
// how long edits wait before a draft is saved.
type Definition struct {
	Kind          string
	Steps         []Step
	AutosaveDelay time.Duration
	NewForm       func() any

	fieldStep map[string]int
}

// index maps every JSON field name of the form to the first step that
// validates it.
func (d *Definition) index() {
	d.fieldStep = map[string]int{}
	typ := reflect.TypeOf(d.NewForm()).Elem()
	for i, st := range d.Steps {
		for _, name := range st.Fields {
			f, ok := typ.FieldByName(name)
			if !ok {
				continue
			}
			key := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if key == "" {
				key = f.Name
			}
			if _, seen := d.fieldStep[key]; !seen {
				d.fieldStep[key] = i
			}
		}
	}
}

// StepOf returns the step that owns a validation error key such as
// "tags[2]", or the last step when no step lists the field.
func (d *Definition) StepOf(field string) int {
	if i := strings.IndexAny(field, "[."); i >= 0 {
		field = field[:i]
	}
	if i, ok := d.fieldStep[field]; ok {
		return i
	}
	return len(d.Steps) - 1
}

// ValidateStep validates the fields of step i on form.
func (d *Definition) ValidateStep(form any, i int) *domain.ValidationError {
	st := d.Steps[i]
	if st.Full {
		return d.ValidateAll(form)
	}
	v := domain.ValidatePartial(form, st.Fields...)
	for _, c := range st.Checks {
		c(form, v)
	}
	return v
}

// ValidateAll runs the struct tags and the checks of every step.
func (d *Definition) ValidateAll(form any) *domain.ValidationError {
	v := domain.ValidateStruct(form)
	for _, st := range d.Steps {
		for _, c := range st.Checks {
			c(form, v)
		}
	}
	return v
}

// typed adapts a check written against the concrete form type.
func typed[T any](fn func(*T, *domain.ValidationError)) Check {
	return func(form any, v *domain.ValidationError) {
		fn(form.(*T), v)
	}
}
