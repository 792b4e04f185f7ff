package state

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "tablegraph/backend/pkg/errors"
)

// Row is one persisted record of a named table.
// Tags always summarize RowData unless TagsOverridden is set, and an override
// only lasts until the next change to RowData.
type Row struct {
	ID             string    `json:"id"`
	TableName      string    `json:"table_name" validate:"required,max=128"`
	RowData        Values    `json:"row_data"`
	Tags           []string  `json:"tags"`
	TagsOverridden bool      `json:"tags_overridden,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Endpoint is one side of a relationship: a single field occurrence.
// Value is a copy taken when the relationship was generated.
type Endpoint struct {
	TableName string `json:"table_name"`
	RowID     string `json:"row_id"`
	Column    string `json:"column"`
	Value     string `json:"value"`
}

// Relationship is a directed link between two field occurrences
type Relationship struct {
	From   Endpoint `json:"from"`
	To     Endpoint `json:"to"`
	Reason string   `json:"reason,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a row before it reaches a store
func (r *Row) Validate() error {
	if err := validate.Struct(r); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return apperrors.NewValidationFailed(fe.Field(), "failed "+fe.Tag()+" check")
		}
		return apperrors.NewValidationFailed("row", err.Error())
	}
	return r.RowData.Validate()
}

// Endpoint returns the field occurrence of column in this row
func (r *Row) Endpoint(column string) Endpoint {
	value, _ := r.RowData.Get(column)
	return Endpoint{
		TableName: r.TableName,
		RowID:     r.ID,
		Column:    column,
		Value:     value,
	}
}

// NodeID is the composite key of the field occurrence
func (e Endpoint) NodeID() string {
	return e.TableName + ":" + e.RowID + ":" + e.Column
}

// Touches reports whether rowID is either endpoint of the relationship
func (r Relationship) Touches(rowID string) bool {
	return r.From.RowID == rowID || r.To.RowID == rowID
}
