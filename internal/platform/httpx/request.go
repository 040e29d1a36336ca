package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alvarodevdoo/erp/internal/shared"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return "-"
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// DecodeJSON decodes the request body into target.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return shared.Validation("request body is empty")
		}
		return shared.Validation("invalid JSON body: %s", err.Error())
	}
	return nil
}

// Bind decodes the request body into target and validates its struct tags.
func Bind(r *http.Request, target any) error {
	if err := DecodeJSON(r, target); err != nil {
		return err
	}
	return Validate(target)
}

// Validate checks the struct tags of target.
func Validate(target any) error {
	err := validate.Struct(target)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return shared.Validation("%s", err.Error())
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return shared.Validation("%s", strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if idx := strings.Index(field, "."); idx >= 0 {
		field = field[idx+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// URLParamUUID parses a uuid path parameter.
func URLParamUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, shared.Validation("invalid %s", name)
	}
	return id, nil
}

// QueryUUID parses an optional uuid query parameter.
func QueryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, shared.Validation("invalid %s", name)
	}
	return &id, nil
}

// QueryBool parses an optional boolean query parameter.
func QueryBool(r *http.Request, name string) (*bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, shared.Validation("invalid %s", name)
	}
	return &v, nil
}

// QueryTime parses an optional RFC3339 or YYYY-MM-DD query parameter.
func QueryTime(r *http.Request, name string) (*time.Time, error) {
	t, _, err := queryTime(r, name)
	return t, err
}

func queryTime(r *http.Request, name string) (*time.Time, bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, false, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, false, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, false, shared.Validation("invalid %s", name)
	}
	return &t, true, nil
}

// ParseListFilters reads page, limit, search, sortBy, sortOrder, startDate,
// endDate and isActive from the query string.
func ParseListFilters(r *http.Request) (shared.ListFilters, error) {
	q := r.URL.Query()
	var f shared.ListFilters
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return f, shared.Validation("page must be a positive integer")
		}
		f.Page = page
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > shared.MaxLimit {
			return f, shared.Validation("limit must be between 1 and %d", shared.MaxLimit)
		}
		f.Limit = limit
	}
	f.Search = strings.TrimSpace(q.Get("search"))
	f.SortBy = strings.TrimSpace(q.Get("sortBy"))
	switch order := strings.ToLower(strings.TrimSpace(q.Get("sortOrder"))); order {
	case "", shared.SortAsc, shared.SortDesc:
		f.SortOrder = order
	default:
		return f, shared.Validation("sortOrder must be asc or desc")
	}
	var err error
	if f.StartDate, err = QueryTime(r, "startDate"); err != nil {
		return f, err
	}
	end, dateOnly, err := queryTime(r, "endDate")
	if err != nil {
		return f, err
	}
	if end != nil && dateOnly {
		// a bare date includes the whole day
		eod := end.Add(24*time.Hour - time.Nanosecond)
		end = &eod
	}
	f.EndDate = end
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return f, shared.Validation("endDate must not be before startDate")
	}
	if f.IsActive, err = QueryBool(r, "isActive"); err != nil {
		return f, err
	}
	return f.Normalize(), nil
}

// Principal returns the authenticated principal of the request.
func Principal(r *http.Request) (shared.Principal, error) {
	p, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		return shared.Principal{}, shared.Unauthorized("authentication required")
	}
	return p, nil
}

// Target returns the principal and the {id} path parameter of the request.
func Target(r *http.Request) (shared.Principal, uuid.UUID, error) {
	p, err := Principal(r)
	if err != nil {
		return p, uuid.Nil, err
	}
	id, err := URLParamUUID(r, "id")
	return p, id, err
}
