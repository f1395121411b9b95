// Package validation provides input validation utilities.
package validation

import (
	"errors"
	"mime"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	apperrors "github.com/gobusker/gobusker-map/errors"
)

// MaxBodyBytes caps request bodies read by DecodeAndValidate.
const MaxBodyBytes = 1 << 20

var (
	validate *validator.Validate
	once     sync.Once
)

// GetValidator returns the singleton validator instance.
func GetValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()

		// Use JSON tag names for error messages
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		registerCustomValidations(validate)
	})

	return validate
}

func registerCustomValidations(v *validator.Validate) {
	v.RegisterValidation("latitude", validateLatitude)
	v.RegisterValidation("longitude", validateLongitude)

	// Event type validation
	v.RegisterValidation("event_type", validateEventType)

	v.RegisterValidation("travel_mode", validateTravelMode)
	v.RegisterValidation("place_type", validatePlaceType)
	v.RegisterValidation("theme", validateTheme)

	// Comma separated ISO 3166 alpha-2 codes
	v.RegisterValidation("country_codes", validateCountryCodes)
}

// Latitude validates latitude values (-90 to 90).
func validateLatitude(fl validator.FieldLevel) bool {
	lat := fl.Field().Float()
	return lat >= -90 && lat <= 90
}

// Longitude validates longitude values (-180 to 180).
func validateLongitude(fl validator.FieldLevel) bool {
	lng := fl.Field().Float()
	return lng >= -180 && lng <= 180
}

// Event types.
var validEventTypes = map[string]bool{
	"solo_performance": true,
	"open_mic":         true,
	"venue_booking":    true,
}

func validateEventType(fl validator.FieldLevel) bool {
	return validEventTypes[fl.Field().String()]
}

var validTravelModes = map[string]bool{
	"walk": true,
	"bike": true,
	"car":  true,
}

func validateTravelMode(fl validator.FieldLevel) bool {
	return validTravelModes[fl.Field().String()]
}

// Provider place types.
var validPlaceTypes = map[string]bool{
	"country":      true,
	"region":       true,
	"place":        true,
	"locality":     true,
	"neighborhood": true,
	"address":      true,
	"poi":          true,
}

func validatePlaceType(fl validator.FieldLevel) bool {
	return validPlaceTypes[fl.Field().String()]
}

func validateTheme(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "light" || s == "dark"
}

var countryCodeRegex = regexp.MustCompile(`^[a-z]{2}(,[a-z]{2})*$`)

func validateCountryCodes(fl validator.FieldLevel) bool {
	return countryCodeRegex.MatchString(fl.Field().String())
}

// Validate validates a struct and returns validation errors.
func Validate(s interface{}) error {
	return GetValidator().Struct(s)
}

// ValidateStruct validates s and returns its field errors in our format.
// err is nil when s is valid.
func ValidateStruct(s interface{}) (ValidationErrors, error) {
	err := Validate(s)
	if err == nil {
		return nil, nil
	}
	return ParseValidationErrors(err), err
}

// Check validates s and returns an AppError carrying per-field details.
func Check(s interface{}) error {
	fields, err := ValidateStruct(s)
	if err == nil {
		return nil
	}
	if len(fields) == 0 {
		return apperrors.Validation(err.Error())
	}
	return apperrors.ValidationWithDetails("validation failed", fields.Details())
}

// ValidationError represents a single validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, e := range ve {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(e.Field)
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	return sb.String()
}

// Details returns the errors keyed by field.
func (ve ValidationErrors) Details() map[string]string {
	out := make(map[string]string, len(ve))
	for _, e := range ve {
		out[e.Field] = e.Message
	}
	return out
}

// ParseValidationErrors converts validator.ValidationErrors to our format.
func ParseValidationErrors(err error) ValidationErrors {
	if err == nil {
		return nil
	}

	var validationErrors ValidationErrors

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, e := range ve {
			validationErrors = append(validationErrors, ValidationError{
				Field:   e.Field(),
				Message: getErrorMessage(e),
			})
		}
	}

	return validationErrors
}

func getErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "latitude":
		return "must be a valid latitude (-90 to 90)"
	case "longitude":
		return "must be a valid longitude (-180 to 180)"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "event_type":
		return "must be one of: solo_performance, open_mic, venue_booking"
	case "travel_mode":
		return "must be one of: walk, bike, car"
	case "place_type":
		return "must be a valid place type"
	case "theme":
		return "must be light or dark"
	case "country_codes":
		return "must be comma separated two-letter country codes"
	case "oneof":
		return "must be one of: " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lt":
		return "must be less than " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	default:
		return "is invalid"
	}
}

// ValidateVar validates a single variable.
func ValidateVar(field interface{}, tag string) error {
	return GetValidator().Var(field, tag)
}

// DecodeAndValidate decodes a JSON body into dst and validates it. On
// failure it writes the error response and returns false.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		apperrors.WriteErrorWithStatus(w, http.StatusUnsupportedMediaType,
			apperrors.CodeBadRequest, "Content-Type must be application/json")
		return false
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		apperrors.WriteError(w, apperrors.BadRequest("invalid JSON body"), "")
		return false
	}

	if err := Check(dst); err != nil {
		apperrors.WriteError(w, err, "")
		return false
	}
	return true
}

// Validator wraps the go-playground validator for easier use.
type Validator struct {
	v *validator.Validate
}

// New creates a new Validator instance.
func New() *Validator {
	return &Validator{v: GetValidator()}
}

// Struct validates a struct.
func (v *Validator) Struct(s interface{}) error {
	return v.v.Struct(s)
}

// Var validates a single variable.
func (v *Validator) Var(field interface{}, tag string) error {
	return v.v.Var(field, tag)
}
