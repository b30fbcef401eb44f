package middleware

import (
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/palletspace/booking-service/pkg/errors"
)

var (
	goodsTypePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{1,39}$`)
	slotTimePattern  = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// bookingRules are the custom tags request DTOs use next to the built-in ones
var bookingRules = map[string]validator.Func{
	"goodstype":   func(fl validator.FieldLevel) bool { return goodsTypePattern.MatchString(fl.Field().String()) },
	"slottime":    func(fl validator.FieldLevel) bool { return slotTimePattern.MatchString(fl.Field().String()) },
	"palletkind":  oneOf("standard", "euro", "custom"),
	"bookingtype": oneOf("pallet", "area_rental"),
	"isodate":     validateISODate,
}

// ruleMessages is keyed by validator tag. Tags with a parameter get it appended.
var ruleMessages = map[string]string{
	"required":    "is required",
	"min":         "must be at least ",
	"max":         "must be at most ",
	"gt":          "must be greater than ",
	"gte":         "must be greater than or equal to ",
	"lte":         "must be less than or equal to ",
	"oneof":       "must be one of: ",
	"email":       "must be a valid email address",
	"uuid":        "must be a valid UUID",
	"goodstype":   "must be a lowercase goods type identifier",
	"palletkind":  "must be one of: standard, euro, custom",
	"bookingtype": "must be one of: pallet, area_rental",
	"isodate":     "must be a date (YYYY-MM-DD) or RFC3339 timestamp",
	"slottime":    "must be a time of day (HH:MM)",
}

var registerOnce sync.Once

// InitValidator adds the booking rules to gin's binding engine. Field errors
// are reported under the json or form name the client sent.
func InitValidator() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		for tag, fn := range bookingRules {
			_ = v.RegisterValidation(tag, fn)
		}
		v.RegisterTagNameFunc(fieldName)
	})
}

func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		if name == "-" {
			break
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

func oneOf(allowed ...string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, a := range allowed {
			if value == a {
				return true
			}
		}
		return false
	}
}

func validateISODate(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}

func fieldMessage(e validator.FieldError) string {
	msg, ok := ruleMessages[e.Tag()]
	if !ok {
		return "is invalid"
	}
	if strings.HasSuffix(msg, " ") {
		return msg + e.Param()
	}
	return msg
}

// bindError turns a binding failure into a 400. Rule violations carry one
// message per field, decoding failures carry the decoder's message.
func bindError(err error, what string) *errors.AppError {
	violations, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.ErrValidation("invalid " + what + ": " + err.Error())
	}
	fields := make(map[string]string, len(violations))
	for _, v := range violations {
		fields[v.Field()] = fieldMessage(v)
	}
	return errors.ErrValidationWithFields("validation failed", fields)
}

// BindAndValidate decodes the JSON body into obj and runs its rules
func BindAndValidate(c *gin.Context, obj interface{}) *errors.AppError {
	if err := c.ShouldBindJSON(obj); err != nil {
		return bindError(err, "request body")
	}
	return nil
}

// BindQueryAndValidate does the same for the query string
func BindQueryAndValidate(c *gin.Context, obj interface{}) *errors.AppError {
	if err := c.ShouldBindQuery(obj); err != nil {
		return bindError(err, "query")
	}
	return nil
}

// InputSanitizer strips NUL bytes and surrounding blanks from query values
func InputSanitizer() gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Request.URL.Query()
		for _, values := range query {
			for i, v := range values {
				values[i] = strings.TrimSpace(strings.ReplaceAll(v, "\x00", ""))
			}
		}
		c.Request.URL.RawQuery = query.Encode()
		c.Next()
	}
}

// ContentType rejects write bodies that are neither JSON nor a multipart upload
func ContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			ct := c.GetHeader("Content-Type")
			if c.Request.ContentLength > 0 &&
				!strings.HasPrefix(ct, "application/json") &&
				!strings.HasPrefix(ct, "multipart/form-data") {
				AbortWithAppError(c, errors.NewAppError("INVALID_CONTENT_TYPE",
					"Content-Type must be application/json", http.StatusUnsupportedMediaType))
				return
			}
		}
		c.Next()
	}
}
