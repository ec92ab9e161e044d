package handler

import (
    "errors"
    "fmt"
    "reflect"
    "strings"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"
)

// Validator adapts go-playground/validator to echo.Validator.  Field names
// in messages are the json names; a `msg` struct tag overrides the whole
// message for that field.
type Validator struct {
    validate *validator.Validate
}

func NewValidator() *Validator {
    v := validator.New()
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
        if name == "" || name == "-" {
            return f.Name
        }
        return name
    })
    return &Validator{validate: v}
}

// ValidationError describes the first rule a request broke.
type ValidationError struct {
    Field   string
    Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (cv *Validator) Validate(i interface{}) error {
    err := cv.validate.Struct(i)
    var verrs validator.ValidationErrors
    if !errors.As(err, &verrs) || len(verrs) == 0 {
        return err
    }
    fe := verrs[0]
    return &ValidationError{Field: fe.Field(), Message: message(i, fe)}
}

func message(i interface{}, fe validator.FieldError) string {
    t := reflect.TypeOf(i)
    for t.Kind() == reflect.Ptr {
        t = t.Elem()
    }
    if f, ok := t.FieldByName(fe.StructField()); ok {
        if m := f.Tag.Get("msg"); m != "" {
            return m
        }
    }
    switch fe.Tag() {
    case "required":
        return fmt.Sprintf("%s is required", fe.Field())
    case "email":
        return fmt.Sprintf("%s must be a valid email address", fe.Field())
    case "max":
        return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
    case "oneof":
        return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
    }
    return fmt.Sprintf("%s is invalid", fe.Field())
}

// normalizer is implemented by requests that trim their fields before
// validation.
type normalizer interface {
    normalize()
}

// bindRequest decodes the body into req, normalizes and validates it.  It
// returns a client-facing message, or "" when req is usable.
func bindRequest(c echo.Context, req interface{}) string {
    if err := c.Bind(req); err != nil {
        return "Invalid request body"
    }
    if n, ok := req.(normalizer); ok {
        n.normalize()
    }
    if err := c.Validate(req); err != nil {
        var ve *ValidationError
        if errors.As(err, &ve) {
            return ve.Message
        }
        return "Invalid request body"
    }
    return ""
}
