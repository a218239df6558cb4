// Package forms binds submitted HTML forms to typed structs and checks that
// required fields are present.
package forms

import (
	"net/http"
	"strings"
)

type FieldError struct {
	Field   string
	Message string
}

type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Message
	}
	return strings.Join(msgs, "; ")
}

// For returns the message for field, or "" when the field is valid.
func (e Errors) For(field string) string {
	for _, fe := range e {
		if fe.Field == field {
			return fe.Message
		}
	}
	return ""
}

// Result holds either a valid Value or the Errors that rejected it.
// Value is populated in both cases so forms can be re-rendered with the input.
type Result[T any] struct {
	Value  T
	Errors Errors
}

func (r Result[T]) OK() bool {
	return len(r.Errors) == 0
}

type PostForm struct {
	Title    string
	Subtitle string
	ImgURL   string
	Body     string
}

type CommentForm struct {
	Comment string
}

// UserForm backs both registration and login. Name is only used at registration.
type UserForm struct {
	Name     string
	Email    string
	Password string
}

func ParsePost(r *http.Request) Result[PostForm] {
	f := PostForm{
		Title:    field(r, "title"),
		Subtitle: field(r, "subtitle"),
		ImgURL:   field(r, "img_url"),
		Body:     field(r, "body"),
	}
	return Validate(f,
		Required("title", "Blog Post Title", f.Title),
		Required("subtitle", "Subtitle", f.Subtitle),
		Required("img_url", "Blog Image URL", f.ImgURL),
		Required("body", "Body", f.Body),
	)
}

func ParseComment(r *http.Request) Result[CommentForm] {
	f := CommentForm{Comment: field(r, "comment")}
	return Validate(f, Required("comment", "Comment", f.Comment))
}

func ParseUser(r *http.Request) Result[UserForm] {
	f := UserForm{
		Name:     field(r, "name"),
		Email:    field(r, "email"),
		Password: r.PostFormValue("password"),
	}
	return Validate(f,
		Required("email", "E-mail", f.Email),
		Required("password", "Password", f.Password),
	)
}

// Check is one validation rule; it returns nil when satisfied.
type Check func() *FieldError

// Required rejects values that are empty after trimming whitespace.
func Required(name, label, value string) Check {
	return func() *FieldError {
		if strings.TrimSpace(value) == "" {
			return &FieldError{Field: name, Message: label + " is required."}
		}
		return nil
	}
}

func Validate[T any](value T, checks ...Check) Result[T] {
	var errs Errors
	for _, c := range checks {
		if fe := c(); fe != nil {
			errs = append(errs, *fe)
		}
	}
	return Result[T]{Value: value, Errors: errs}
}

func field(r *http.Request, name string) string {
	return strings.TrimSpace(r.PostFormValue(name))
}
