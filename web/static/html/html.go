package html

import (
	"embed"
	"html/template"
	"io"
	"sync"

	"github.com/denizblog/blog/internal/db"
	"github.com/denizblog/blog/internal/forms"
	"github.com/denizblog/blog/internal/types"
)

//go:embed *.html
var files embed.FS

// FromDisk makes every render re-read the templates from web/static/html, for
// use with live reload during development.
var FromDisk bool

var (
	cacheMu sync.RWMutex
	cache   = map[string]*template.Template{}
)

func parse(file string) *template.Template {
	if FromDisk {
		// dynamically read from files for dynamic template parsing
		return template.Must(
			template.New("layout.html").ParseFiles("web/static/html/layout.html", "web/static/html/"+file))
	}

	cacheMu.RLock()
	t, ok := cache[file]
	cacheMu.RUnlock()
	if ok {
		return t
	}
	t = template.Must(template.New("layout.html").ParseFS(files, "layout.html", file))
	cacheMu.Lock()
	cache[file] = t
	cacheMu.Unlock()
	return t
}

// Page is the data every template's layout needs.
type Page struct {
	SiteTitle string
	Title     string
	Subtitle  string
	User      *db.User
	Flashes   []string

	// OwnerOnlyEdits limits the edit and delete links to a post's author.
	OwnerOnlyEdits bool
}

// CanEdit reports whether the current visitor may edit or delete a post by authorID.
func (p Page) CanEdit(authorID uint) bool {
	if p.User == nil {
		return false
	}
	return !p.OwnerOnlyEdits || p.User.ID == authorID
}

type HomePage struct {
	Page
	Posts []db.PostEntry
}

type PostPage struct {
	Page
	Post     *db.PostEntry
	Body     template.HTML
	Comments []db.CommentEntry
	Form     forms.CommentForm
	Errors   forms.Errors
}

type PostFormPage struct {
	Page
	Action string
	Submit string
	Form   forms.PostForm
	Errors forms.Errors
}

type UserFormPage struct {
	Page
	Form   forms.UserForm
	Errors forms.Errors
}

type ErrorPage struct {
	Page
	Err types.StatusError
}

func Home(w io.Writer, data HomePage) error {
	return parse("home.html").Execute(w, data)
}

func Post(w io.Writer, data PostPage) error {
	return parse("post.html").Execute(w, data)
}

func About(w io.Writer, data Page) error {
	return parse("about.html").Execute(w, data)
}

func Contact(w io.Writer, data Page) error {
	return parse("contact.html").Execute(w, data)
}

func MakePost(w io.Writer, data PostFormPage) error {
	return parse("make-post.html").Execute(w, data)
}

func Register(w io.Writer, data UserFormPage) error {
	return parse("register.html").Execute(w, data)
}

func Login(w io.Writer, data UserFormPage) error {
	return parse("login.html").Execute(w, data)
}

func Error(w io.Writer, data ErrorPage) error {
	return parse("error.html").Execute(w, data)
}
