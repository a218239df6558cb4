package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/denizblog/blog/internal/db"
	"github.com/denizblog/blog/internal/forms"
	"github.com/denizblog/blog/internal/types"
	"github.com/denizblog/blog/pkg/utils"
	"github.com/denizblog/blog/pkg/utils/markdown"
	"github.com/denizblog/blog/web/static/html"
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	posts, err := requestContext(r).Store.ListPosts(r.Context())
	if err != nil {
		s.fail(w, r, types.Internal(err))
		return
	}
	data := html.HomePage{
		Page:  s.page(w, r, s.cfg.SiteTitle, s.cfg.SiteSubtitle),
		Posts: posts,
	}
	s.render(w, r, http.StatusOK, func(out io.Writer) error {
		return html.Home(out, data)
	})
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	data := s.page(w, r, "About Me", "Little bit me!")
	s.render(w, r, http.StatusOK, func(out io.Writer) error {
		return html.About(out, data)
	})
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	data := s.page(w, r, "Contact", "Send a word!")
	s.render(w, r, http.StatusOK, func(out io.Writer) error {
		return html.Contact(out, data)
	})
}

func (s *Server) handleShowPost(w http.ResponseWriter, r *http.Request) {
	s.renderPost(w, r, http.StatusOK, forms.Result[forms.CommentForm]{})
}

func (s *Server) renderPost(w http.ResponseWriter, r *http.Request, status int, form forms.Result[forms.CommentForm]) {
	post := postFromContext(r)
	comments, err := requestContext(r).Store.CommentsForPost(r.Context(), post.ID)
	if err != nil {
		s.fail(w, r, types.Internal(err))
		return
	}
	data := html.PostPage{
		Page:     s.page(w, r, post.Title, postSubtitle(post)),
		Post:     post,
		Body:     markdown.RenderBody(post.Body),
		Comments: comments,
		Form:     form.Value,
		Errors:   form.Errors,
	}
	s.render(w, r, status, func(out io.Writer) error {
		return html.Post(out, data)
	})
}

func (s *Server) handleComment(w http.ResponseWriter, r *http.Request) {
	rc := requestContext(r)
	if !rc.Authenticated() {
		s.flashRedirect(w, r, flashCommentLogin, "/login")
		return
	}

	post := postFromContext(r)
	form := forms.ParseComment(r)
	if !form.OK() {
		s.renderPost(w, r, http.StatusOK, form)
		return
	}

	c := db.Comment{
		Text:     form.Value.Comment,
		PostID:   post.ID,
		AuthorID: rc.User.ID,
	}
	if err := rc.Store.CreateComment(r.Context(), &c); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.fail(w, r, types.NotFound())
			return
		}
		s.fail(w, r, types.Internal(err))
		return
	}

	s.logger.Infow("Comment created", "comment_id", c.ID, "post_id", post.ID, "user_id", rc.User.ID)
	s.recordComment(r)
	http.Redirect(w, r, postPath(post.ID), http.StatusSeeOther)
}

func (s *Server) handleNewPost(w http.ResponseWriter, r *http.Request) {
	s.renderNewPost(w, r, http.StatusOK, forms.Result[forms.PostForm]{})
}

func (s *Server) renderNewPost(w http.ResponseWriter, r *http.Request, status int, form forms.Result[forms.PostForm]) {
	data := html.PostFormPage{
		Page:   s.page(w, r, "New Post", "You're going to make a great blog post!"),
		Action: "/make_post",
		Submit: "Submit Post",
		Form:   form.Value,
		Errors: form.Errors,
	}
	s.render(w, r, status, func(out io.Writer) error {
		return html.MakePost(out, data)
	})
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	rc := requestContext(r)
	form := forms.ParsePost(r)
	if !form.OK() {
		s.renderNewPost(w, r, http.StatusOK, form)
		return
	}

	p := db.Post{
		Title:    form.Value.Title,
		Subtitle: form.Value.Subtitle,
		Date:     utils.FormatPostDate(time.Now()),
		Body:     form.Value.Body,
		ImgURL:   form.Value.ImgURL,
		AuthorID: rc.User.ID,
	}
	if err := rc.Store.CreatePost(r.Context(), &p); err != nil {
		if errors.Is(err, db.ErrTitleTaken) {
			form.Errors = append(form.Errors, titleTaken)
			s.renderNewPost(w, r, http.StatusOK, form)
			return
		}
		s.fail(w, r, types.Internal(err))
		return
	}

	s.logger.Infow("Post created", "post_id", p.ID, "title", p.Title, "user_id", rc.User.ID)
	s.recordPostWrite(r, "create")
	http.Redirect(w, r, postPath(p.ID), http.StatusSeeOther)
}

var titleTaken = forms.FieldError{Field: "title", Message: "A post with this title already exists."}

func (s *Server) handleEditPage(w http.ResponseWriter, r *http.Request) {
	post := postFromContext(r)
	if !s.canEdit(r, post) {
		s.fail(w, r, types.Forbidden())
		return
	}
	form := forms.Result[forms.PostForm]{Value: forms.PostForm{
		Title:    post.Title,
		Subtitle: post.Subtitle,
		ImgURL:   post.ImgURL,
		Body:     post.Body,
	}}
	s.renderEditPost(w, r, http.StatusOK, post.ID, form)
}

func (s *Server) renderEditPost(w http.ResponseWriter, r *http.Request, status int, id uint, form forms.Result[forms.PostForm]) {
	data := html.PostFormPage{
		Page:   s.page(w, r, "Edit Post", "Lets get this correct this time!"),
		Action: fmt.Sprintf("/edit-post/%d", id),
		Submit: "Update Post",
		Form:   form.Value,
		Errors: form.Errors,
	}
	s.render(w, r, status, func(out io.Writer) error {
		return html.MakePost(out, data)
	})
}

func (s *Server) handleEditPost(w http.ResponseWriter, r *http.Request) {
	rc := requestContext(r)
	post := postFromContext(r)
	if !s.canEdit(r, post) {
		s.fail(w, r, types.Forbidden())
		return
	}

	form := forms.ParsePost(r)
	if !form.OK() {
		s.renderEditPost(w, r, http.StatusOK, post.ID, form)
		return
	}

	_, err := rc.Store.UpdatePost(r.Context(), post.ID, db.PostFields{
		Title:    form.Value.Title,
		Subtitle: form.Value.Subtitle,
		Body:     form.Value.Body,
		ImgURL:   form.Value.ImgURL,
	})
	switch {
	case errors.Is(err, db.ErrTitleTaken):
		form.Errors = append(form.Errors, titleTaken)
		s.renderEditPost(w, r, http.StatusOK, post.ID, form)
		return
	case errors.Is(err, db.ErrNotFound):
		s.fail(w, r, types.NotFound())
		return
	case err != nil:
		s.fail(w, r, types.Internal(err))
		return
	}

	s.logger.Infow("Post updated", "post_id", post.ID, "user_id", rc.User.ID)
	s.recordPostWrite(r, "update")
	http.Redirect(w, r, postPath(post.ID), http.StatusSeeOther)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	rc := requestContext(r)
	post := postFromContext(r)
	if !s.canEdit(r, post) {
		s.fail(w, r, types.Forbidden())
		return
	}

	if err := rc.Store.DeletePost(r.Context(), post.ID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.fail(w, r, types.NotFound())
			return
		}
		s.fail(w, r, types.Internal(err))
		return
	}

	s.logger.Infow("Post deleted", "post_id", post.ID, "user_id", rc.User.ID)
	s.recordPostWrite(r, "delete")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// canEdit applies the owner-only rule when it is switched on.
func (s *Server) canEdit(r *http.Request, post *db.PostEntry) bool {
	rc := requestContext(r)
	if !rc.Authenticated() {
		return false
	}
	return !s.cfg.Security.OwnerOnlyEdits || post.AuthorID == rc.User.ID
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.renderRegister(w, r, http.StatusOK, forms.Result[forms.UserForm]{})
}

func (s *Server) renderRegister(w http.ResponseWriter, r *http.Request, status int, form forms.Result[forms.UserForm]) {
	form.Value.Password = ""
	data := html.UserFormPage{
		Page:   s.page(w, r, "Register", "Welcome!"),
		Form:   form.Value,
		Errors: form.Errors,
	}
	s.render(w, r, status, func(out io.Writer) error {
		return html.Register(out, data)
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	rc := requestContext(r)
	form := forms.ParseUser(r)
	if !form.OK() {
		s.renderRegister(w, r, http.StatusOK, form)
		return
	}

	hashed, err := s.hasher.Hash(form.Value.Password)
	if err != nil {
		s.fail(w, r, types.Internal(err))
		return
	}
	u := db.User{
		Email:    form.Value.Email,
		Password: hashed,
		Name:     form.Value.Name,
	}
	if err := rc.Store.CreateUser(r.Context(), &u); err != nil {
		if errors.Is(err, db.ErrEmailTaken) {
			s.recordRegistration(r, "duplicate")
			s.flashRedirect(w, r, flashEmailTaken, "/login")
			return
		}
		s.fail(w, r, types.Internal(err))
		return
	}

	s.logger.Infow("User registered", "user_id", u.ID, "email", u.Email)
	s.recordRegistration(r, "created")
	s.flashRedirect(w, r, flashRegistered, "/")
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.renderLogin(w, r, http.StatusOK, forms.Result[forms.UserForm]{})
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, status int, form forms.Result[forms.UserForm], extra ...string) {
	form.Value.Password = ""
	data := html.UserFormPage{
		Page:   s.page(w, r, "Login", "Hello Again!", extra...),
		Form:   form.Value,
		Errors: form.Errors,
	}
	s.render(w, r, status, func(out io.Writer) error {
		return html.Login(out, data)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	rc := requestContext(r)
	form := forms.ParseUser(r)
	if !form.OK() {
		s.renderLogin(w, r, http.StatusOK, form)
		return
	}

	user, err := rc.Store.UserByEmail(r.Context(), form.Value.Email)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		s.fail(w, r, types.Internal(err))
		return
	}
	// an unknown email fails the same way as a wrong password
	if user == nil || !s.hasher.Verify(user.Password, form.Value.Password) {
		s.logger.Infow("Login failed", "email", form.Value.Email, "remote_addr", r.RemoteAddr)
		s.recordLogin(r, "failure")
		s.renderLogin(w, r, http.StatusOK, form, flashWrongPassword)
		return
	}

	rc.Session.Flashes = append(rc.Session.Flashes, flashLoggedIn)
	if err := s.sessions.Login(r.Context(), w, rc.Session, user.ID); err != nil {
		s.fail(w, r, types.Internal(err))
		return
	}

	s.logger.Infow("Login succeeded", "user_id", user.ID)
	s.recordLogin(r, "success")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	rc := requestContext(r)
	userID := rc.User.ID
	if err := s.sessions.Logout(r.Context(), w, rc.Session); err != nil {
		s.fail(w, r, types.Internal(err))
		return
	}
	s.logger.Infow("Logged out", "user_id", userID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// postSubtitle is the masthead line under a post's title.
func postSubtitle(post *db.PostEntry) string {
	return fmt.Sprintf("%s · Posted by %s on %s", post.Subtitle, post.AuthorDisplay(), post.Date)
}

func postPath(id uint) string {
	return fmt.Sprintf("/post/%d", id)
}

func (s *Server) recordLogin(r *http.Request, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordLogin(r.Context(), outcome)
	}
}

func (s *Server) recordRegistration(r *http.Request, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordRegistration(r.Context(), outcome)
	}
}

func (s *Server) recordPostWrite(r *http.Request, op string) {
	if s.metrics != nil {
		s.metrics.RecordPostWrite(r.Context(), op)
	}
}

func (s *Server) recordComment(r *http.Request) {
	if s.metrics != nil {
		s.metrics.RecordComment(r.Context())
	}
}
