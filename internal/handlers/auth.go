package handlers

import (
	"net/http"

	"github.com/VULUxOMID/GoldGames/internal/forms"
	"github.com/VULUxOMID/GoldGames/internal/middleware"
	"github.com/VULUxOMID/GoldGames/internal/models"
	"github.com/VULUxOMID/GoldGames/internal/routes"
	"github.com/VULUxOMID/GoldGames/internal/state"
)

// AuthView is the sign-in and sign-up screen.
type AuthView struct {
	Email       string       `json:"email"`
	Loading     bool         `json:"loading"`
	Error       string       `json:"error,omitempty"`
	FieldErrors forms.Errors `json:"fieldErrors,omitempty"`
	Notice      string       `json:"notice,omitempty"`
}

func authView(app *state.App, email string) AuthView {
	st := app.Auth.Snapshot()
	return AuthView{
		Email:   email,
		Loading: st.Status == state.StatusLoading,
		Error:   st.Error,
		Notice:  st.Notice,
	}
}

func renderPublic(w http.ResponseWriter, status int, path string, view AuthView) {
	writeJSON(w, status, Page{Screen: mustRoute(path).Screen, View: view})
}

// publicApp returns the browser's state, sending signed-in browsers home instead.
func publicApp(w http.ResponseWriter, r *http.Request) (*state.App, bool) {
	app, ok := middleware.AppFrom(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "no browser session")
		return nil, false
	}
	if _, signedIn := app.Auth.User(); signedIn {
		http.Redirect(w, r, routes.HomePath, http.StatusSeeOther)
		return nil, false
	}
	return app, true
}

func (h *Handler) SignInPage(w http.ResponseWriter, r *http.Request) {
	app, ok := publicApp(w, r)
	if !ok {
		return
	}
	renderPublic(w, http.StatusOK, routes.SignInPath, authView(app, ""))
}

func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	app, ok := publicApp(w, r)
	if !ok {
		return
	}

	var form forms.SignIn
	if err := decode(r, &form, map[string]*string{"email": &form.Email, "password": &form.Password}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs := form.Validate(); !errs.OK() {
		view := authView(app, form.Email)
		view.Error = errs.Message()
		view.FieldErrors = errs
		renderPublic(w, http.StatusUnprocessableEntity, routes.SignInPath, view)
		return
	}

	app.Reset()
	if err := app.Auth.SignIn(r.Context(), form.Email, form.Password); err != nil {
		renderPublic(w, statusFor(err), routes.SignInPath, authView(app, form.Email))
		return
	}
	h.Sessions.SetToken(w, app.Auth.Token())
	http.Redirect(w, r, routes.HomePath, http.StatusSeeOther)
}

func (h *Handler) SignUpPage(w http.ResponseWriter, r *http.Request) {
	app, ok := publicApp(w, r)
	if !ok {
		return
	}
	renderPublic(w, http.StatusOK, routes.SignUpPath, authView(app, ""))
}

// SignUp registers the browser's user. When the backend still wants the email confirmed the
// browser is sent to sign in, where the notice is shown.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	app, ok := publicApp(w, r)
	if !ok {
		return
	}

	var form forms.SignUp
	fields := map[string]*string{
		"email":           &form.Email,
		"password":        &form.Password,
		"confirmPassword": &form.ConfirmPassword,
	}
	if err := decode(r, &form, fields); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs := form.Validate(); !errs.OK() {
		view := authView(app, form.Email)
		view.Error = errs.Message()
		view.FieldErrors = errs
		renderPublic(w, http.StatusUnprocessableEntity, routes.SignUpPath, view)
		return
	}

	app.Reset()
	if err := app.Auth.SignUp(r.Context(), form.Email, form.Password); err != nil {
		renderPublic(w, statusFor(err), routes.SignUpPath, authView(app, form.Email))
		return
	}
	if token := app.Auth.Token(); token != "" {
		h.Sessions.SetToken(w, token)
		http.Redirect(w, r, routes.HomePath, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, routes.SignInPath, http.StatusSeeOther)
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request, app *state.App, _ models.User) {
	app.Auth.SignOut(r.Context())
	app.Reset()
	h.Sessions.SetToken(w, "")
	http.Redirect(w, r, routes.SignInPath, http.StatusSeeOther)
}
