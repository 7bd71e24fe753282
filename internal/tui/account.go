package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/naveenspark/storefront/internal/sanitize"
	"github.com/naveenspark/storefront/internal/session"
	"github.com/naveenspark/storefront/pkg/client"
	"github.com/naveenspark/storefront/pkg/domain"
)

type accountMode int

const (
	acctLogin accountMode = iota
	acctSignup
	acctProfile
	acctEdit
)

// sessionMsg carries the outcome of any session operation.
type sessionMsg struct {
	op   string
	sess session.Session
	err  error
}

type emailCheckedMsg struct {
	email     string
	available bool
	err       error
}

type signupFailedMsg struct {
	err error
}

// AuthURLMsg asks the user to open an identity provider sign-in URL by hand.
type AuthURLMsg string

// Login form field indexes.
const (
	lfEmail = iota
	lfPassword
)

// Signup and profile form field indexes.
const (
	sfName = iota
	sfEmail
	sfPassword
	sfAvatar
)

type accountModel struct {
	sessions  Sessions
	api       API
	oauth     DelegatedLogin
	logger    zerolog.Logger
	sess      session.Session
	mode      accountMode
	form      form
	focused   bool
	busy      bool
	emailNote string
	emailOK   bool
	authURL   string
	status    string
	statusErr bool
}

func newAccountModel(sessions Sessions, api API, oauth DelegatedLogin, logger zerolog.Logger) accountModel {
	m := accountModel{sessions: sessions, api: api, oauth: oauth, logger: logger}
	m.sess = sessions.Snapshot()
	m.resetMode()
	return m
}

func newLoginForm() form {
	return newForm(
		formField{label: "Email"},
		formField{label: "Password", secret: true},
	)
}

func newSignupForm() form {
	f := newForm(
		formField{label: "Name"},
		formField{label: "Email"},
		formField{label: "Password", secret: true},
		formField{label: "Avatar"},
	)
	f.fields[sfAvatar].value = domain.DefaultAvatar
	return f
}

func newProfileForm(id *domain.Identity) form {
	f := newForm(
		formField{label: "Name"},
		formField{label: "Email"},
		formField{label: "Password", secret: true},
		formField{label: "Avatar"},
	)
	if id != nil {
		f.fields[sfName].value = id.Name
		f.fields[sfEmail].value = id.Email
		f.fields[sfAvatar].value = id.AvatarURL
	}
	return f
}

// resetMode picks the resting screen for the current session.
func (m *accountModel) resetMode() {
	m.focused = false
	m.busy = false
	m.authURL = ""
	if m.sess.IsAuthenticated() {
		m.mode = acctProfile
		return
	}
	m.mode = acctLogin
	m.form = newLoginForm()
}

func (m *accountModel) setStatus(msg string, isErr bool) {
	m.status = msg
	m.statusErr = isErr
}

func (m accountModel) restore() tea.Cmd {
	sessions := m.sessions
	return func() tea.Msg {
		s, err := sessions.Restore(context.Background())
		return sessionMsg{op: "restore", sess: s, err: err}
	}
}

func (m accountModel) editing() bool {
	return m.focused
}

func (m accountModel) Update(msg tea.Msg) (accountModel, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionMsg:
		if errors.Is(msg.err, domain.ErrSuperseded) {
			return m, nil
		}
		m.sess = msg.sess
		if msg.err != nil {
			m.busy = false
			m.authURL = ""
			m.logger.Warn().Err(msg.err).Str("op", msg.op).Msg("session")
			m.setStatus(domain.MessageOf(msg.err), true)
			if !m.sess.IsAuthenticated() && (m.mode == acctProfile || m.mode == acctEdit) {
				m.resetMode()
			}
			return m, nil
		}
		switch msg.op {
		case "logout":
			m.setStatus("signed out", false)
		case "update":
			m.setStatus("profile updated", false)
		case "restore":
			m.status = ""
		default:
			if m.sess.Identity != nil {
				m.setStatus("signed in as "+sanitize.Line(m.sess.Identity.Name, 40), false)
			}
		}
		m.resetMode()
		return m, nil

	case emailCheckedMsg:
		if m.mode != acctSignup || msg.email != m.form.value(sfEmail) {
			return m, nil
		}
		switch {
		case msg.err != nil:
			m.emailNote = "could not check email"
			m.emailOK = true
		case msg.available:
			m.emailNote = "email available"
			m.emailOK = true
		default:
			m.emailNote = "email already registered"
			m.emailOK = false
		}
		return m, nil

	case signupFailedMsg:
		m.busy = false
		m.setStatus(client.MessageOf(msg.err), true)
		return m, nil

	case AuthURLMsg:
		m.authURL = string(msg)
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m accountModel) updateKeys(msg tea.KeyMsg) (accountModel, tea.Cmd) {
	key := msg.String()

	// Shortcuts that work whether or not a form has focus.
	if m.mode == acctLogin || m.mode == acctSignup {
		switch key {
		case "ctrl+o":
			return m.delegatedLogin()
		case "ctrl+n":
			if m.mode == acctSignup {
				m.resetMode()
				return m, nil
			}
			m.mode = acctSignup
			m.form = newSignupForm()
			m.focused = true
			m.emailNote = ""
			m.status = ""
			return m, nil
		}
	}

	if !m.focused {
		switch m.mode {
		case acctLogin:
			if key == "enter" {
				m.focused = true
				m.status = ""
			}
		case acctProfile:
			switch key {
			case "e":
				if !m.sess.CanUpdateProfile() {
					m.setStatus("Sign in with email and password to edit your profile.", true)
					return m, nil
				}
				m.mode = acctEdit
				m.form = newProfileForm(m.sess.Identity)
				m.focused = true
				m.status = ""
			case "o":
				sessions := m.sessions
				return m, func() tea.Msg {
					return sessionMsg{op: "logout", sess: sessions.Logout(context.Background())}
				}
			}
		}
		return m, nil
	}

	if key == "esc" {
		switch m.mode {
		case acctSignup:
			m.resetMode()
		case acctEdit:
			m.mode = acctProfile
			m.focused = false
		default:
			m.focused = false
		}
		m.status = ""
		return m, nil
	}

	prev := m.form.focus
	ev := m.form.update(msg)
	if m.mode == acctSignup && prev == sfEmail && m.form.focus != sfEmail {
		if cmd := m.checkEmail(); cmd != nil {
			return m, cmd
		}
	}
	if ev != formSubmit || m.busy {
		return m, nil
	}

	switch m.mode {
	case acctLogin:
		return m.submitLogin()
	case acctSignup:
		return m.submitSignup()
	case acctEdit:
		return m.submitProfile()
	}
	return m, nil
}

func (m accountModel) checkEmail() tea.Cmd {
	email := m.form.value(sfEmail)
	if email == "" {
		return nil
	}
	api := m.api
	return func() tea.Msg {
		ok, err := api.IsEmailAvailable(context.Background(), email)
		return emailCheckedMsg{email: email, available: ok, err: err}
	}
}

func (m accountModel) submitLogin() (accountModel, tea.Cmd) {
	email, password := m.form.value(lfEmail), m.form.fields[lfPassword].value
	if email == "" || password == "" {
		m.setStatus("Email and password are required.", true)
		return m, nil
	}
	m.busy = true
	m.status = ""
	sessions := m.sessions
	return m, func() tea.Msg {
		s, err := sessions.LoginWithCredentials(context.Background(), email, password)
		return sessionMsg{op: "login", sess: s, err: err}
	}
}

func (m accountModel) delegatedLogin() (accountModel, tea.Cmd) {
	if m.oauth == nil {
		m.setStatus("Identity provider sign-in is not configured.", true)
		return m, nil
	}
	if m.busy {
		return m, nil
	}
	m.resetMode()
	m.mode = acctLogin
	m.form = newLoginForm()
	m.busy = true
	m.setStatus("waiting for the identity provider...", false)
	login, sessions := m.oauth, m.sessions
	return m, func() tea.Msg {
		ctx := context.Background()
		if _, err := login.Login(ctx); err != nil {
			return sessionMsg{op: "oauth", sess: sessions.Snapshot(), err: err}
		}
		s, err := sessions.LoginWithDelegatedSession(ctx)
		return sessionMsg{op: "oauth", sess: s, err: err}
	}
}

func (m accountModel) submitSignup() (accountModel, tea.Cmd) {
	name, email := m.form.value(sfName), m.form.value(sfEmail)
	password := m.form.fields[sfPassword].value
	if name == "" || email == "" || password == "" {
		m.setStatus("Name, email and password are required.", true)
		return m, nil
	}
	if m.emailNote != "" && !m.emailOK {
		m.setStatus("That email is already registered.", true)
		return m, nil
	}
	avatar := domain.DefaultAvatar
	if raw := m.form.value(sfAvatar); raw != "" {
		u, err := domain.ParseImage(raw)
		if err != nil {
			m.setStatus(domain.MessageOf(err), true)
			return m, nil
		}
		avatar = u
	}

	m.busy = true
	m.status = ""
	api, sessions := m.api, m.sessions
	req := client.CreateUserRequest{Name: name, Email: email, Password: password, Avatar: avatar}
	return m, func() tea.Msg {
		ctx := context.Background()
		if _, err := api.CreateUser(ctx, req); err != nil {
			return signupFailedMsg{err: err}
		}
		s, err := sessions.LoginWithCredentials(ctx, email, password)
		return sessionMsg{op: "signup", sess: s, err: err}
	}
}

// profileUpdate collects the fields that differ from the current identity.
func profileUpdate(f form, id *domain.Identity) (domain.ProfileUpdate, error) {
	var upd domain.ProfileUpdate
	var cur domain.Identity
	if id != nil {
		cur = *id
	}
	if v := f.value(sfName); v != "" && v != cur.Name {
		upd.Name = &v
	}
	if v := f.value(sfEmail); v != "" && v != cur.Email {
		upd.Email = &v
	}
	if v := f.fields[sfPassword].value; v != "" {
		upd.Password = &v
	}
	if v := f.value(sfAvatar); v != "" && v != cur.AvatarURL {
		u, err := domain.ParseImage(v)
		if err != nil {
			return upd, err
		}
		upd.Avatar = &u
	}
	return upd, nil
}

func (m accountModel) submitProfile() (accountModel, tea.Cmd) {
	upd, err := profileUpdate(m.form, m.sess.Identity)
	if err != nil {
		m.setStatus(domain.MessageOf(err), true)
		return m, nil
	}
	m.busy = true
	m.status = ""
	sessions := m.sessions
	return m, func() tea.Msg {
		s, err := sessions.UpdateProfile(context.Background(), upd)
		return sessionMsg{op: "update", sess: s, err: err}
	}
}

func (m accountModel) helpKeys() string {
	switch m.mode {
	case acctProfile:
		return helpEntry("e", "edit") + "  " + helpEntry("o", "log out")
	case acctEdit:
		return helpEntry("tab", "next") + "  " + helpEntry("ctrl+s", "save") + "  " + helpEntry("esc", "cancel")
	case acctSignup:
		return helpEntry("tab", "next") + "  " + helpEntry("ctrl+s", "create") + "  " + helpEntry("esc", "back")
	}
	if m.focused {
		return helpEntry("tab", "next") + "  " + helpEntry("enter", "sign in") + "  " + helpEntry("esc", "nav")
	}
	return helpEntry("enter", "sign in") + "  " + helpEntry("ctrl+o", "identity provider") + "  " + helpEntry("ctrl+n", "sign up")
}

func (m accountModel) View() string {
	var b strings.Builder
	switch m.mode {
	case acctProfile:
		b.WriteString(identityView(m.sess))
	case acctEdit:
		b.WriteString(sectionHeaderStyle.Render("  EDIT PROFILE") + "\n\n" + m.form.View())
		b.WriteString(dimStyle.Render("  leave password empty to keep it") + "\n")
	case acctSignup:
		b.WriteString(sectionHeaderStyle.Render("  CREATE ACCOUNT") + "\n\n" + m.form.View())
		if m.emailNote != "" {
			style := successStyle
			if !m.emailOK {
				style = errorStyle
			}
			b.WriteString("  " + style.Render(m.emailNote) + "\n")
		}
	default:
		b.WriteString(sectionHeaderStyle.Render("  SIGN IN") + "\n\n" + m.form.View())
	}
	if m.busy {
		b.WriteString("\n" + dimStyle.Render("  working...") + "\n")
	}
	if m.authURL != "" {
		b.WriteString("\n  " + normalStyle.Render("Open this URL to continue:") + "\n  " + accentStyle.Render(m.authURL) + "\n")
	}
	if m.status != "" {
		style := successStyle
		if m.statusErr {
			style = errorStyle
		}
		b.WriteString("\n  " + style.Render(m.status) + "\n")
	}
	return b.String()
}

func identityView(s session.Session) string {
	id := s.Identity
	if id == nil {
		return ""
	}
	var b strings.Builder
	name := selectedStyle.Render(sanitize.Line(id.Name, 60))
	if id.IsAdmin() {
		name += " " + adminStyle.Render("admin")
	}
	b.WriteString("  " + name + "\n")
	b.WriteString("  " + dimStyle.Render(sanitize.Line(id.Email, 80)) + "\n\n")
	rows := [][2]string{
		{"id", sanitize.Line(id.ID, 40)},
		{"role", sanitize.Line(id.Role, 20)},
		{"signed in", methodLabel(s.Method)},
	}
	if id.AvatarURL != "" {
		rows = append(rows, [2]string{"avatar", sanitize.Line(id.AvatarURL, 100)})
	}
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("  %s  %s\n", metaStyle.Render(padRight(r[0], 10)), normalStyle.Render(r[1])))
	}
	if !s.CanUpdateProfile() {
		b.WriteString("\n  " + dimStyle.Render("profile is managed by the identity provider") + "\n")
	}
	return b.String()
}

func methodLabel(m session.Method) string {
	switch m {
	case session.MethodCredentials:
		return "email and password"
	case session.MethodDelegated:
		return "identity provider"
	}
	return "-"
}
