package greeter

// View is the display side of the greeter: the commands the Controller
// issues to whatever renders the login form.
type View interface {
	ShowPassword(visible bool)
	ClearPassword()
	// Password returns what is currently typed in the password field.
	Password() string
	ShowMessage(text string)
	SelectUser(username string)
	SelectSession(id string)
}
