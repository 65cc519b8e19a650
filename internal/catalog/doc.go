// Package catalog lists the accounts and session types the greeter offers.
//
// Users come from the host passwd database filtered the way LightDM's
// users.conf does; sessions come from installed .desktop files. A user's
// preferred session is looked up through a SessionHinter chain.
package catalog
