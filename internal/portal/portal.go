// Package portal pins down the external site contract: the login URL, the
// element identifiers for credential fields and result labels, and the literal
// link texts the navigation flow clicks through. The portal exposes no API and
// no stable structural selectors, so everything here is derived from its
// rendered markup and must be resynced whenever that markup changes.
package portal

// DefaultLoginURL is the entry point of the student portal.
const DefaultLoginURL = "https://www.tkrcetautonomous.org/Login.aspx"

// Element identifiers observed on the portal pages. These are the only
// structural selectors the site keeps stable across terms.
const (
	UserFieldSelector   = "#txtUserId"
	PwdFieldSelector    = "#txtPwd"
	LoginButtonSelector = "#btnLogin"
	StudentNameID       = "lblStudName"
	FinalCGPAID         = "cpStudCorner_lblFinalCGPA"
)

// Anchor texts for the fixed navigation sequence. Link text is more stable
// than the portal's generated element IDs, so navigation matches on it.
const (
	LoginsLinkText       = "Logins"
	StudentLoginLinkText = "Student Login"
	MarksLinkText        = "Marks Details"
	SemwiseLinkText      = "Overall Marks - Semwise"
)

// SeeingBannerPrefix precedes the term label in the confirmation banner the
// portal renders after a semester button is clicked.
const SeeingBannerPrefix = "You are Seeing - "
