package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrChallengePage is returned when a mirror answers with a login or captcha
// page instead of content.
type ErrChallengePage struct {
	Kind string // "login" or "captcha"
}

// Error implements the error interface.
func (e *ErrChallengePage) Error() string {
	return fmt.Sprintf("mirror requires %s", e.Kind)
}

// Is allows for error checking with errors.Is().
func (e *ErrChallengePage) Is(target error) bool {
	_, ok := target.(*ErrChallengePage)
	return ok
}

// checkChallenge detects the interstitial pages mirrors show to blocked clients.
func checkChallenge(doc *goquery.Document) error {
	switch strings.TrimSpace(doc.Find("title").First().Text()) {
	case "Sign In":
		return &ErrChallengePage{Kind: "login"}
	case "Verify":
		return &ErrChallengePage{Kind: "captcha"}
	}
	return nil
}
