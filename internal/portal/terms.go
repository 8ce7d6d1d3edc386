package portal

import "fmt"

// Term identifies one of the eight academic periods the portal publishes
// results for.
type Term string

const (
	TermI_I    Term = "I_I"
	TermI_II   Term = "I_II"
	TermII_I   Term = "II_I"
	TermII_II  Term = "II_II"
	TermIII_I  Term = "III_I"
	TermIII_II Term = "III_II"
	TermIV_I   Term = "IV_I"
	TermIV_II  Term = "IV_II"
)

// termLabels maps each term code to the literal substring of the portal's
// submit-button value for that term's results.
var termLabels = map[Term]string{
	TermI_I:    "I YEAR I SEMES",
	TermI_II:   "I YEAR II SEMES",
	TermII_I:   "II YEAR I SEMES",
	TermII_II:  "II YEAR II SEMES",
	TermIII_I:  "III YEAR I SEMES",
	TermIII_II: "III YEAR II SEMES",
	TermIV_I:   "IV YEAR I SEMES",
	TermIV_II:  "IV YEAR II SEMES",
}

// ParseTerm validates a raw term code. Unknown codes are a validation error,
// never a silent default.
func ParseTerm(raw string) (Term, error) {
	t := Term(raw)
	if _, ok := termLabels[t]; !ok {
		return "", fmt.Errorf("unknown term code %q", raw)
	}
	return t, nil
}

// Label returns the portal's button-value substring for the term.
func (t Term) Label() string {
	return termLabels[t]
}

// Terms returns all valid term codes in academic order.
func Terms() []Term {
	return []Term{
		TermI_I, TermI_II,
		TermII_I, TermII_II,
		TermIII_I, TermIII_II,
		TermIV_I, TermIV_II,
	}
}
