// Package credential maps decoded passport records to the id and secret
// sent to the authority.
package credential

import (
	"fmt"
	"strconv"

	"dooropener/ndef"
)

// Credential identifies a passport holder to the authority.
type Credential struct {
	ID     int32
	Secret string
}

// String omits the secret so credentials can be logged.
func (c Credential) String() string {
	return fmt.Sprintf("passport %d", c.ID)
}

// Layout assigns roles to record positions on the tag. The zero value is
// replaced by DefaultLayout.
type Layout struct {
	Records int `yaml:"records"` // exact number of records expected
	ID      int `yaml:"id"`      // index of the numeric id record
	Secret  int `yaml:"secret"`  // index of the secret record
}

// DefaultLayout matches passports written as [url, id, secret].
var DefaultLayout = Layout{Records: 3, ID: 1, Secret: 2}

// Validate checks that the indices fit inside the record count.
func (l Layout) Validate() error {
	if l.Records <= 0 {
		return fmt.Errorf("records must be positive, got %d", l.Records)
	}
	for name, idx := range map[string]int{"id": l.ID, "secret": l.Secret} {
		if idx < 0 || idx >= l.Records {
			return fmt.Errorf("%s index %d outside %d records", name, idx, l.Records)
		}
	}
	if l.ID == l.Secret {
		return fmt.Errorf("id and secret share record %d", l.ID)
	}
	return nil
}

// ExtractionError reports a well-formed message that does not match the
// passport layout.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return "credential: " + e.Reason + ": " + e.Err.Error()
	}
	return "credential: " + e.Reason
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Extract reads the credential out of res according to layout.
func Extract(res *ndef.ParseResult, layout Layout) (Credential, error) {
	if layout == (Layout{}) {
		layout = DefaultLayout
	}
	if res == nil {
		return Credential{}, &ExtractionError{Reason: "no message"}
	}
	if len(res.Records) != layout.Records {
		return Credential{}, &ExtractionError{
			Reason: fmt.Sprintf("expected %d records, found %d", layout.Records, len(res.Records)),
		}
	}
	if err := layout.Validate(); err != nil {
		return Credential{}, &ExtractionError{Reason: "invalid layout", Err: err}
	}

	idText := res.Records[layout.ID].Text
	id, err := strconv.ParseInt(idText, 10, 32)
	if err != nil {
		return Credential{}, &ExtractionError{Reason: fmt.Sprintf("id record %q is not a number", idText), Err: err}
	}

	return Credential{
		ID:     int32(id),
		Secret: res.Records[layout.Secret].Text,
	}, nil
}
