// Package contact carries contact-form submissions from the page to the
// site's backend and stores them there.
package contact

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// ErrInvalid is returned for submissions that fail validation.
var ErrInvalid = errors.New("invalid submission")

const (
	maxNameLen    = 200
	maxMessageLen = 5000
)

// Submission is what the form posts.
type Submission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Normalize trims surrounding whitespace from every field.
func (s *Submission) Normalize() {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.TrimSpace(s.Email)
	s.Message = strings.TrimSpace(s.Message)
}

// Validate checks required fields and limits.
func (s Submission) Validate() error {
	switch {
	case s.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalid)
	case len(s.Name) > maxNameLen:
		return fmt.Errorf("%w: name longer than %d characters", ErrInvalid, maxNameLen)
	case s.Email == "":
		return fmt.Errorf("%w: email is required", ErrInvalid)
	case s.Message == "":
		return fmt.Errorf("%w: message is required", ErrInvalid)
	case len(s.Message) > maxMessageLen:
		return fmt.Errorf("%w: message longer than %d characters", ErrInvalid, maxMessageLen)
	}
	if _, err := mail.ParseAddress(s.Email); err != nil {
		return fmt.Errorf("%w: email %q is not an address", ErrInvalid, s.Email)
	}
	return nil
}

// Message is a stored submission.
type Message struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Message    string    `json:"message"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
